package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the courses the sync will lock and their data_last_updated",
	RunE:  runCourses,
}

func runCourses(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	ids, err := a.repo.Course.ListSupportedIDs(ctx)
	if err != nil {
		return err
	}
	courses, err := a.repo.Course.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATA LAST UPDATED (UTC)")
	for _, c := range courses {
		updated := "never"
		if c.DataLastUpdated != nil {
			updated = c.DataLastUpdated.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, updated)
	}
	return w.Flush()
}
