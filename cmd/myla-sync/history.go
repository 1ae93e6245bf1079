package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	exportOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or export past sync runs",
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export past sync runs to an xlsx file",
	RunE:  runHistoryExport,
}

func init() {
	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs (0 = all)")
	historyExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: suggested file name)")
	historyCmd.AddCommand(historyExportCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.svc.History.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tSTARTED (UTC)\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.RunID, r.Status, r.StartedAt.UTC().Format("2006-01-02 15:04:05"), r.EndedAt.Sub(r.StartedAt).Round(time.Second))
	}
	return w.Flush()
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	buf, filename, err := a.svc.History.Export(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if exportOut != "" {
		filename = exportOut
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filename, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), filename)
	return nil
}
