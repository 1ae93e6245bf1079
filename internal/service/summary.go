package service

import (
	"fmt"
	"strings"
	"time"
)

const summaryTimeLayout = "2006-01-02 15:04:05"

// summary 运行摘要文本，是运行对外可见的唯一结果
type summary struct {
	b strings.Builder
}

func (s *summary) line(format string, args ...interface{}) {
	fmt.Fprintf(&s.b, format, args...)
	s.b.WriteByte('\n')
}

// write 追加阶段输出（阶段自己负责换行）
func (s *summary) write(text string) {
	s.b.WriteString(text)
}

func (s *summary) String() string { return s.b.String() }

func formatUTC(t time.Time) string {
	return t.UTC().Format(summaryTimeLayout)
}
