package memory

import (
	"fmt"
	"strings"
)

// FormatRecords renders records as a prompt section, one line per memory.
func FormatRecords(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Episodic Memories]\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- [%s] (%s, importance: %.0f) %s",
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.Source, r.Importance, r.Content)
		if len(r.Keywords) > 0 {
			fmt.Fprintf(&b, " #%s", strings.Join(r.Keywords, " #"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// EstimateTokens gives a rough token count (~4 chars per token).
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		return 1
	}
	return n
}
