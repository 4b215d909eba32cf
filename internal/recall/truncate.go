// Package recall bounds oversized memory sets before they reach
// associative recall and behavior generation.
package recall

import (
	"context"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
)

// Mode selects which end of an oversized list survives truncation.
type Mode string

const (
	KeepFirst Mode = "first"
	KeepLast  Mode = "last"
)

// ParseMode maps a config string to a Mode, defaulting to KeepLast.
func ParseMode(s string) Mode {
	if Mode(s) == KeepFirst {
		return KeepFirst
	}
	return KeepLast
}

// Policy bounds a memory list to limit entries and reports whether
// anything was dropped.
type Policy interface {
	Truncate(ctx context.Context, records []memory.Record, limit int, mode Mode) ([]memory.Record, bool)
}

// Default is the keep-first / keep-last policy.
type Default struct{}

// Truncate implements Policy.
func (Default) Truncate(_ context.Context, records []memory.Record, limit int, mode Mode) ([]memory.Record, bool) {
	return Truncate(records, limit, mode)
}

// Truncate returns records unchanged when they fit in limit. Otherwise it
// returns the first or last limit entries, in original order, and true.
// A non-positive limit disables truncation.
func Truncate(records []memory.Record, limit int, mode Mode) ([]memory.Record, bool) {
	if limit <= 0 || len(records) <= limit {
		return records, false
	}
	if mode == KeepFirst {
		return records[:limit], true
	}
	return records[len(records)-limit:], true
}
