package memory

import (
	"context"
	"time"
)

// DateLayout is the day-granular key used by every date index.
const DateLayout = "2006-01-02"

// Record is a consolidated episodic memory unit. Its ID is the ID of the
// cognitive event it was extracted from.
type Record struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Importance   float64   `json:"importance"`
	Keywords     []string  `json:"keywords"`
	Associations []string  `json:"associations"`
	Timestamp    time.Time `json:"timestamp"`
	Entities     []string  `json:"entities"`
	Source       string    `json:"source"`
}

// Date returns the record's day key in local time.
func (r Record) Date() string {
	return r.Timestamp.Local().Format(DateLayout)
}

// ExtractedMemory is what a memory-extraction stage produces before it is
// matched back to a working-memory event.
type ExtractedMemory struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	Importance   float64  `json:"importance"`
	Keywords     []string `json:"keywords"`
	Associations []string `json:"associations"`
}

// Query selects episodic memories. DateRange must hold exactly two ISO
// dates to be honored; anything else means "today only".
type Query struct {
	DateRange     []string `json:"date_range,omitempty"`
	ImportanceMin float64  `json:"importance_min,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Associations  []string `json:"associations,omitempty"`
}

// Manager is a durable episodic memory store.
type Manager interface {
	Save(ctx context.Context, records []Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
}

// KeywordPolicy decides how keyword hits combine with date candidates.
type KeywordPolicy string

const (
	// PolicyIntersect keeps date candidates that also match a keyword.
	// A keyword filter matching nothing yields an empty result.
	PolicyIntersect KeywordPolicy = "intersect"
	// PolicyUnion adds every keyword-index hit to the date candidates,
	// regardless of date.
	PolicyUnion KeywordPolicy = "union"
)

// ParseKeywordPolicy maps a config string to a policy, defaulting to intersect.
func ParseKeywordPolicy(s string) KeywordPolicy {
	if KeywordPolicy(s) == PolicyUnion {
		return PolicyUnion
	}
	return PolicyIntersect
}

// groupByDate buckets records by day key, preserving input order per day.
func groupByDate(records []Record) (map[string][]Record, []string) {
	groups := make(map[string][]Record)
	var order []string
	for _, r := range records {
		d := r.Date()
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], r)
	}
	return groups, order
}

func anyIn(want []string, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
