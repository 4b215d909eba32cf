package memory

import (
	"slices"
	"time"
)

// Cache is the in-process episodic memory cache for one wake cycle.
// It holds the primary record table plus a date index and a keyword index.
// A Cache is owned by a single goroutine and is not safe for concurrent use.
type Cache struct {
	records      map[string]Record
	dateIndex    map[string][]string
	keywordIndex map[string][]string
	policy       KeywordPolicy
	now          func() time.Time
}

// NewCache creates an empty cache using the given keyword policy.
func NewCache(policy KeywordPolicy) *Cache {
	if policy == "" {
		policy = PolicyIntersect
	}
	return &Cache{
		records:      make(map[string]Record),
		dateIndex:    make(map[string][]string),
		keywordIndex: make(map[string][]string),
		policy:       policy,
		now:          time.Now,
	}
}

// Save upserts records and extends both indexes. Ids already listed under
// a date or keyword are not listed again, so repeated saves leave index
// sizes unchanged.
func (c *Cache) Save(records []Record) {
	if len(records) == 0 {
		return
	}
	for _, r := range records {
		c.records[r.ID] = r
	}

	groups, order := groupByDate(records)
	for _, day := range order {
		for _, r := range groups[day] {
			c.dateIndex[day] = appendUnique(c.dateIndex[day], r.ID)
			for _, kw := range r.Keywords {
				c.keywordIndex[kw] = appendUnique(c.keywordIndex[kw], r.ID)
			}
		}
	}
}

// Query returns the records matching q. Order is unspecified.
func (c *Cache) Query(q Query) []Record {
	start, end := ParseDateRange(q.DateRange, c.now())

	candidates := make(map[string]struct{})
	for day, ids := range c.dateIndex {
		if !inRange(day, start, end) {
			continue
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	}

	if len(q.Keywords) > 0 {
		hits := make(map[string]struct{})
		for _, kw := range q.Keywords {
			for _, id := range c.keywordIndex[kw] {
				hits[id] = struct{}{}
			}
		}
		candidates = c.combine(candidates, hits)
	}

	out := make([]Record, 0, len(candidates))
	for id := range candidates {
		r, ok := c.records[id]
		if !ok || r.Importance < q.ImportanceMin {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c *Cache) combine(byDate, byKeyword map[string]struct{}) map[string]struct{} {
	if c.policy == PolicyUnion {
		for id := range byKeyword {
			byDate[id] = struct{}{}
		}
		return byDate
	}
	if len(byKeyword) == 0 {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{})
	for id := range byDate {
		if _, ok := byKeyword[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Clear drops the record table and both indexes together.
func (c *Cache) Clear() {
	c.records = make(map[string]Record)
	c.dateIndex = make(map[string][]string)
	c.keywordIndex = make(map[string][]string)
}

// Len returns the number of cached records.
func (c *Cache) Len() int { return len(c.records) }

// IndexSizes returns the total number of id entries in the date and keyword indexes.
func (c *Cache) IndexSizes() (dates, keywords int) {
	for _, ids := range c.dateIndex {
		dates += len(ids)
	}
	for _, ids := range c.keywordIndex {
		keywords += len(ids)
	}
	return dates, keywords
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
