package memory

import (
	"sort"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func seedRecords() []Record {
	return []Record{
		{ID: "m1", Content: "standup", Importance: 60, Keywords: []string{"work", "meeting"}, Timestamp: day("2024-01-15")},
		{ID: "m2", Content: "lunch", Importance: 30, Keywords: []string{"lunch", "friends"}, Timestamp: day("2024-01-16")},
		{ID: "m3", Content: "deadline", Importance: 80, Keywords: []string{"work", "deadline"}, Timestamp: day("2024-01-17")},
	}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	sort.Strings(out)
	return out
}

func equalIDs(got []Record, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	sort.Strings(want)
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCacheQueryByDateRange(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())

	got := c.Query(Query{DateRange: []string{"2024-01-15", "2024-01-16"}})
	if !equalIDs(got, "m1", "m2") {
		t.Fatalf("expected m1,m2, got %v", ids(got))
	}
}

func TestCacheQueryByKeyword(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())

	got := c.Query(Query{DateRange: []string{"2024-01-15", "2024-01-17"}, Keywords: []string{"work"}})
	if !equalIDs(got, "m1", "m3") {
		t.Fatalf("expected m1,m3, got %v", ids(got))
	}
}

func TestCacheUnmatchedKeywordSuppressesResult(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())

	got := c.Query(Query{DateRange: []string{"2024-01-15", "2024-01-17"}, Keywords: []string{"holiday"}})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
}

func TestCacheUnionPolicyIgnoresDateForKeywordHits(t *testing.T) {
	c := NewCache(PolicyUnion)
	c.Save(seedRecords())

	got := c.Query(Query{DateRange: []string{"2024-01-16", "2024-01-16"}, Keywords: []string{"deadline"}})
	if !equalIDs(got, "m2", "m3") {
		t.Fatalf("expected m2,m3, got %v", ids(got))
	}
}

func TestCacheImportanceFilter(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())

	got := c.Query(Query{DateRange: []string{"2024-01-15", "2024-01-17"}, ImportanceMin: 50})
	if !equalIDs(got, "m1", "m3") {
		t.Fatalf("expected m1,m3, got %v", ids(got))
	}
}

func TestCacheDefaultRangeIsToday(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.now = func() time.Time { return day("2024-01-16") }
	c.Save(seedRecords())

	for _, dr := range [][]string{nil, {"2024-01-15"}, {"bogus", "2024-01-17"}} {
		got := c.Query(Query{DateRange: dr})
		if !equalIDs(got, "m2") {
			t.Errorf("range %v: expected m2, got %v", dr, ids(got))
		}
	}
}

func TestCacheSaveIsIdempotent(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())
	d1, k1 := c.IndexSizes()

	c.Save(seedRecords())
	d2, k2 := c.IndexSizes()

	if d1 != d2 || k1 != k2 {
		t.Fatalf("index sizes changed: dates %d->%d keywords %d->%d", d1, d2, k1, k2)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", c.Len())
	}
	if d1 != 3 || k1 != 6 {
		t.Fatalf("unexpected index sizes: dates=%d keywords=%d", d1, k1)
	}
}

func TestCacheSaveReplacesByID(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())
	c.Save([]Record{{ID: "m1", Content: "updated", Importance: 90, Keywords: []string{"work"}, Timestamp: day("2024-01-15")}})

	got := c.Query(Query{DateRange: []string{"2024-01-15", "2024-01-15"}})
	if len(got) != 1 || got[0].Content != "updated" {
		t.Fatalf("expected replaced record, got %+v", got)
	}
}

func TestCacheIndexesReferenceOnlyStoredRecords(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())

	for day, list := range c.dateIndex {
		for _, id := range list {
			if _, ok := c.records[id]; !ok {
				t.Errorf("date index %s references missing id %s", day, id)
			}
		}
	}
	for kw, list := range c.keywordIndex {
		for _, id := range list {
			if _, ok := c.records[id]; !ok {
				t.Errorf("keyword index %s references missing id %s", kw, id)
			}
		}
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(seedRecords())
	c.Clear()

	d, k := c.IndexSizes()
	if c.Len() != 0 || d != 0 || k != 0 {
		t.Fatalf("expected empty cache, got len=%d dates=%d keywords=%d", c.Len(), d, k)
	}
}

func TestCacheSaveEmptyIsNoop(t *testing.T) {
	c := NewCache(PolicyIntersect)
	c.Save(nil)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
}
