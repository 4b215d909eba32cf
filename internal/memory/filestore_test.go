package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, seedRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Query(ctx, Query{DateRange: []string{"2024-01-15", "2024-01-17"}, Keywords: []string{"work"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "m1", "m3") {
		t.Fatalf("expected m1,m3, got %v", ids(got))
	}

	got, err = s.Query(ctx, Query{DateRange: []string{"2024-01-15", "2024-01-17"}, ImportanceMin: 70})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "m3") {
		t.Fatalf("expected m3, got %v", ids(got))
	}
}

func TestFileStoreAssociations(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	recs := seedRecords()
	recs[1].Associations = []string{"sunshine"}
	if err := s.Save(ctx, recs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Query(ctx, Query{DateRange: []string{"2024-01-01", "2024-01-31"}, Associations: []string{"sunshine"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "m2") {
		t.Fatalf("expected m2, got %v", ids(got))
	}
}

func TestFileStoreMergeByID(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, seedRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, seedRecords()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	updated := seedRecords()[:1]
	updated[0].Content = "rescheduled standup"
	if err := s.Save(ctx, updated); err != nil {
		t.Fatalf("update Save: %v", err)
	}

	got, err := s.Query(ctx, Query{DateRange: []string{"2024-01-15", "2024-01-15"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Content != "rescheduled standup" {
		t.Fatalf("expected single updated record, got %+v", got)
	}

	var kw map[string][]string
	data, err := os.ReadFile(filepath.Join(s.dir, "index", "keyword_index.json"))
	if err != nil {
		t.Fatalf("read keyword index: %v", err)
	}
	if err := json.Unmarshal(data, &kw); err != nil {
		t.Fatalf("decode keyword index: %v", err)
	}
	if len(kw["work"]) != 2 {
		t.Errorf("expected 2 ids under work, got %v", kw["work"])
	}
}

func TestFileStoreEmptyDirQuery(t *testing.T) {
	s := newTestFileStore(t)
	got, err := s.Query(context.Background(), Query{DateRange: []string{"2024-01-15", "2024-01-17"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}
