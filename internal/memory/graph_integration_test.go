//go:build integration

package memory

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	"go.uber.org/zap"
)

func startGraphStore(t *testing.T) *GraphStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcneo4j.Run(ctx, "neo4j:5-community", tcneo4j.WithoutAuthentication())
	if err != nil {
		t.Fatalf("start neo4j: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	uri, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatalf("neo4j bolt url: %v", err)
	}
	s, err := NewGraphStore(uri, "", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewGraphStore: %v", err)
	}
	t.Cleanup(func() { s.Close(ctx) })

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestGraphStoreSaveAndQuery(t *testing.T) {
	s := startGraphStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, seedRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, seedRecords()); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := s.Query(ctx, Query{DateRange: []string{"2024-01-15", "2024-01-16"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "m1", "m2") {
		t.Fatalf("expected m1,m2, got %v", ids(got))
	}

	got, err = s.Query(ctx, Query{DateRange: []string{"2024-01-15", "2024-01-17"}, Keywords: []string{"work"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "m1", "m3") {
		t.Fatalf("expected m1,m3, got %v", ids(got))
	}
}
