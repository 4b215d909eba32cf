package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/jackc/pgx/v5"
)

// Save upserts records and logs the batch in the consolidations table.
func (s *Store) Save(ctx context.Context, records []memory.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO episodic_memories
				(id, content, importance, keywords, associations, entities, source, occurred_at, day)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				importance = EXCLUDED.importance,
				keywords = EXCLUDED.keywords,
				associations = EXCLUDED.associations,
				entities = EXCLUDED.entities,
				source = EXCLUDED.source,
				occurred_at = EXCLUDED.occurred_at,
				day = EXCLUDED.day,
				updated_at = NOW()`,
			r.ID, r.Content, r.Importance,
			orEmpty(r.Keywords), orEmpty(r.Associations), orEmpty(r.Entities),
			r.Source, r.Timestamp, r.Date(),
		)
	}
	batch.Queue(`INSERT INTO consolidations (record_count) VALUES ($1)`, len(records))

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save episodic memories: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Query selects memories in the date range at or above the importance floor
// that share at least one keyword and one association with the query, when given.
func (s *Store) Query(ctx context.Context, q memory.Query) ([]memory.Record, error) {
	start, end := memory.ParseDateRange(q.DateRange, time.Now())

	rows, err := s.db.Query(ctx, `
		SELECT id, content, importance, keywords, associations, entities, source, occurred_at
		FROM episodic_memories
		WHERE day BETWEEN $1::date AND $2::date
		  AND importance >= $3
		  AND (cardinality($4::text[]) = 0 OR keywords && $4::text[])
		  AND (cardinality($5::text[]) = 0 OR associations && $5::text[])
		ORDER BY occurred_at ASC`,
		start.Format(memory.DateLayout), end.Format(memory.DateLayout),
		q.ImportanceMin, orEmpty(q.Keywords), orEmpty(q.Associations))
	if err != nil {
		return nil, fmt.Errorf("query episodic memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Record
	for rows.Next() {
		var r memory.Record
		if err := rows.Scan(&r.ID, &r.Content, &r.Importance,
			&r.Keywords, &r.Associations, &r.Entities, &r.Source, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan episodic memory: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodic memories: %w", err)
	}
	return out, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
