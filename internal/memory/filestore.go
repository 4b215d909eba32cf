package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DayMeta summarizes one day file inside the time index.
type DayMeta struct {
	MemoryCount     int        `json:"memory_count"`
	ImportanceRange [2]float64 `json:"importance_range"`
	Keywords        []string   `json:"keywords"`
	Associations    []string   `json:"associations"`
}

type timeIndex struct {
	IndexedDates map[string]*DayMeta `json:"indexed_dates"`
}

// FileStore persists episodic memories as one JSONL file per day plus
// global time, keyword and association index files.
//
//	<dir>/daily/memory_YYYY-MM-DD.jsonl
//	<dir>/index/time_index.json
//	<dir>/index/keyword_index.json
//	<dir>/index/association_index.json
type FileStore struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

// NewFileStore creates the directory layout under dir.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	for _, sub := range []string{"daily", "index"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create memory dir: %w", err)
		}
	}
	return &FileStore{dir: dir, now: time.Now, logger: logger}, nil
}

// Save merges records into their day files (newer wins on id) and
// refreshes all indexes.
func (s *FileStore) Save(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ti, err := s.loadTimeIndex()
	if err != nil {
		return err
	}
	kwIndex, err := s.loadSetIndex("keyword_index.json")
	if err != nil {
		return err
	}
	assocIndex, err := s.loadSetIndex("association_index.json")
	if err != nil {
		return err
	}

	groups, order := groupByDate(records)
	for _, day := range order {
		existing, err := s.loadDay(day)
		if err != nil {
			return err
		}
		merged := mergeRecords(existing, groups[day])
		if err := s.writeDay(day, merged); err != nil {
			return err
		}
		ti.IndexedDates[day] = summarize(merged)
		for _, r := range merged {
			for _, kw := range r.Keywords {
				kwIndex[kw] = appendUnique(kwIndex[kw], r.ID)
			}
			for _, a := range r.Associations {
				assocIndex[a] = appendUnique(assocIndex[a], r.ID)
			}
		}
	}

	if err := s.writeJSON("time_index.json", ti); err != nil {
		return err
	}
	if err := s.writeJSON("keyword_index.json", kwIndex); err != nil {
		return err
	}
	if err := s.writeJSON("association_index.json", assocIndex); err != nil {
		return err
	}

	s.logger.Info("episodic memories saved",
		zap.Int("records", len(records)),
		zap.Int("days", len(order)))
	return nil
}

// Query pre-filters days through the time index, then filters records
// in the surviving day files.
func (s *FileStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := ParseDateRange(q.DateRange, s.now())
	ti, err := s.loadTimeIndex()
	if err != nil {
		return nil, err
	}

	var days []string
	for day, meta := range ti.IndexedDates {
		if !inRange(day, start, end) {
			continue
		}
		if meta.ImportanceRange[1] < q.ImportanceMin {
			continue
		}
		if len(q.Keywords) > 0 && !anyIn(q.Keywords, meta.Keywords) {
			continue
		}
		if len(q.Associations) > 0 && !anyIn(q.Associations, meta.Associations) {
			continue
		}
		days = append(days, day)
	}
	sort.Strings(days)

	var out []Record
	for _, day := range days {
		records, err := s.loadDay(day)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Importance < q.ImportanceMin {
				continue
			}
			if len(q.Keywords) > 0 && !anyIn(q.Keywords, r.Keywords) {
				continue
			}
			if len(q.Associations) > 0 && !anyIn(q.Associations, r.Associations) {
				continue
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FileStore) dayPath(day string) string {
	return filepath.Join(s.dir, "daily", "memory_"+day+".jsonl")
}

func (s *FileStore) loadDay(day string) ([]Record, error) {
	f, err := os.Open(s.dayPath(day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open day %s: %w", day, err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			s.logger.Warn("skipping malformed memory line",
				zap.String("day", day), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read day %s: %w", day, err)
	}
	return records, nil
}

func (s *FileStore) writeDay(day string, records []Record) error {
	tmp := s.dayPath(day) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create day %s: %w", day, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("encode memory %s: %w", r.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush day %s: %w", day, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.dayPath(day))
}

func (s *FileStore) loadTimeIndex() (*timeIndex, error) {
	ti := &timeIndex{}
	if err := s.readJSON("time_index.json", ti); err != nil {
		return nil, err
	}
	if ti.IndexedDates == nil {
		ti.IndexedDates = make(map[string]*DayMeta)
	}
	return ti, nil
}

func (s *FileStore) loadSetIndex(name string) (map[string][]string, error) {
	idx := make(map[string][]string)
	if err := s.readJSON(name, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, "index", name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("ignoring corrupt index file", zap.String("file", name), zap.Error(err))
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index %s: %w", name, err)
	}
	path := filepath.Join(s.dir, "index", name)
	if err := os.WriteFile(path+".tmp", data, 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", name, err)
	}
	return os.Rename(path+".tmp", path)
}

// mergeRecords keeps existing order and lets incoming records replace by id.
func mergeRecords(existing, incoming []Record) []Record {
	pos := make(map[string]int, len(existing))
	out := make([]Record, 0, len(existing)+len(incoming))
	for _, r := range existing {
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range incoming {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func summarize(records []Record) *DayMeta {
	meta := &DayMeta{MemoryCount: len(records)}
	kw := make(map[string]struct{})
	assoc := make(map[string]struct{})
	for i, r := range records {
		if i == 0 || r.Importance < meta.ImportanceRange[0] {
			meta.ImportanceRange[0] = r.Importance
		}
		if i == 0 || r.Importance > meta.ImportanceRange[1] {
			meta.ImportanceRange[1] = r.Importance
		}
		for _, k := range r.Keywords {
			kw[k] = struct{}{}
		}
		for _, a := range r.Associations {
			assoc[a] = struct{}{}
		}
	}
	meta.Keywords = sortedKeys(kw)
	meta.Associations = sortedKeys(assoc)
	return meta
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
