package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// JSONStore persists runs as one JSON file per run under a directory.
// Simpler than SQLite for scripting and inspection.
type JSONStore struct {
	dir string
	mu  sync.RWMutex
}

// NewJSONStore creates a store rooted at dir.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

// Init creates the directory.
func (s *JSONStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return nil
}

func (s *JSONStore) runPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// SaveRun implements Store. Writes go through a temp file and rename so
// a crash never leaves a half-written record.
func (s *JSONStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run %s: %w", rec.ID, err)
	}

	tmp := s.runPath(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing run %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp, s.runPath(rec.ID)); err != nil {
		return fmt.Errorf("renaming run %s: %w", rec.ID, err)
	}
	return nil
}

// GetRun implements Store.
func (s *JSONStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.runPath(id))
	if os.IsNotExist(err) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling run %s: %w", id, err)
	}
	return &rec, nil
}

// ListRuns implements Store.
func (s *JSONStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading store directory: %w", err)
	}

	var recs []*RunRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var rec RunRecord
		if json.Unmarshal(data, &rec) != nil {
			continue
		}
		recs = append(recs, &rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Close implements Store.
func (s *JSONStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("store directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store path %s is not a directory", s.dir)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
