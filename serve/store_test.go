package serve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	deepthink "github.com/everydev1618/godeepthink"
)

// storeUnderTest runs the same contract checks against every Store
// implementation.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping after Init failed: %v", err)
	}

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
	}

	created := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	rec := &RunRecord{
		ID:        "run-one",
		Query:     "why",
		State:     deepthink.StateCompleted,
		Answer:    "because",
		CreatedAt: created,
		Outcome: &deepthink.RunOutcome{
			Answer: "because",
			Metadata: deepthink.RunMetadata{
				RunID:         "run-one",
				State:         deepthink.StateCompleted,
				PathsConsumed: 4,
			},
		},
	}
	if err := store.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run-one")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Query != "why" || got.Answer != "because" || got.State != deepthink.StateCompleted {
		t.Errorf("record = %+v", got)
	}
	if got.Outcome == nil || got.Outcome.Metadata.PathsConsumed != 4 {
		t.Errorf("outcome not round-tripped: %+v", got.Outcome)
	}

	// Saving again updates in place.
	rec.State = deepthink.StateFailed
	rec.Error = "boom"
	if err := store.SaveRun(ctx, rec); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err = store.GetRun(ctx, "run-one")
	if err != nil {
		t.Fatalf("GetRun after update failed: %v", err)
	}
	if got.State != deepthink.StateFailed || got.Error != "boom" {
		t.Errorf("updated record = %+v", got)
	}

	// Newest first.
	second := &RunRecord{
		ID:        "run-two",
		Query:     "what",
		State:     deepthink.StateCompleted,
		CreatedAt: created.Add(30 * time.Second),
	}
	if err := store.SaveRun(ctx, second); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	recs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("runs = %d, want 2", len(recs))
	}
	if recs[0].ID != "run-two" || recs[1].ID != "run-one" {
		t.Errorf("order = [%s, %s], want newest first", recs[0].ID, recs[1].ID)
	}

	// Limit applies.
	recs, err = store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "run-two" {
		t.Errorf("limited list = %+v", recs)
	}
}

func TestJSONStore(t *testing.T) {
	storeUnderTest(t, NewJSONStore(filepath.Join(t.TempDir(), "runs")))
}

func TestSQLiteStore(t *testing.T) {
	storeUnderTest(t, NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db")))
}
