package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestSQLiteRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(SQLiteRecorderConfig{
		DSN: filepath.Join(t.TempDir(), "trace.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return r
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRecorder(t)

	want := Entry{
		RunID:      "run-1",
		RunSeq:     1,
		InstanceID: "node-a",
		BrickID:    "transform/identity",
		Branch:     "body:0",
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 123456000, time.UTC),
		EndedAt:    time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
		Input:      map[string]any{"value": "x"},
		Output:     "x",
	}
	if err := r.Record(ctx, want); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := r.GetTrace(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrace: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if diff := cmp.Diff(want, entries[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRecorderUpsertCompletesEntry(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRecorder(t)

	started := testEntry("run-1", "node-a", "", 1)
	if err := r.Record(ctx, started); err != nil {
		t.Fatalf("Record: %v", err)
	}

	finished := started
	finished.EndedAt = started.StartedAt.Add(time.Second)
	finished.Output = "done"
	if err := r.Record(ctx, finished); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := r.GetTrace(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrace: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (upsert, not append)", len(entries))
	}
	if !entries[0].Completed() || entries[0].Output != "done" {
		t.Errorf("entry not finalized: %+v", entries[0])
	}
}

func TestSQLiteRecorderRejectsStaleRuns(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRecorder(t)

	if err := r.Record(ctx, testEntry("run-new", "node-a", "", 3)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(ctx, testEntry("run-old", "node-a", "", 2)); err != nil {
		t.Fatalf("Record stale: %v", err)
	}

	if entries, _ := r.GetTrace(ctx, "run-old"); len(entries) != 0 {
		t.Errorf("stale run was recorded: %v", entries)
	}
}

func TestSQLiteRecorderOrdersByStartTime(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRecorder(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	second := testEntry("run-1", "node-b", "", 1)
	second.StartedAt = base.Add(time.Second)
	first := testEntry("run-1", "node-a", "", 1)
	first.StartedAt = base

	// Recorded out of order on purpose.
	if err := r.Record(ctx, second); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(ctx, first); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := r.GetTrace(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrace: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].InstanceID != "node-a" || entries[1].InstanceID != "node-b" {
		t.Errorf("entries out of order: %s, %s", entries[0].InstanceID, entries[1].InstanceID)
	}
}

func TestSQLiteRecorderSubscribe(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRecorder(t)

	var seen []string
	cancel := r.Subscribe(func(e Entry) {
		seen = append(seen, e.InstanceID)
	})

	if err := r.Record(ctx, testEntry("run-1", "node-a", "", 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	cancel()
	if err := r.Record(ctx, testEntry("run-1", "node-b", "", 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(seen) != 1 || seen[0] != "node-a" {
		t.Errorf("listener saw %v, want [node-a]", seen)
	}
}

func TestSQLiteRecorderPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "trace.db")

	r1, err := NewSQLiteRecorder(SQLiteRecorderConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	if err := r1.Record(ctx, testEntry("run-1", "node-a", "", 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := NewSQLiteRecorder(SQLiteRecorderConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()

	entries, err := r2.GetTrace(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrace: %v", err)
	}
	if len(entries) != 1 || entries[0].InstanceID != "node-a" {
		t.Errorf("entries not persisted: %v", entries)
	}
}
