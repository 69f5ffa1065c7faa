package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteRecorderConfig configures the SQLite trace recorder.
type SQLiteRecorderConfig struct {
	// DSN is the database connection string.
	DSN string

	// RetentionAge deletes entries whose run started before this duration
	// ago (0 = no age pruning).
	RetentionAge time.Duration

	// PruneInterval is how often to run pruning (default 1 hour).
	PruneInterval time.Duration
}

// SQLiteRecorder persists trace entries to a SQLite database. It satisfies
// the Recorder interface and supports WAL mode for concurrent read access and
// a background pruner goroutine.
type SQLiteRecorder struct {
	db   *sql.DB
	cfg  SQLiteRecorderConfig
	stop chan struct{}
	done chan struct{}

	listenerMu sync.RWMutex
	listeners  map[int]Listener
	nextID     int
}

// NewSQLiteRecorder opens (or creates) a SQLite trace store.
func NewSQLiteRecorder(cfg SQLiteRecorderConfig) (*SQLiteRecorder, error) {
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tracestore: open: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracestore: set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracestore: create schema: %w", err)
	}

	r := &SQLiteRecorder{
		db:        db,
		cfg:       cfg,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
	}

	if cfg.RetentionAge > 0 {
		go r.pruneLoop()
	} else {
		close(r.done)
	}

	return r, nil
}

// Record upserts the entry, rejecting stale runs.
func (r *SQLiteRecorder) Record(ctx context.Context, entry Entry) error {
	var newest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(run_seq) FROM trace_entries WHERE instance_id = ?`,
		entry.InstanceID,
	).Scan(&newest)
	if err != nil {
		return fmt.Errorf("tracestore: stale check: %w", err)
	}
	if newest.Valid && entry.RunSeq < uint64(newest.Int64) {
		return nil
	}

	input, err := marshalField(entry.Input)
	if err != nil {
		return fmt.Errorf("tracestore: marshal input: %w", err)
	}
	output, err := marshalField(entry.Output)
	if err != nil {
		return fmt.Errorf("tracestore: marshal output: %w", err)
	}

	var endedAt any
	if entry.Completed() {
		endedAt = entry.EndedAt.Format(time.RFC3339Nano)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trace_entries (run_id, run_seq, instance_id, brick_id, branch, started_at, ended_at, input, output, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, instance_id, branch) DO UPDATE SET
		   run_seq = excluded.run_seq,
		   brick_id = excluded.brick_id,
		   started_at = excluded.started_at,
		   ended_at = excluded.ended_at,
		   input = excluded.input,
		   output = excluded.output,
		   error = excluded.error`,
		entry.RunID,
		entry.RunSeq,
		entry.InstanceID,
		entry.BrickID,
		entry.Branch,
		entry.StartedAt.Format(time.RFC3339Nano),
		endedAt,
		input,
		output,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("tracestore: record: %w", err)
	}

	r.notify(entry)
	return nil
}

// GetTrace returns the run's entries ordered by start time.
func (r *SQLiteRecorder) GetTrace(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, run_seq, instance_id, brick_id, branch, started_at, ended_at, input, output, error
		 FROM trace_entries WHERE run_id = ? ORDER BY started_at ASC, rowid ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("tracestore: get trace: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Subscribe registers a listener; the returned function removes it.
func (r *SQLiteRecorder) Subscribe(fn Listener) func() {
	r.listenerMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenerMu.Unlock()

	return func() {
		r.listenerMu.Lock()
		delete(r.listeners, id)
		r.listenerMu.Unlock()
	}
}

// Close stops the pruner and closes the database.
func (r *SQLiteRecorder) Close() error {
	close(r.stop)
	<-r.done
	return r.db.Close()
}

func (r *SQLiteRecorder) notify(entry Entry) {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	for _, fn := range r.listeners {
		fn(entry)
	}
}

func (r *SQLiteRecorder) pruneLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.cfg.RetentionAge).Format(time.RFC3339Nano)
			_, _ = r.db.Exec(`DELETE FROM trace_entries WHERE started_at < ?`, cutoff)
		}
	}
}

func marshalField(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry         Entry
		runSeq        int64
		startedAt     string
		endedAt       sql.NullString
		input, output sql.NullString
	)
	err := rows.Scan(&entry.RunID, &runSeq, &entry.InstanceID, &entry.BrickID,
		&entry.Branch, &startedAt, &endedAt, &input, &output, &entry.Error)
	if err != nil {
		return Entry{}, fmt.Errorf("tracestore: scan: %w", err)
	}
	entry.RunSeq = uint64(runSeq)

	entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("tracestore: parse started_at: %w", err)
	}
	if endedAt.Valid {
		entry.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return Entry{}, fmt.Errorf("tracestore: parse ended_at: %w", err)
		}
	}
	if input.Valid {
		if err := json.Unmarshal([]byte(input.String), &entry.Input); err != nil {
			return Entry{}, fmt.Errorf("tracestore: unmarshal input: %w", err)
		}
	}
	if output.Valid {
		if err := json.Unmarshal([]byte(output.String), &entry.Output); err != nil {
			return Entry{}, fmt.Errorf("tracestore: unmarshal output: %w", err)
		}
	}
	return entry, nil
}

// Compile-time interface check.
var _ Recorder = (*SQLiteRecorder)(nil)
