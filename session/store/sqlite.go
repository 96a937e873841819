package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[T].
//
// It persists sessions in a single-file database with zero setup,
// which fits the typical deployment of a testing station: one machine,
// one examiner, sessions that must survive a crash or an intentional
// interruption so they can be resumed later.
//
// Features:
//   - Single file database (e.g. "./sessions.db") or ":memory:"
//   - Auto-migration on first use
//   - WAL mode for concurrent reads
//
// Schema:
//   - sessions: one row per session snapshot (JSON trials + summary)
//   - session_trials: incrementally saved trials, one row per trial
type SQLiteStore[T any] struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Use ":memory:" for tests. The schema is created on first use.
//
// Example:
//
//	st, err := store.NewSQLiteStore[session.TrialRecord]("./sessions.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[T any](path string) (*SQLiteStore[T], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[T]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[T]) createTables(ctx context.Context) error {
	sessions := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			proband_id TEXT NOT NULL,
			test_name TEXT NOT NULL,
			resumed INTEGER NOT NULL DEFAULT 0,
			aborted INTEGER NOT NULL DEFAULT 0,
			started TIMESTAMP,
			finished TIMESTAMP,
			trials TEXT NOT NULL,
			summary TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, sessions); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	trials := `
		CREATE TABLE IF NOT EXISTS session_trials (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			trial TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, trials); err != nil {
		return fmt.Errorf("failed to create session_trials table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_trials_session ON session_trials(session_id)"); err != nil {
		return fmt.Errorf("failed to create idx_trials_session: %w", err)
	}
	return nil
}

// SaveTrial upserts one resolved trial keyed by (sessionID, seq).
func (s *SQLiteStore[T]) SaveTrial(ctx context.Context, sessionID string, seq int, trial T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(trial)
	if err != nil {
		return fmt.Errorf("failed to marshal trial: %w", err)
	}

	query := `
		INSERT INTO session_trials (session_id, seq, trial)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, seq) DO UPDATE SET trial = excluded.trial
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, seq, string(data)); err != nil {
		return fmt.Errorf("failed to save trial: %w", err)
	}
	return nil
}

// SaveSession upserts a full session snapshot.
func (s *SQLiteStore[T]) SaveSession(ctx context.Context, snap Snapshot[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	trialsJSON, err := json.Marshal(snap.Trials)
	if err != nil {
		return fmt.Errorf("failed to marshal trials: %w", err)
	}
	var summaryJSON []byte
	if snap.Summary != nil {
		summaryJSON, err = json.Marshal(snap.Summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
	}

	query := `
		INSERT INTO sessions
			(session_id, proband_id, test_name, resumed, aborted, started, finished, trials, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			proband_id = excluded.proband_id,
			test_name = excluded.test_name,
			resumed = excluded.resumed,
			aborted = excluded.aborted,
			started = excluded.started,
			finished = excluded.finished,
			trials = excluded.trials,
			summary = excluded.summary,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.db.ExecContext(ctx, query,
		snap.SessionID, snap.ProbandID, snap.TestName,
		boolToInt(snap.Resumed), boolToInt(snap.Aborted),
		snap.Started, nullableTime(snap.Finished),
		string(trialsJSON), nullableString(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves the latest snapshot for a session.
func (s *SQLiteStore[T]) LoadSession(ctx context.Context, sessionID string) (Snapshot[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero Snapshot[T]
	if s.closed {
		return zero, fmt.Errorf("store is closed")
	}

	query := `
		SELECT session_id, proband_id, test_name, resumed, aborted, started, finished, trials, summary
		FROM sessions WHERE session_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, sessionID)

	var snap Snapshot[T]
	var resumed, aborted int
	var started, finished sql.NullTime
	var trialsJSON string
	var summaryJSON sql.NullString
	err := row.Scan(&snap.SessionID, &snap.ProbandID, &snap.TestName,
		&resumed, &aborted, &started, &finished, &trialsJSON, &summaryJSON)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load session: %w", err)
	}

	snap.Resumed = resumed != 0
	snap.Aborted = aborted != 0
	if started.Valid {
		snap.Started = started.Time
	}
	if finished.Valid {
		snap.Finished = finished.Time
	}
	if err := json.Unmarshal([]byte(trialsJSON), &snap.Trials); err != nil {
		return zero, fmt.Errorf("failed to unmarshal trials: %w", err)
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &snap.Summary); err != nil {
			return zero, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}
	return snap, nil
}

// Close closes the underlying database.
func (s *SQLiteStore[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
