package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[T].
//
// Designed for multi-station deployments where several testing machines
// write sessions to a shared clinic database, and for audit trails that
// outlive any single machine.
//
// The DSN format is the go-sql-driver one:
//
//	user:password@tcp(localhost:3306)/cogtest?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("COGTEST_MYSQL_DSN")
//	st, err := store.NewMySQLStore[session.TrialRecord](dsn)
//
// parseTime=true is required so TIMESTAMP columns scan into time.Time.
type MySQLStore[T any] struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store. The required tables
// are created on first use.
func NewMySQLStore[T any](dsn string) (*MySQLStore[T], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore[T]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (m *MySQLStore[T]) createTables(ctx context.Context) error {
	sessions := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id VARCHAR(255) PRIMARY KEY,
			proband_id VARCHAR(255) NOT NULL,
			test_name VARCHAR(255) NOT NULL,
			resumed TINYINT(1) NOT NULL DEFAULT 0,
			aborted TINYINT(1) NOT NULL DEFAULT 0,
			started TIMESTAMP NULL,
			finished TIMESTAMP NULL,
			trials JSON NOT NULL,
			summary JSON,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.ExecContext(ctx, sessions); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	trials := `
		CREATE TABLE IF NOT EXISTS session_trials (
			session_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			trial JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq)
		)
	`
	if _, err := m.db.ExecContext(ctx, trials); err != nil {
		return fmt.Errorf("failed to create session_trials table: %w", err)
	}
	return nil
}

// SaveTrial upserts one resolved trial keyed by (sessionID, seq).
func (m *MySQLStore[T]) SaveTrial(ctx context.Context, sessionID string, seq int, trial T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(trial)
	if err != nil {
		return fmt.Errorf("failed to marshal trial: %w", err)
	}

	query := `
		INSERT INTO session_trials (session_id, seq, trial)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE trial = VALUES(trial)
	`
	if _, err := m.db.ExecContext(ctx, query, sessionID, seq, string(data)); err != nil {
		return fmt.Errorf("failed to save trial: %w", err)
	}
	return nil
}

// SaveSession upserts a full session snapshot.
func (m *MySQLStore[T]) SaveSession(ctx context.Context, snap Snapshot[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}

	trialsJSON, err := json.Marshal(snap.Trials)
	if err != nil {
		return fmt.Errorf("failed to marshal trials: %w", err)
	}
	var summaryJSON any
	if snap.Summary != nil {
		data, err := json.Marshal(snap.Summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		summaryJSON = string(data)
	}

	query := `
		INSERT INTO sessions
			(session_id, proband_id, test_name, resumed, aborted, started, finished, trials, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			proband_id = VALUES(proband_id),
			test_name = VALUES(test_name),
			resumed = VALUES(resumed),
			aborted = VALUES(aborted),
			started = VALUES(started),
			finished = VALUES(finished),
			trials = VALUES(trials),
			summary = VALUES(summary)
	`
	_, err = m.db.ExecContext(ctx, query,
		snap.SessionID, snap.ProbandID, snap.TestName,
		snap.Resumed, snap.Aborted,
		nullableTime(snap.Started), nullableTime(snap.Finished),
		string(trialsJSON), summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves the latest snapshot for a session.
func (m *MySQLStore[T]) LoadSession(ctx context.Context, sessionID string) (Snapshot[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero Snapshot[T]
	if m.closed {
		return zero, fmt.Errorf("store is closed")
	}

	query := `
		SELECT session_id, proband_id, test_name, resumed, aborted, started, finished, trials, summary
		FROM sessions WHERE session_id = ?
	`
	row := m.db.QueryRowContext(ctx, query, sessionID)

	var snap Snapshot[T]
	var started, finished sql.NullTime
	var trialsJSON string
	var summaryJSON sql.NullString
	err := row.Scan(&snap.SessionID, &snap.ProbandID, &snap.TestName,
		&snap.Resumed, &snap.Aborted, &started, &finished, &trialsJSON, &summaryJSON)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load session: %w", err)
	}

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
func (m *MySQLStore[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
