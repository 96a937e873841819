package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// getTestDSN returns the MySQL DSN for integration tests, or "" when no
// server is configured. Set TEST_MYSQL_DSN to run these, e.g.
// "root:secret@tcp(localhost:3306)/cogtest_test?parseTime=true".
func getTestDSN(t *testing.T) string {
	t.Helper()
	return os.Getenv("TEST_MYSQL_DSN")
}

func newTestMySQLStore(t *testing.T) *MySQLStore[testTrial] {
	t.Helper()
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("Skipping MySQL tests: TEST_MYSQL_DSN not set")
	}
	st, err := NewMySQLStore[testTrial](dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMySQLStore_SaveAndLoad(t *testing.T) {
	st := newTestMySQLStore(t)
	ctx := context.Background()
	sessionID := fmt.Sprintf("mysql-test-%d", time.Now().UnixNano())

	snap := testSnapshot(sessionID)
	if err := st.SaveSession(ctx, snap); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := st.LoadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded.ProbandID != "p1" || len(loaded.Trials) != 2 {
		t.Errorf("loaded snapshot mismatch: %+v", loaded)
	}
}

func TestMySQLStore_LoadMissing(t *testing.T) {
	st := newTestMySQLStore(t)
	_, err := st.LoadSession(context.Background(), "never-saved")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMySQLStore_SaveTrialUpsert(t *testing.T) {
	st := newTestMySQLStore(t)
	ctx := context.Background()
	sessionID := fmt.Sprintf("mysql-trial-%d", time.Now().UnixNano())

	if err := st.SaveTrial(ctx, sessionID, 0, testTrial{Trial: 0, Outcome: "completed"}); err != nil {
		t.Fatalf("SaveTrial failed: %v", err)
	}
	if err := st.SaveTrial(ctx, sessionID, 0, testTrial{Trial: 0, Outcome: "skipped"}); err != nil {
		t.Fatalf("SaveTrial upsert failed: %v", err)
	}
}
