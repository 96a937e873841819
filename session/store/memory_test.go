package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testTrial struct {
	Block   int    `json:"block"`
	Trial   int    `json:"trial"`
	Outcome string `json:"outcome"`
}

func testSnapshot(sessionID string) Snapshot[testTrial] {
	return Snapshot[testTrial]{
		SessionID: sessionID,
		ProbandID: "p1",
		TestName:  "trails",
		Started:   time.Unix(1000, 0).UTC(),
		Trials: []testTrial{
			{Block: 0, Trial: 0, Outcome: "completed"},
			{Block: 0, Trial: 1, Outcome: "skipped"},
		},
		Summary: map[string]any{"completed": true},
	}
}

func TestMemStore_SaveAndLoad(t *testing.T) {
	st := NewMemStore[testTrial]()
	ctx := context.Background()

	if err := st.SaveSession(ctx, testSnapshot("s1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	snap, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if snap.ProbandID != "p1" || snap.TestName != "trails" {
		t.Errorf("loaded snapshot mismatch: %+v", snap)
	}
	if len(snap.Trials) != 2 || snap.Trials[1].Outcome != "skipped" {
		t.Errorf("trials mismatch: %+v", snap.Trials)
	}
}

func TestMemStore_LoadMissing(t *testing.T) {
	st := NewMemStore[testTrial]()
	_, err := st.LoadSession(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemStore_SaveOverwrites(t *testing.T) {
	st := NewMemStore[testTrial]()
	ctx := context.Background()

	first := testSnapshot("s1")
	if err := st.SaveSession(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := testSnapshot("s1")
	second.Aborted = true
	if err := st.SaveSession(ctx, second); err != nil {
		t.Fatal(err)
	}

	snap, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Aborted {
		t.Error("second save did not overwrite the first")
	}
}

func TestMemStore_SnapshotIsolation(t *testing.T) {
	st := NewMemStore[testTrial]()
	ctx := context.Background()

	snap := testSnapshot("s1")
	if err := st.SaveSession(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.Trials[0].Outcome = "mutated"

	loaded, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Trials[0].Outcome != "completed" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestMemStore_SaveTrial(t *testing.T) {
	st := NewMemStore[testTrial]()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		trial := testTrial{Block: 0, Trial: i, Outcome: "completed"}
		if err := st.SaveTrial(ctx, "s1", i, trial); err != nil {
			t.Fatalf("SaveTrial %d failed: %v", i, err)
		}
	}
	if got := st.TrialCount("s1"); got != 3 {
		t.Errorf("TrialCount = %d, want 3", got)
	}

	// Re-saving the same seq is idempotent.
	if err := st.SaveTrial(ctx, "s1", 1, testTrial{Trial: 1}); err != nil {
		t.Fatal(err)
	}
	if got := st.TrialCount("s1"); got != 3 {
		t.Errorf("TrialCount after re-save = %d, want 3", got)
	}
}
