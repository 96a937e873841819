// Package session provides the trial/block execution engine for cogtest-go.
package session

import (
	"fmt"
	"time"
)

// TrialSpec describes a single trial before it has been run.
//
// Specs are produced once by a test-specific generator and never change.
// The engine only interprets the grouping fields (BlockNumber, BlockType,
// Practice, TrialNumber); everything the test itself needs at presentation
// time travels in Payload and is passed through untouched.
type TrialSpec struct {
	// BlockNumber groups trials into contiguous blocks. Must be >= 0 and
	// non-decreasing across the generated sequence.
	BlockNumber int `json:"block_number"`

	// TrialNumber is the position of this trial within its block, >= 0.
	TrialNumber int `json:"trial_number"`

	// BlockType is a test-specific label for the block
	// (e.g. "practice", "test", "forward", "backward").
	BlockType string `json:"block_type"`

	// Practice marks trials that never count toward summaries and are
	// exempt from stopping rules.
	Practice bool `json:"practice"`

	// Payload carries test-specific content (stimulus, position, glyph,
	// sequence, correct answer). Opaque to the engine.
	Payload map[string]any `json:"payload,omitempty"`
}

// Status is the lifecycle state of a TrialRecord.
//
// Transitions: StatusPending -> StatusInProgress -> one of
// StatusCompleted, StatusSkipped, StatusAborted. Terminal statuses never
// revert, and a finalized record is never mutated again.
type Status int

const (
	// StatusPending means the trial has not been reached yet.
	StatusPending Status = iota

	// StatusInProgress means the trial was handed out by the procedure
	// and is awaiting an outcome.
	StatusInProgress

	// StatusCompleted means a response was recorded for the trial.
	StatusCompleted

	// StatusSkipped means the trial was skipped by a stopping rule or a
	// timeout.
	StatusSkipped

	// StatusAborted means the session ended before the trial ran.
	StatusAborted
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status is one of the final states.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusAborted
}

// Answer is the tri-state correctness judgment for a trial.
//
// AnswerNone is the zero value and means no judgment was recorded, which
// is distinct from an incorrect response.
type Answer int

const (
	// AnswerNone means no correctness judgment applies or was recorded.
	AnswerNone Answer = iota

	// AnswerCorrect means the response was judged correct.
	AnswerCorrect

	// AnswerIncorrect means the response was judged incorrect.
	AnswerIncorrect
)

// String returns the lowercase name of the answer.
func (a Answer) String() string {
	switch a {
	case AnswerNone:
		return "none"
	case AnswerCorrect:
		return "correct"
	case AnswerIncorrect:
		return "incorrect"
	default:
		return fmt.Sprintf("answer(%d)", int(a))
	}
}

// TrialRecord wraps a TrialSpec with its outcome.
//
// Records are owned exclusively by the Procedure that created them and are
// mutated only through the procedure's operations and the engine's
// response handling. Once Status is terminal the outcome fields are
// frozen.
type TrialRecord struct {
	// Spec is the immutable trial description.
	Spec TrialSpec `json:"spec"`

	// Status is the record's lifecycle state.
	Status Status `json:"status"`

	// Correct is the tri-state correctness judgment.
	Correct Answer `json:"correct"`

	// Skipped is true when the trial was ended by a stopping rule or a
	// timeout rather than a response.
	Skipped bool `json:"skipped"`

	// RT is the response latency. Zero for trials skipped in bulk; the
	// configured timeout duration for trials ended by the trial timer.
	RT time.Duration `json:"rt"`

	// TimeElapsed is the cumulative block time when the trial ended.
	TimeElapsed time.Duration `json:"time_elapsed"`

	// ResumedHere marks the first trial of a resumed run so time-taken
	// calculations can account for the gap.
	ResumedHere bool `json:"resumed_here,omitempty"`

	// Derived from position in the trial sequence, recomputed whenever a
	// procedure is built. Not persisted.
	firstInBlock bool
	firstInTest  bool
}

// FirstInBlock reports whether this is the first trial of its block.
func (r *TrialRecord) FirstInBlock() bool { return r.firstInBlock }

// FirstInTest reports whether this is the very first trial of the test.
func (r *TrialRecord) FirstInTest() bool { return r.firstInTest }

// finalize moves the record into a terminal status. Records that are
// already terminal are left untouched.
func (r *TrialRecord) finalize(s Status) {
	if r.Status.Terminal() {
		return
	}
	r.Status = s
	if s == StatusSkipped {
		r.Skipped = true
	}
}

// ValidateSpecs checks the invariants the engine relies on: a non-empty
// sequence, non-negative block and trial numbers, a block type on every
// spec, and block numbers that never decrease. A violation is a
// programming error in the generator and is surfaced immediately.
func ValidateSpecs(specs []TrialSpec) error {
	if len(specs) == 0 {
		return &EngineError{Message: "trial generator produced no trials", Code: "EMPTY_SEQUENCE"}
	}
	prev := -1
	for i, s := range specs {
		if s.BlockNumber < 0 || s.TrialNumber < 0 {
			return &EngineError{
				Message: fmt.Sprintf("trial %d has negative block or trial number", i),
				Code:    "MALFORMED_SPEC",
			}
		}
		if s.BlockType == "" {
			return &EngineError{
				Message: fmt.Sprintf("trial %d is missing a block type", i),
				Code:    "MALFORMED_SPEC",
			}
		}
		if s.BlockNumber < prev {
			return &EngineError{
				Message: fmt.Sprintf("trial %d jumps back to block %d", i, s.BlockNumber),
				Code:    "MALFORMED_SPEC",
			}
		}
		prev = s.BlockNumber
	}
	return nil
}
