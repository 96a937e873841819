package session

import (
	"testing"
	"time"
)

// scoredTrial builds a resolved non-practice trial.
func scoredTrial(block, trial int, correct Answer, rt, elapsed time.Duration) *TrialRecord {
	rec := &TrialRecord{
		Spec:        TrialSpec{BlockNumber: block, TrialNumber: trial, BlockType: "test"},
		Correct:     correct,
		RT:          rt,
		TimeElapsed: elapsed,
	}
	rec.finalize(StatusCompleted)
	return rec
}

func skippedTrial(block, trial int, rt, elapsed time.Duration) *TrialRecord {
	rec := &TrialRecord{
		Spec:        TrialSpec{BlockNumber: block, TrialNumber: trial, BlockType: "test"},
		RT:          rt,
		TimeElapsed: elapsed,
	}
	rec.finalize(StatusSkipped)
	return rec
}

func TestBasicSummary_AllSkipped(t *testing.T) {
	trials := []*TrialRecord{skippedTrial(0, 0, 0, 0)}
	got := BasicSummary(trials, SummaryOptions{AllSkipped: true})

	if len(got) != 1 || got["completed"] != false {
		t.Errorf("summary = %v, want only completed=false", got)
	}
}

func TestBasicSummary_PracticeExcluded(t *testing.T) {
	practice := &TrialRecord{
		Spec:    TrialSpec{BlockNumber: 0, TrialNumber: 0, BlockType: "practice", Practice: true},
		Correct: AnswerIncorrect,
	}
	practice.finalize(StatusCompleted)
	trials := []*TrialRecord{
		practice,
		scoredTrial(1, 0, AnswerCorrect, time.Second, 10*time.Second),
	}

	got := BasicSummary(trials, SummaryOptions{})
	if got["responses"] != 1 {
		t.Errorf("responses = %v, want 1 (practice excluded)", got["responses"])
	}
	if got["correct"] != 1 || got["accuracy"] != 1.0 {
		t.Errorf("correct/accuracy = %v/%v, want 1/1.0", got["correct"], got["accuracy"])
	}
}

func TestBasicSummary_TimeTaken(t *testing.T) {
	t.Run("no skips", func(t *testing.T) {
		trials := []*TrialRecord{
			scoredTrial(0, 0, AnswerCorrect, time.Second, 5*time.Second),
			scoredTrial(0, 1, AnswerCorrect, time.Second, 12*time.Second),
		}
		got := BasicSummary(trials, SummaryOptions{})
		if got["time_taken"] != 12*time.Second {
			t.Errorf("time_taken = %v, want 12s (last trial's cumulative time)", got["time_taken"])
		}
	})

	t.Run("resumed accumulates across the gap", func(t *testing.T) {
		before := scoredTrial(0, 0, AnswerCorrect, time.Second, 30*time.Second)
		after := scoredTrial(0, 1, AnswerCorrect, time.Second, 8*time.Second)
		after.ResumedHere = true
		trials := []*TrialRecord{before, after}

		got := BasicSummary(trials, SummaryOptions{Resumed: true})
		if got["time_taken"] != 38*time.Second {
			t.Errorf("time_taken = %v, want 38s (8s this run + 30s before the gap)", got["time_taken"])
		}
	})

	t.Run("skips without adjustment omit the field", func(t *testing.T) {
		trials := []*TrialRecord{
			scoredTrial(0, 0, AnswerCorrect, time.Second, 5*time.Second),
			skippedTrial(0, 1, 0, 5*time.Second),
		}
		got := BasicSummary(trials, SummaryOptions{})
		if _, present := got["time_taken"]; present {
			t.Errorf("time_taken present (%v), want omitted when skips are unadjusted", got["time_taken"])
		}
		if got["any_skipped"] != true {
			t.Error("any_skipped should be true")
		}
	})

	t.Run("skips with adjustment estimate from mean latency", func(t *testing.T) {
		trials := []*TrialRecord{
			scoredTrial(0, 0, AnswerCorrect, 2*time.Second, 2*time.Second),
			scoredTrial(0, 1, AnswerCorrect, 4*time.Second, 6*time.Second),
			skippedTrial(0, 2, 0, 6*time.Second),
			skippedTrial(0, 3, 0, 6*time.Second),
		}
		got := BasicSummary(trials, SummaryOptions{
			AdjustTimeTaken: true,
			BlockMaxTime:    4 * time.Minute,
		})
		// block timeout + mean RT (3s) per skipped trial (2)
		want := 4*time.Minute + 6*time.Second
		if got["time_taken"] != want {
			t.Errorf("time_taken = %v, want %v", got["time_taken"], want)
		}
	})
}

func TestBasicSummary_Accuracy(t *testing.T) {
	t.Run("unjudged trials produce no accuracy fields", func(t *testing.T) {
		trials := []*TrialRecord{
			scoredTrial(0, 0, AnswerNone, time.Second, time.Second),
			scoredTrial(0, 1, AnswerNone, time.Second, 2*time.Second),
		}
		got := BasicSummary(trials, SummaryOptions{})
		if _, present := got["correct"]; present {
			t.Error("correct present for a test with no correctness judgments")
		}
		if _, present := got["accuracy"]; present {
			t.Error("accuracy present for a test with no correctness judgments")
		}
	})

	t.Run("mixed outcomes", func(t *testing.T) {
		trials := []*TrialRecord{
			scoredTrial(0, 0, AnswerCorrect, time.Second, time.Second),
			scoredTrial(0, 1, AnswerIncorrect, time.Second, 2*time.Second),
			scoredTrial(0, 2, AnswerCorrect, time.Second, 3*time.Second),
			scoredTrial(0, 3, AnswerIncorrect, time.Second, 4*time.Second),
		}
		got := BasicSummary(trials, SummaryOptions{})
		if got["correct"] != 2 {
			t.Errorf("correct = %v, want 2", got["correct"])
		}
		if got["accuracy"] != 0.5 {
			t.Errorf("accuracy = %v, want 0.5", got["accuracy"])
		}
	})
}

func TestBasicSummary_NoScoredTrials(t *testing.T) {
	practice := &TrialRecord{
		Spec: TrialSpec{BlockNumber: 0, TrialNumber: 0, BlockType: "practice", Practice: true},
	}
	practice.finalize(StatusCompleted)

	got := BasicSummary([]*TrialRecord{practice}, SummaryOptions{})
	if got["completed"] != false {
		t.Errorf("summary = %v, want completed=false with nothing scored", got)
	}
}
