package session

import "time"

// Summary is the scalar result mapping computed once at session end and
// handed to the persistence collaborator.
type Summary map[string]any

// Summarizer computes a summary from the resolved trials of a session.
// Tests supply their own; BasicSummary is the default.
type Summarizer func(trials []*TrialRecord, opts SummaryOptions) Summary

// SummaryOptions carries the session facts a summary computation needs
// beyond the trial records themselves.
type SummaryOptions struct {
	// Resumed is true when the session was restarted from persisted
	// records; time-taken then accumulates across the gap.
	Resumed bool

	// AllSkipped short-circuits the computation: a session where every
	// trial was skipped has no meaningful summary.
	AllSkipped bool

	// AdjustTimeTaken enables the estimated time-taken when some trials
	// were skipped. Without it, time_taken is omitted in that case.
	AdjustTimeTaken bool

	// BlockMaxTime is the configured block timeout, used only by the
	// adjusted estimate.
	BlockMaxTime time.Duration
}

// BasicSummary returns the standard summary statistics.
//
// Practice trials are excluded from every count. The time_taken field is
// computed four ways:
//
//   - no skips, not resumed: the last trial's cumulative block time.
//   - no skips, resumed: the last trial's cumulative time plus the
//     cumulative time of the trial preceding each resume point.
//   - skips present, no adjustment requested: time_taken is omitted.
//     A partial block makes the raw clock meaningless, so the missing
//     field is the defined output, not an error.
//   - skips present, adjustment requested: the block timeout plus the
//     mean response latency for each skipped trial.
func BasicSummary(trials []*TrialRecord, opts SummaryOptions) Summary {
	if opts.AllSkipped {
		return Summary{"completed": false}
	}

	skipped := 0
	for _, t := range trials {
		if t.Skipped {
			skipped++
		}
	}
	anySkipped := skipped > 0

	scored := make([]*TrialRecord, 0, len(trials))
	for _, t := range trials {
		if !t.Spec.Practice {
			scored = append(scored, t)
		}
	}
	if len(scored) == 0 {
		return Summary{"completed": false}
	}

	responded := make([]*TrialRecord, 0, len(scored))
	for _, t := range scored {
		if !t.Skipped {
			responded = append(responded, t)
		}
	}

	dic := Summary{
		"completed":   true,
		"responses":   len(responded),
		"any_skipped": anySkipped,
	}

	switch {
	case !anySkipped && !opts.Resumed:
		dic["time_taken"] = scored[len(scored)-1].TimeElapsed

	case !anySkipped && opts.Resumed:
		total := scored[len(scored)-1].TimeElapsed
		for i, t := range scored {
			if t.ResumedHere && i > 0 {
				total += scored[i-1].TimeElapsed
			}
		}
		dic["time_taken"] = total

	case anySkipped && opts.AdjustTimeTaken && len(responded) > 0:
		var sum time.Duration
		for _, t := range responded {
			sum += t.RT
		}
		mean := sum / time.Duration(len(responded))
		dic["time_taken"] = opts.BlockMaxTime + mean*time.Duration(skipped)
	}

	judged := false
	for _, t := range scored {
		if t.Correct != AnswerNone {
			judged = true
			break
		}
	}
	if judged && len(responded) > 0 {
		correct := 0
		for _, t := range responded {
			if t.Correct == AnswerCorrect {
				correct++
			}
		}
		dic["correct"] = correct
		dic["accuracy"] = float64(correct) / float64(len(responded))
	}

	return dic
}
