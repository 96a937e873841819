package session

// StoppingRule decides, after each resolved trial, whether the remainder
// of the current block should be skipped.
//
// Rules receive the ordered history of resolved trials; the most recently
// resolved trial is the last element. A rule must be deterministic given
// the same history, must return false when the history is too short to
// judge, and should return false for practice trials (the helpers in this
// package do; test-specific rules may differ).
type StoppingRule func(completed []*TrialRecord) bool

// Never is the default stopping rule: blocks always run to their end.
func Never(completed []*TrialRecord) bool { return false }

// ConsecutiveFailures returns a rule that ends the block after n
// incorrect responses in a row within the current block. Practice trials
// never trigger it, and skipped trials break the run of failures.
func ConsecutiveFailures(n int) StoppingRule {
	return func(completed []*TrialRecord) bool {
		if n <= 0 || len(completed) == 0 {
			return false
		}
		last := completed[len(completed)-1]
		if last.Spec.Practice {
			return false
		}
		failures := 0
		for i := len(completed) - 1; i >= 0; i-- {
			rec := completed[i]
			if rec.Spec.BlockNumber != last.Spec.BlockNumber {
				break
			}
			if rec.Skipped || rec.Correct != AnswerIncorrect {
				break
			}
			failures++
			if failures >= n {
				return true
			}
		}
		return false
	}
}
