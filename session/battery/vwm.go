package battery

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/dshills/cogtest-go/session"
)

// Verbal working memory: digit span forward, digit span backward, and
// letter-number sequencing. The experimenter reads each sequence aloud
// and judges the proband's spoken answer, so trials carry the sequence
// and its expected answer in the payload and the frontend reports
// correct or incorrect.
//
// Sequence length starts at two and grows by one after every group of
// same-length sequences. A block ends early once the proband misses an
// entire length group: two misses for the span blocks, three for
// letter-number sequencing. The short third block is practice and never
// terminates early.

func init() {
	register(VerbalWorkingMemory())
}

// VerbalWorkingMemory returns the verbal working memory test plan.
func VerbalWorkingMemory() session.TestPlan {
	return session.TestPlan{
		Name:         "verbalworkingmemory",
		MakeTrials:   vwmTrials,
		StoppingRule: vwmStoppingRule,
		Summarize:    vwmSummarize,
	}
}

const (
	vwmSpanMin    = 2
	vwmSpanMax    = 9
	vwmLNSMax     = 8
	vwmSpanGroup  = 2
	vwmLNSGroup   = 3
	vwmStimSeed   = 489
	vwmLNSLetters = "bcdfghjkm"
)

func vwmTrials(_ session.SessionConfig) ([]session.TrialSpec, error) {
	rng := rand.New(rand.NewSource(vwmStimSeed))
	var specs []session.TrialSpec

	add := func(block, trial int, blockType string, practice bool, seq string) {
		specs = append(specs, session.TrialSpec{
			BlockNumber: block,
			TrialNumber: trial,
			BlockType:   blockType,
			Practice:    practice,
			Payload: map[string]any{
				"sequence": seq,
				"answer":   vwmAnswer(blockType, seq),
				"length":   len(seq),
			},
		})
	}

	trial := 0
	for length := vwmSpanMin; length <= vwmSpanMax; length++ {
		for i := 0; i < vwmSpanGroup; i++ {
			add(0, trial, "forward", false, vwmDigits(rng, length))
			trial++
		}
	}
	trial = 0
	for length := vwmSpanMin; length <= vwmSpanMax; length++ {
		for i := 0; i < vwmSpanGroup; i++ {
			add(1, trial, "backward", false, vwmDigits(rng, length))
			trial++
		}
	}
	for i := 0; i < vwmLNSGroup; i++ {
		add(2, i, "lns_prac", true, vwmMixed(rng, vwmSpanMin))
	}
	trial = 0
	for length := vwmSpanMin; length <= vwmLNSMax; length++ {
		for i := 0; i < vwmLNSGroup; i++ {
			add(3, trial, "lns", false, vwmMixed(rng, length))
			trial++
		}
	}
	return specs, nil
}

// vwmDigits draws a digit sequence without repeats.
func vwmDigits(rng *rand.Rand, length int) string {
	digits := []byte("123456789")
	rng.Shuffle(len(digits), func(i, j int) { digits[i], digits[j] = digits[j], digits[i] })
	return string(digits[:length])
}

// vwmMixed draws an alternating digit/letter sequence for
// letter-number sequencing, digits first on even positions.
func vwmMixed(rng *rand.Rand, length int) string {
	digits := []byte("123456789")
	letters := []byte(vwmLNSLetters)
	rng.Shuffle(len(digits), func(i, j int) { digits[i], digits[j] = digits[j], digits[i] })
	rng.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
	seq := make([]byte, 0, length)
	for i := 0; i < length; i++ {
		if i%2 == 0 {
			seq = append(seq, digits[i/2])
		} else {
			seq = append(seq, letters[i/2])
		}
	}
	return string(seq)
}

// vwmAnswer computes the expected response: the sequence itself for
// forward span, reversed for backward span, and digits sorted then
// letters sorted for letter-number sequencing.
func vwmAnswer(blockType, seq string) string {
	switch blockType {
	case "forward":
		return seq
	case "backward":
		rev := []byte(seq)
		for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
			rev[i], rev[j] = rev[j], rev[i]
		}
		return string(rev)
	default:
		var digits, letters []string
		for _, c := range seq {
			if c >= '0' && c <= '9' {
				digits = append(digits, string(c))
			} else {
				letters = append(letters, string(c))
			}
		}
		sort.Strings(digits)
		sort.Strings(letters)
		return strings.Join(append(digits, letters...), "")
	}
}

// vwmStoppingRule terminates a block once every sequence of the current
// length was answered incorrectly. Practice trials never trigger it.
func vwmStoppingRule(completed []*session.TrialRecord) bool {
	if len(completed) == 0 {
		return false
	}
	last := completed[len(completed)-1]
	if last.Spec.Practice || last.Status != session.StatusCompleted {
		return false
	}
	need := vwmSpanGroup
	if last.Spec.BlockType == "lns" {
		need = vwmLNSGroup
	}
	length := payloadLength(last)
	var evaluated, errs int
	for _, t := range completed {
		if t.Spec.BlockNumber != last.Spec.BlockNumber || payloadLength(t) != length {
			continue
		}
		if t.Status != session.StatusCompleted {
			continue
		}
		evaluated++
		if t.Correct == session.AnswerIncorrect {
			errs++
		}
	}
	return evaluated >= need && errs == need
}

func payloadLength(t *session.TrialRecord) int {
	if n, ok := t.Spec.Payload["length"].(int); ok {
		return n
	}
	return -1
}

// vwmSummarize reports the overall time taken plus a full summary per
// scored block type, each prefixed with the block type name.
func vwmSummarize(trials []*session.TrialRecord, opts session.SummaryOptions) session.Summary {
	base := session.BasicSummary(trials, opts)
	if done, ok := base["completed"].(bool); ok && !done {
		return base
	}
	out := session.Summary{"completed": true}
	if v, ok := base["time_taken"]; ok {
		out["time_taken"] = v
	}
	for _, blockType := range []string{"forward", "backward", "lns"} {
		var sub []*session.TrialRecord
		for _, t := range trials {
			if t.Spec.BlockType == blockType {
				sub = append(sub, t)
			}
		}
		subSummary := session.BasicSummary(sub, session.SummaryOptions{
			Resumed:         opts.Resumed,
			AdjustTimeTaken: opts.AdjustTimeTaken,
			BlockMaxTime:    opts.BlockMaxTime,
		})
		for key, val := range subSummary {
			out[fmt.Sprintf("%s_%s", blockType, key)] = val
		}
	}
	return out
}
