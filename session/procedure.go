package session

// Procedure is a resumable cursor over an ordered sequence of trial
// records.
//
// The procedure owns the record collection exclusively. All mutation goes
// through Next, SkipBlock, SkipCurrentTrial and Abort; callers hold at
// most a transient reference to the current trial. The cursor only ever
// moves forward: either one trial at a time via Next, or in a bulk jump
// past the remainder of the current block via SkipBlock.
//
// Example:
//
//	proc, err := NewProcedure(specs)
//	for {
//	    rec, err := proc.Next()
//	    if errors.Is(err, ErrExhausted) {
//	        break // session complete
//	    }
//	    // run the trial, record the outcome on rec
//	}
type Procedure struct {
	records   []*TrialRecord
	cursor    int // index of the record most recently returned by Next, -1 before the first call
	resumed   bool
	completed bool
	aborted   bool
}

// NewProcedure builds a fresh procedure from a generated trial sequence.
// The specs are validated once here; a malformed sequence is a
// programming error in the generator.
func NewProcedure(specs []TrialSpec) (*Procedure, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return &Procedure{records: buildRecords(specs), cursor: -1}, nil
}

// ResumeProcedure rebuilds a procedure from the full trial sequence plus
// the records persisted by an interrupted session. The prior records must
// be a finalized prefix of the sequence; their outcomes are carried over,
// the cursor starts after them, and the first pending record is marked
// as the resume point.
func ResumeProcedure(specs []TrialSpec, prior []TrialRecord) (*Procedure, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	if len(prior) > len(specs) {
		return nil, &EngineError{
			Message: "persisted records outnumber the generated trials",
			Code:    "RESUME_MISMATCH",
		}
	}
	records := buildRecords(specs)
	for i, p := range prior {
		if !p.Status.Terminal() {
			return nil, &EngineError{
				Message: "persisted record is not finalized",
				Code:    "RESUME_MISMATCH",
			}
		}
		rec := records[i]
		rec.Status = p.Status
		rec.Correct = p.Correct
		rec.Skipped = p.Skipped
		rec.RT = p.RT
		rec.TimeElapsed = p.TimeElapsed
		rec.ResumedHere = p.ResumedHere
	}
	p := &Procedure{
		records: records,
		cursor:  len(prior) - 1,
		resumed: true,
	}
	if len(prior) < len(records) {
		records[len(prior)].ResumedHere = true
	}
	return p, nil
}

func buildRecords(specs []TrialSpec) []*TrialRecord {
	records := make([]*TrialRecord, len(specs))
	for i, spec := range specs {
		records[i] = &TrialRecord{
			Spec:         spec,
			firstInTest:  i == 0,
			firstInBlock: i == 0 || spec.BlockNumber != specs[i-1].BlockNumber,
		}
	}
	return records
}

// Next advances the cursor to the next pending record, marks it in
// progress and returns it. When no trials remain it returns ErrExhausted,
// which callers must treat as "session complete". After Abort it returns
// ErrAborted.
func (p *Procedure) Next() (*TrialRecord, error) {
	if p.aborted {
		return nil, ErrAborted
	}
	for i := p.cursor + 1; i < len(p.records); i++ {
		if p.records[i].Status == StatusPending {
			p.cursor = i
			p.records[i].Status = StatusInProgress
			return p.records[i], nil
		}
	}
	p.completed = true
	return nil, ErrExhausted
}

// CurrentTrial returns the record most recently returned by Next, or nil
// before the first call.
func (p *Procedure) CurrentTrial() *TrialRecord {
	if p.cursor < 0 || p.cursor >= len(p.records) {
		return nil
	}
	return p.records[p.cursor]
}

// SkipBlock marks the current trial (if still unresolved) and every
// pending trial in the same block as skipped with zero response latency,
// then jumps the cursor past them. Trials belonging to other blocks are
// never touched. Used when a stopping rule fires or the block timer
// expires.
func (p *Procedure) SkipBlock() {
	cur := p.CurrentTrial()
	if cur == nil {
		return
	}
	block := cur.Spec.BlockNumber
	for i := p.cursor; i < len(p.records); i++ {
		rec := p.records[i]
		if rec.Spec.BlockNumber != block {
			break
		}
		if !rec.Status.Terminal() {
			rec.RT = 0
			rec.finalize(StatusSkipped)
		}
		p.cursor = i
	}
}

// SkipCurrentTrial marks only the current trial as skipped. The recorded
// latency is left for the caller to set (the engine stamps the timeout
// duration on trial-timer expiry). Used on trial-timeout expiry.
func (p *Procedure) SkipCurrentTrial() {
	cur := p.CurrentTrial()
	if cur == nil {
		return
	}
	cur.finalize(StatusSkipped)
}

// Abort marks every remaining unresolved trial as aborted. The procedure
// is terminal afterwards: Next returns ErrAborted.
func (p *Procedure) Abort() {
	for _, rec := range p.records {
		if !rec.Status.Terminal() {
			rec.finalize(StatusAborted)
		}
	}
	p.aborted = true
}

// CompletedTrials returns the ordered trials that have been resolved as
// completed or skipped. The returned slice is a view for reading;
// mutation stays with the procedure.
func (p *Procedure) CompletedTrials() []*TrialRecord {
	out := make([]*TrialRecord, 0, len(p.records))
	for _, rec := range p.records {
		if rec.Status == StatusCompleted || rec.Status == StatusSkipped {
			out = append(out, rec)
		}
	}
	return out
}

// Records returns all trial records in order, including pending ones.
// Intended for persistence snapshots.
func (p *Procedure) Records() []*TrialRecord {
	out := make([]*TrialRecord, len(p.records))
	copy(out, p.records)
	return out
}

// AllSkipped reports whether every resolved trial so far was skipped.
// False when nothing has been resolved yet. Summary computation uses
// this to short-circuit meaningless results.
func (p *Procedure) AllSkipped() bool {
	resolved := 0
	for _, rec := range p.records {
		switch rec.Status {
		case StatusCompleted:
			return false
		case StatusSkipped:
			resolved++
		}
	}
	return resolved > 0
}

// Completed reports whether Next has signalled exhaustion.
func (p *Procedure) Completed() bool { return p.completed }

// Resumed reports whether the procedure was rebuilt from persisted
// records.
func (p *Procedure) Resumed() bool { return p.resumed }

// Len returns the total number of trials in the sequence.
func (p *Procedure) Len() int { return len(p.records) }
