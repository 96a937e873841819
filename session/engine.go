package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cogtest-go/session/emit"
	"github.com/dshills/cogtest-go/session/store"
)

// TestPlan supplies the test-specific capabilities the engine invokes.
//
// Each battery test provides a small set of pure functions instead of
// subclassing anything: a trial generator, an optional stopping rule and
// an optional summarizer. Missing required capabilities are programming
// errors surfaced at construction, never retried.
type TestPlan struct {
	// Name identifies the test in persistence and observability output.
	Name string

	// MakeTrials produces the ordered trial sequence for a session.
	// Required.
	MakeTrials func(cfg SessionConfig) ([]TrialSpec, error)

	// StoppingRule is evaluated after every resolved trial. Nil means
	// blocks always run to completion.
	StoppingRule StoppingRule

	// Summarize computes the session summary. Nil means BasicSummary.
	Summarize Summarizer
}

// State identifies where the engine is in its lifecycle.
//
// Transitions: StateAwaitingStart -> StateBlockStart -> StateTrialStart
// -> StateAwaitingResponse -> (StateTrialStart | StateBlockStart |
// StateSessionEnd), with StatePaused entered for countdowns and stimulus
// playback, and StateAborted reachable from anywhere.
type State int

const (
	// StateAwaitingStart is the initial state before Begin.
	StateAwaitingStart State = iota

	// StateBlockStart means block-level content is being presented and
	// the engine is waiting for ContinueBlock.
	StateBlockStart

	// StateTrialStart is the transient state while a trial is being
	// prepared.
	StateTrialStart

	// StateAwaitingResponse means a trial is on screen and the engine
	// accepts Respond calls.
	StateAwaitingResponse

	// StatePaused is a deliberate suspension (countdown, stimulus
	// playback). Responses are ignored; abort still works.
	StatePaused

	// StateSessionEnd is the terminal state of a completed session.
	StateSessionEnd

	// StateAborted is the terminal state of a session ended early.
	StateAborted
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateBlockStart:
		return "block_start"
	case StateTrialStart:
		return "trial_start"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StatePaused:
		return "paused"
	case StateSessionEnd:
		return "session_end"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Response is what the presentation layer reports when the proband
// answers a trial. The presentation layer judges correctness; the engine
// only records it.
type Response struct {
	// Correct is the correctness judgment, AnswerNone when the trial has
	// no notion of correctness.
	Correct Answer
}

// Engine drives a session: it advances through the procedure's trials,
// enforces block and trial timeouts, applies the stopping rule, records
// per-trial timing and outcome data, and persists at checkpoints.
//
// The engine processes at most one transition at a time. A response or
// timeout arriving while a transition is in flight, or in any state that
// does not expect it, is absorbed as a no-op by state checks rather than
// escalated. Presenter callbacks run without the engine lock held, so a
// presenter may call back synchronously.
//
// Example:
//
//	st := store.NewMemStore[session.TrialRecord]()
//	plan := battery.Trails()
//	engine, err := session.New(cfg, plan.Plan(), st, emit.NewLogEmitter(os.Stderr, false),
//	    session.WithSilentBlocks(true),
//	    session.WithTrialTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = engine.Begin(ctx)
type Engine struct {
	mu sync.Mutex

	cfg     SessionConfig
	plan    TestPlan
	store   store.Store[TrialRecord]
	emitter emit.Emitter
	opts    engineConfig

	clock    Clock
	timeouts *timeoutManager

	ctx   context.Context
	state State
	begun bool
	proc  *Procedure

	started    time.Time
	blockStart time.Time
	trialStart time.Time

	countdownLeft int
	pauseGen      uint64
	savedTrials   int
	summary       Summary

	// pending holds presenter notifications queued during a transition,
	// run after the lock is released.
	pending []func()
}

// New creates an engine for one session of the given test.
//
// The session configuration is passed down explicitly; the engine never
// reaches into any surrounding context for shared settings. A missing
// trial generator or store is a programming error and fails construction
// immediately.
func New(cfg SessionConfig, plan TestPlan, st store.Store[TrialRecord], emitter emit.Emitter, opts ...Option) (*Engine, error) {
	if plan.MakeTrials == nil {
		return nil, &EngineError{Message: "test plan has no trial generator", Code: "MISSING_GENERATOR"}
	}
	if plan.Name == "" {
		return nil, &EngineError{Message: "test plan has no name", Code: "MISSING_NAME"}
	}
	if st == nil {
		return nil, &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	config := defaultEngineConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	if cfg.Autobackup {
		config.saveEachTrial = true
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	return &Engine{
		cfg:      cfg,
		plan:     plan,
		store:    st,
		emitter:  emitter,
		opts:     config,
		clock:    config.clock,
		timeouts: newTimeoutManager(config.clock),
		state:    StateAwaitingStart,
	}, nil
}

// SessionID returns the identifier the session is persisted under.
func (e *Engine) SessionID() string { return e.cfg.SessionID }

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentTrial returns the trial currently being run, or nil.
func (e *Engine) CurrentTrial() *TrialRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	return e.proc.CurrentTrial()
}

// Result returns the final summary, nil until the session has ended
// normally.
func (e *Engine) Result() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Begin starts the session. It builds the procedure (or rebuilds it from
// the persisted partial record set when resuming) and advances to the
// first trial. Begin must be called exactly once; a second call returns
// ErrAlreadyStarted.
func (e *Engine) Begin(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.begun {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	if e.state == StateAborted {
		e.mu.Unlock()
		return ErrAborted
	}
	e.begun = true
	e.ctx = ctx

	specs, err := e.plan.MakeTrials(e.cfg)
	if err != nil {
		e.state = StateAborted
		e.mu.Unlock()
		return &EngineError{Message: "trial generator failed: " + err.Error(), Code: "GENERATOR_FAILED"}
	}

	proc, err := e.buildProcedure(ctx, specs)
	if err != nil {
		e.state = StateAborted
		e.mu.Unlock()
		return err
	}
	e.proc = proc
	e.started = e.clock.Now()
	// A mid-block resume skips blockStartLocked, so the block clock
	// starts here. A fresh start overwrites it at the first block.
	e.blockStart = e.started
	e.metrics().sessionStarted()
	e.emitLocked(-1, -1, "session_start", map[string]interface{}{
		"resumed": proc.Resumed(),
		"trials":  proc.Len(),
	})

	e.stepLocked()
	e.mu.Unlock()
	e.drain()
	return nil
}

// buildProcedure constructs a fresh procedure, or resumes from the
// persisted snapshot when the configuration asks for it. A resume
// request with nothing persisted yet falls back to a fresh start.
func (e *Engine) buildProcedure(ctx context.Context, specs []TrialSpec) (*Procedure, error) {
	if e.cfg.Resume {
		snap, err := e.store.LoadSession(ctx, e.cfg.SessionID)
		switch {
		case err == nil:
			proc, rerr := ResumeProcedure(specs, resumablePrefix(snap.Trials))
			if rerr != nil {
				return nil, rerr
			}
			return proc, nil
		case errors.Is(err, store.ErrNotFound):
			// nothing saved yet, start fresh
		default:
			return nil, &EngineError{Message: "failed to load session: " + err.Error(), Code: "LOAD_FAILED"}
		}
	}
	return NewProcedure(specs)
}

// resumablePrefix extracts the leading completed/skipped records from a
// persisted snapshot. Aborted or pending remainders are re-run.
func resumablePrefix(trials []TrialRecord) []TrialRecord {
	out := make([]TrialRecord, 0, len(trials))
	for _, t := range trials {
		if t.Status != StatusCompleted && t.Status != StatusSkipped {
			break
		}
		out = append(out, t)
	}
	return out
}

// Respond reports a completed response for the current trial. Calls
// arriving in any other state (before the trial is on screen, during a
// pause, after session end) are ignored, not errors.
func (e *Engine) Respond(resp Response) error {
	e.mu.Lock()
	if !e.begun {
		e.mu.Unlock()
		return ErrNotStarted
	}
	if e.state != StateAwaitingResponse {
		e.emitLocked(e.currentBlock(), e.currentTrialNum(), "response_ignored", map[string]interface{}{
			"state": e.state.String(),
		})
		e.mu.Unlock()
		e.drain()
		return nil
	}

	rec := e.proc.CurrentTrial()
	now := e.clock.Now()
	rec.Correct = resp.Correct
	rec.RT = now.Sub(e.trialStart)
	rec.TimeElapsed = now.Sub(e.blockStart)
	rec.finalize(StatusCompleted)
	e.timeouts.stop(timerTrial)

	e.metrics().trialResolved(e.plan.Name, StatusCompleted)
	e.metrics().observeRT(rec.RT)
	e.emitLocked(rec.Spec.BlockNumber, rec.Spec.TrialNumber, "trial_completed", map[string]interface{}{
		"rt_ms":   rec.RT.Milliseconds(),
		"correct": rec.Correct.String(),
	})

	e.afterTrialLocked()
	e.mu.Unlock()
	e.drain()
	return nil
}

// ContinueBlock acknowledges block-level presentation and proceeds to
// the block's first trial. Valid only in the block-start state; calls in
// any other state are ignored.
func (e *Engine) ContinueBlock() error {
	e.mu.Lock()
	if !e.begun {
		e.mu.Unlock()
		return ErrNotStarted
	}
	if e.state != StateBlockStart {
		e.mu.Unlock()
		return nil
	}
	e.trialStartLocked(e.proc.CurrentTrial(), false)
	e.mu.Unlock()
	e.drain()
	return nil
}

// Pause suspends response handling for d, e.g. while a stimulus plays.
// Responses arriving during the pause are dropped; timers keep running
// and Abort still works. Valid only while a trial awaits its response.
func (e *Engine) Pause(d time.Duration) error {
	e.mu.Lock()
	if !e.begun {
		e.mu.Unlock()
		return ErrNotStarted
	}
	if e.state != StateAwaitingResponse {
		e.mu.Unlock()
		return nil
	}
	e.state = StatePaused
	e.pauseGen++
	gen := e.pauseGen
	e.emitLocked(e.currentBlock(), e.currentTrialNum(), "pause", map[string]interface{}{
		"duration_ms": d.Milliseconds(),
	})
	e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		if e.state == StatePaused && e.pauseGen == gen {
			e.state = StateAwaitingResponse
			e.emitLocked(e.currentBlock(), e.currentTrialNum(), "pause_end", nil)
		}
		e.mu.Unlock()
		e.drain()
	})
	e.mu.Unlock()
	e.drain()
	return nil
}

// Abort ends the session immediately from any state: both timers are
// stopped, every unresolved trial is marked aborted, and the partial
// record set is persisted before control is released. Aborting a session
// that already ended is a no-op.
func (e *Engine) Abort(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.state == StateSessionEnd || e.state == StateAborted {
		e.mu.Unlock()
		return nil
	}
	e.pauseGen++
	e.timeouts.stopAll()
	e.state = StateAborted
	if e.proc != nil {
		e.proc.Abort()
	}
	if e.begun {
		e.metrics().sessionEnded()
	}
	e.emitLocked(-1, -1, "session_abort", nil)
	if e.proc != nil {
		e.saveSessionLocked(ctx, true)
	}
	e.enqueue(func() { e.opts.presenter.SessionEnded(nil) })
	e.mu.Unlock()
	e.drain()
	return nil
}

// stepLocked is the central transition: pull the next trial from the
// procedure and route to block start, trial start, or session end.
// Stepping a finished session is a no-op.
func (e *Engine) stepLocked() {
	if e.state == StateSessionEnd || e.state == StateAborted {
		return
	}
	rec, err := e.proc.Next()
	if err != nil {
		// ErrExhausted: the normal termination signal.
		e.finishLocked()
		return
	}
	if rec.FirstInBlock() {
		e.blockStartLocked(rec)
	} else {
		e.trialStartLocked(rec, false)
	}
}

// blockStartLocked begins a new block: the trial timer is stopped, the
// block clock restarts, and block-level content is presented unless the
// session runs silent blocks.
func (e *Engine) blockStartLocked(rec *TrialRecord) {
	e.state = StateBlockStart
	e.timeouts.stop(timerTrial)
	e.timeouts.stop(timerBlock)
	e.blockStart = e.clock.Now()
	e.emitLocked(rec.Spec.BlockNumber, -1, "block_start", map[string]interface{}{
		"block_type": rec.Spec.BlockType,
		"practice":   rec.Spec.Practice,
	})

	if e.opts.silentBlocks {
		e.trialStartLocked(rec, true)
		return
	}
	e.enqueue(func() { e.opts.presenter.ShowBlock(rec) })
	// Waiting for ContinueBlock.
}

// trialStartLocked prepares a trial: countdown on the first trial of a
// block unless suppressed, then arm the timers and present the trial.
func (e *Engine) trialStartLocked(rec *TrialRecord, suppressCountdown bool) {
	e.state = StateTrialStart
	e.timeouts.stop(timerTrial)

	if rec.FirstInBlock() && !suppressCountdown && !e.opts.skipCountdown && e.opts.countdownSteps > 0 {
		e.countdownLocked(rec, e.opts.countdownSteps)
		return
	}
	e.armTrialLocked(rec)
}

// countdownLocked runs the pre-trial countdown as a paused sub-state:
// one tick per interval, input ignored throughout, then the trial starts.
func (e *Engine) countdownLocked(rec *TrialRecord, steps int) {
	e.state = StatePaused
	e.countdownLeft = steps
	e.pauseGen++
	gen := e.pauseGen
	e.enqueue(func() { e.opts.presenter.ShowCountdown(steps) })
	e.clock.AfterFunc(e.opts.countdownInterval, func() { e.countdownTick(gen) })
}

func (e *Engine) countdownTick(gen uint64) {
	e.mu.Lock()
	if e.state != StatePaused || e.pauseGen != gen {
		e.mu.Unlock()
		return
	}
	e.countdownLeft--
	if e.countdownLeft <= 0 {
		e.armTrialLocked(e.proc.CurrentTrial())
		e.mu.Unlock()
		e.drain()
		return
	}
	left := e.countdownLeft
	e.enqueue(func() { e.opts.presenter.ShowCountdown(left) })
	e.clock.AfterFunc(e.opts.countdownInterval, func() { e.countdownTick(gen) })
	e.mu.Unlock()
	e.drain()
}

// armTrialLocked starts the clocks and timers for a trial and hands it
// to the presenter. On the first trial of a block the block timer starts
// here, after any countdown, so the countdown does not eat block time.
func (e *Engine) armTrialLocked(rec *TrialRecord) {
	if rec.FirstInBlock() && e.opts.blockTimeout > 0 {
		e.timeouts.start(timerBlock, e.opts.blockTimeout, e.onBlockTimeout)
	}
	e.trialStart = e.clock.Now()
	if e.opts.trialTimeout > 0 {
		e.timeouts.start(timerTrial, e.opts.trialTimeout, e.onTrialTimeout)
	}
	e.state = StateAwaitingResponse
	e.emitLocked(rec.Spec.BlockNumber, rec.Spec.TrialNumber, "trial_start", nil)
	e.enqueue(func() { e.opts.presenter.ShowTrial(rec) })
}

// afterTrialLocked runs after every resolved trial: stopping rule,
// incremental persistence, then the next step.
func (e *Engine) afterTrialLocked() {
	rule := e.plan.StoppingRule
	if rule != nil && rule(e.proc.CompletedTrials()) {
		e.proc.SkipBlock()
		e.timeouts.stop(timerBlock)
		e.metrics().blockStopped()
		e.emitLocked(e.currentBlock(), -1, "block_stopped", nil)
	}
	if e.opts.saveEachTrial {
		e.saveTrialsLocked(e.ctx)
		e.saveSessionLocked(e.ctx, false)
	}
	e.stepLocked()
}

// onTrialTimeout fires when the trial timer expires: the current trial
// is skipped with the timeout recorded as its latency and the session
// advances. A fire after the session moved on is absorbed.
func (e *Engine) onTrialTimeout() {
	e.mu.Lock()
	if e.state != StateAwaitingResponse && e.state != StatePaused {
		e.mu.Unlock()
		return
	}
	e.pauseGen++
	rec := e.proc.CurrentTrial()
	now := e.clock.Now()
	rec.RT = e.opts.trialTimeout
	rec.TimeElapsed = now.Sub(e.blockStart)
	e.proc.SkipCurrentTrial()

	e.metrics().timeoutFired(timerTrial)
	e.metrics().trialResolved(e.plan.Name, StatusSkipped)
	e.emitLocked(rec.Spec.BlockNumber, rec.Spec.TrialNumber, "trial_timeout", map[string]interface{}{
		"timeout_ms": e.opts.trialTimeout.Milliseconds(),
	})

	e.afterTrialLocked()
	e.mu.Unlock()
	e.drain()
}

// onBlockTimeout fires when the block timer expires: the rest of the
// block, current trial included, is skipped and the session advances.
func (e *Engine) onBlockTimeout() {
	e.mu.Lock()
	if e.state != StateAwaitingResponse && e.state != StatePaused {
		e.mu.Unlock()
		return
	}
	e.pauseGen++
	e.timeouts.stop(timerTrial)
	block := e.currentBlock()
	e.proc.SkipBlock()

	e.metrics().timeoutFired(timerBlock)
	e.metrics().blockStopped()
	e.emitLocked(block, -1, "block_timeout", map[string]interface{}{
		"timeout_ms": e.opts.blockTimeout.Milliseconds(),
	})

	if e.opts.saveEachTrial {
		e.saveTrialsLocked(e.ctx)
		e.saveSessionLocked(e.ctx, false)
	}
	e.stepLocked()
	e.mu.Unlock()
	e.drain()
}

// finishLocked finalizes a completed session: timers stopped, summary
// computed, snapshot persisted, control released to the presenter.
func (e *Engine) finishLocked() {
	e.state = StateSessionEnd
	e.pauseGen++
	e.timeouts.stopAll()

	summarize := e.plan.Summarize
	if summarize == nil {
		summarize = BasicSummary
	}
	summary := summarize(e.proc.CompletedTrials(), SummaryOptions{
		Resumed:         e.proc.Resumed(),
		AllSkipped:      e.proc.AllSkipped(),
		AdjustTimeTaken: e.opts.adjustTimeTaken,
		BlockMaxTime:    e.opts.blockTimeout,
	})
	if summary == nil {
		summary = Summary{}
	}
	summary["resumed"] = e.proc.Resumed()
	e.summary = summary

	e.metrics().sessionEnded()
	e.emitLocked(-1, -1, "session_end", map[string]interface{}{"summary": map[string]interface{}(summary)})
	e.saveTrialsLocked(e.ctx)
	e.saveSessionLocked(e.ctx, true)
	e.enqueue(func() { e.opts.presenter.SessionEnded(summary) })
}

// saveTrialsLocked incrementally persists newly resolved trials. A
// failing store is reported and the session continues; in-memory state
// stays authoritative.
func (e *Engine) saveTrialsLocked(ctx context.Context) {
	records := e.proc.Records()
	for i := e.savedTrials; i < len(records); i++ {
		if !records[i].Status.Terminal() {
			break
		}
		if err := e.store.SaveTrial(ctx, e.cfg.SessionID, i, *records[i]); err != nil {
			e.emitLocked(-1, -1, "save_failed", map[string]interface{}{"error": err.Error()})
			return
		}
		e.savedTrials = i + 1
	}
}

// saveSessionLocked persists the full snapshot. Safe to call repeatedly;
// identical input overwrites identically.
func (e *Engine) saveSessionLocked(ctx context.Context, final bool) {
	snap := store.Snapshot[TrialRecord]{
		SessionID: e.cfg.SessionID,
		ProbandID: e.cfg.ProbandID,
		TestName:  e.plan.Name,
		Resumed:   e.proc.Resumed(),
		Aborted:   e.state == StateAborted,
		Started:   e.started,
	}
	if final {
		snap.Finished = e.clock.Now()
	}
	for _, rec := range e.proc.Records() {
		if rec.Status.Terminal() {
			snap.Trials = append(snap.Trials, *rec)
		}
	}
	if e.summary != nil {
		snap.Summary = map[string]interface{}(e.summary)
	}
	if err := e.store.SaveSession(ctx, snap); err != nil {
		e.emitLocked(-1, -1, "save_failed", map[string]interface{}{"error": err.Error()})
	}
}

func (e *Engine) metrics() *Metrics { return e.opts.metrics }

func (e *Engine) currentBlock() int {
	if e.proc == nil {
		return -1
	}
	if rec := e.proc.CurrentTrial(); rec != nil {
		return rec.Spec.BlockNumber
	}
	return -1
}

func (e *Engine) currentTrialNum() int {
	if e.proc == nil {
		return -1
	}
	if rec := e.proc.CurrentTrial(); rec != nil {
		return rec.Spec.TrialNumber
	}
	return -1
}

func (e *Engine) emitLocked(block, trial int, msg string, meta map[string]interface{}) {
	e.emitter.Emit(emit.Event{
		SessionID: e.cfg.SessionID,
		Test:      e.plan.Name,
		Block:     block,
		Trial:     trial,
		Msg:       msg,
		Meta:      meta,
	})
}

// enqueue defers a presenter notification until the lock is released.
func (e *Engine) enqueue(f func()) {
	e.pending = append(e.pending, f)
}

// drain runs queued presenter notifications outside the lock. Presenters
// may call back into the engine from these; the resulting transitions
// queue their own notifications, which the same loop picks up.
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}
		f := e.pending[0]
		e.pending = e.pending[1:]
		e.mu.Unlock()
		f()
	}
}
