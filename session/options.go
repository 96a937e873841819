package session

import "time"

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine, err := session.New(cfg, plan, st, emitter,
//	    session.WithTrialTimeout(2*time.Second),
//	    session.WithBlockTimeout(90*time.Second),
//	    session.WithSaveEachTrial(true),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	blockTimeout      time.Duration
	trialTimeout      time.Duration
	silentBlocks      bool
	skipCountdown     bool
	countdownSteps    int
	countdownInterval time.Duration
	saveEachTrial     bool
	adjustTimeTaken   bool
	clock             Clock
	presenter         Presenter
	metrics           *Metrics
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		countdownSteps:    5,
		countdownInterval: time.Second,
		clock:             SystemClock(),
		presenter:         NullPresenter{},
	}
}

// WithBlockTimeout sets the block-level maximum duration. When it
// expires the remainder of the current block is skipped and the session
// advances. Zero (the default) disables the block timer.
func WithBlockTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Message: "block timeout cannot be negative", Code: "BAD_OPTION"}
		}
		cfg.blockTimeout = d
		return nil
	}
}

// WithTrialTimeout sets the trial-level maximum duration. When it
// expires the current trial is skipped with the timeout recorded as its
// latency and the session advances. Zero (the default) disables the
// trial timer.
func WithTrialTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return &EngineError{Message: "trial timeout cannot be negative", Code: "BAD_OPTION"}
		}
		cfg.trialTimeout = d
		return nil
	}
}

// WithSilentBlocks makes every block silent: no block-level presentation
// and no acknowledgement wait, the engine proceeds straight to the first
// trial. Silent blocks also suppress the countdown.
func WithSilentBlocks(silent bool) Option {
	return func(cfg *engineConfig) error {
		cfg.silentBlocks = silent
		return nil
	}
}

// WithSkipCountdown suppresses the countdown that normally precedes the
// first trial of each block.
func WithSkipCountdown(skip bool) Option {
	return func(cfg *engineConfig) error {
		cfg.skipCountdown = skip
		return nil
	}
}

// WithCountdown configures the pre-trial countdown: the number of ticks
// and the pause between them. The default is 5 ticks of one second.
func WithCountdown(steps int, interval time.Duration) Option {
	return func(cfg *engineConfig) error {
		if steps < 0 || interval < 0 {
			return &EngineError{Message: "countdown settings cannot be negative", Code: "BAD_OPTION"}
		}
		cfg.countdownSteps = steps
		cfg.countdownInterval = interval
		return nil
	}
}

// WithSaveEachTrial persists the session snapshot after every resolved
// trial rather than only at session end. Persistence failures are
// reported through the emitter and do not interrupt the session.
func WithSaveEachTrial(save bool) Option {
	return func(cfg *engineConfig) error {
		cfg.saveEachTrial = save
		return nil
	}
}

// WithAdjustTimeTaken enables the estimated time_taken summary field for
// sessions where trials were skipped. See BasicSummary.
func WithAdjustTimeTaken(adjust bool) Option {
	return func(cfg *engineConfig) error {
		cfg.adjustTimeTaken = adjust
		return nil
	}
}

// WithClock replaces the wall clock. Tests use this to drive timeouts
// and latency measurements from a simulated clock.
func WithClock(c Clock) Option {
	return func(cfg *engineConfig) error {
		if c == nil {
			return &EngineError{Message: "clock cannot be nil", Code: "BAD_OPTION"}
		}
		cfg.clock = c
		return nil
	}
}

// WithPresenter sets the presentation collaborator. The default is
// NullPresenter.
func WithPresenter(p Presenter) Option {
	return func(cfg *engineConfig) error {
		if p == nil {
			return &EngineError{Message: "presenter cannot be nil", Code: "BAD_OPTION"}
		}
		cfg.presenter = p
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. Nil (the default)
// disables metric recording.
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}
