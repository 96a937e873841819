package session

// Presenter is the presentation-layer collaborator. The engine calls it
// to render session content; the presenter reports back by calling the
// engine's entry points (ContinueBlock, Respond, Abort).
//
// The engine never touches pixels, widgets or audio; a presenter that
// drives a GUI, a terminal, or nothing at all are all valid.
//
// Callbacks are invoked without engine locks held, so a presenter may
// call back into the engine synchronously (a headless presenter
// typically answers ShowTrial with an immediate Respond).
type Presenter interface {
	// ShowBlock renders block-level content for the first trial of a new
	// block. The engine stays in the block-start state until
	// ContinueBlock is called; silent blocks bypass this entirely.
	ShowBlock(rec *TrialRecord)

	// ShowCountdown reports a pre-trial countdown tick with the number
	// of steps remaining. Input is ignored while the countdown runs.
	ShowCountdown(remaining int)

	// ShowTrial renders the trial and begins accepting a response.
	ShowTrial(rec *TrialRecord)

	// SessionEnded hands control back after the session finishes. The
	// summary is nil when the session was aborted.
	SessionEnded(summary Summary)
}

// NullPresenter discards all presentation callbacks. Headless sessions
// pair it with WithSilentBlocks so block starts need no acknowledgement.
type NullPresenter struct{}

func (NullPresenter) ShowBlock(*TrialRecord) {}
func (NullPresenter) ShowCountdown(int)      {}
func (NullPresenter) ShowTrial(*TrialRecord) {}
func (NullPresenter) SessionEnded(Summary)   {}

