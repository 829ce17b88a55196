package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/shared/telemetry"
)

// State is a pipeline run state. The names are persisted as presentation status.
type State string

const (
	StateIdle              State = "idle"
	StateExtracting        State = "extracting"
	StateRequestingOutline State = "requesting_outline"
	StateAwaitingUserEdit  State = "awaiting_user_edit"
	StateExpandingSlides   State = "expanding_slides"
	StateExporting         State = "exporting"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateExtracting, StateRequestingOutline, StateAwaitingUserEdit,
		StateExpandingSlides, StateExporting, StateDone, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Flow names the entry point of a run.
type Flow string

const (
	FlowPrompt   Flow = "prompt"
	FlowDocument Flow = "document"
)

// ErrInvalidTransition is returned when a run is asked to move along an edge it does not have.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

var transitions = map[State][]State{
	StateIdle:              {StateExtracting, StateRequestingOutline},
	StateExtracting:        {StateRequestingOutline},
	StateRequestingOutline: {StateAwaitingUserEdit},
	StateAwaitingUserEdit:  {StateExpandingSlides},
	StateExpandingSlides:   {StateExporting},
	StateExporting:         {StateDone},
}

// Transition is one recorded state change.
type Transition struct {
	RunID  string
	From   State
	To     State
	Reason string
	At     time.Time
}

// Run tracks one pipeline execution. It is not safe for concurrent use; each run
// belongs to a single request or job.
type Run struct {
	ID            string
	Flow          Flow
	UserID        string
	State         State
	FailureKind   deck.Kind
	FailureReason string
	History       []Transition

	// OnTransition, when set, observes every state change after it is applied.
	OnTransition func(Transition)

	now func() time.Time
}

// NewRun starts a run in Idle.
func NewRun(flow Flow, userID string) *Run {
	return &Run{
		ID:     uuid.NewString(),
		Flow:   flow,
		UserID: userID,
		State:  StateIdle,
		now:    time.Now,
	}
}

// Resume rebuilds a run that was persisted in state.
func Resume(id string, flow Flow, userID string, state State) *Run {
	return &Run{ID: id, Flow: flow, UserID: userID, State: state, now: time.Now}
}

// Advance moves the run to next, rejecting edges the state machine does not have.
func (r *Run) Advance(next State, reason string) error {
	if !r.allowed(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.apply(next, reason)
	return nil
}

func (r *Run) allowed(next State) bool {
	if r.State == StateIdle {
		switch next {
		case StateExtracting:
			return r.Flow == FlowDocument
		case StateRequestingOutline:
			return r.Flow == FlowPrompt
		}
		return false
	}
	for _, s := range transitions[r.State] {
		if s == next {
			return true
		}
	}
	return false
}

// Fail moves a non-terminal run to Failed and records the error kind.
func (r *Run) Fail(err error) {
	if r.State.Terminal() {
		return
	}
	reason := ""
	if err != nil {
		reason = err.Error()
		r.FailureKind = deck.KindOf(err)
	}
	r.FailureReason = reason
	r.apply(StateFailed, reason)
}

func (r *Run) apply(next State, reason string) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	tr := Transition{RunID: r.ID, From: r.State, To: next, Reason: reason, At: now().UTC()}
	r.State = next
	r.History = append(r.History, tr)

	fields := map[string]any{
		"run_id": r.ID,
		"flow":   string(r.Flow),
		"from":   string(tr.From),
		"to":     string(tr.To),
	}
	if reason != "" {
		fields["reason"] = reason
	}
	if next == StateFailed {
		fields["kind"] = string(r.FailureKind)
		telemetry.Warn("pipeline.transition", fields)
	} else {
		telemetry.Info("pipeline.transition", fields)
	}
	if r.OnTransition != nil {
		r.OnTransition(tr)
	}
}
