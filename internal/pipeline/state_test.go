package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidebanai-backend/internal/deck"
)

func TestRunPromptFlowTransitions(t *testing.T) {
	run := NewRun(FlowPrompt, "user-1")
	var seen []State
	run.OnTransition = func(tr Transition) { seen = append(seen, tr.To) }

	for _, s := range []State{StateRequestingOutline, StateAwaitingUserEdit, StateExpandingSlides, StateExporting, StateDone} {
		require.NoError(t, run.Advance(s, ""))
	}
	assert.Equal(t, []State{StateRequestingOutline, StateAwaitingUserEdit, StateExpandingSlides, StateExporting, StateDone}, seen)
	assert.Len(t, run.History, 5)
	assert.True(t, run.State.Terminal())
}

func TestRunRejectsExtractingOnPromptFlow(t *testing.T) {
	run := NewRun(FlowPrompt, "user-1")
	err := run.Advance(StateExtracting, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, run.State)

	doc := NewRun(FlowDocument, "user-1")
	require.ErrorIs(t, doc.Advance(StateRequestingOutline, ""), ErrInvalidTransition)
	require.NoError(t, doc.Advance(StateExtracting, ""))
}

func TestRunCannotSkipAwaitingUserEdit(t *testing.T) {
	run := NewRun(FlowPrompt, "user-1")
	require.NoError(t, run.Advance(StateRequestingOutline, ""))
	require.ErrorIs(t, run.Advance(StateExpandingSlides, ""), ErrInvalidTransition)
}

func TestFailedIsAbsorbing(t *testing.T) {
	run := NewRun(FlowDocument, "user-1")
	require.NoError(t, run.Advance(StateExtracting, ""))
	run.Fail(deck.ExtractionFailure("extract.pdf", errors.New("malformed xref")))

	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, deck.KindExtractionFailure, run.FailureKind)
	assert.Contains(t, run.FailureReason, "malformed xref")

	require.ErrorIs(t, run.Advance(StateRequestingOutline, ""), ErrInvalidTransition)
	run.Fail(errors.New("second failure"))
	assert.Contains(t, run.FailureReason, "malformed xref")
	assert.Len(t, run.History, 2)
}

func TestResumeContinuesFromPersistedState(t *testing.T) {
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)
	require.NoError(t, run.Advance(StateExpandingSlides, ""))
	assert.Equal(t, "pres-1", run.History[0].RunID)
}
