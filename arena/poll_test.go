package arena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/policy"
)

func TestPollNoOpBelowThreshold(t *testing.T) {
	a, _ := newTestArena(t)
	require.Equal(t, 0, a.Poll())
}

func TestPollRunsStepsWhenMutatorAllocatedPastThreshold(t *testing.T) {
	a, _ := newTestArena(t)
	a.allocMutatorSize = 1 << 20 // past the 1<<10 threshold newTestArena configures

	steps := a.Poll()
	require.Greater(t, steps, 0)
}

func TestPollIsReentrantSafe(t *testing.T) {
	a, _ := newTestArena(t)
	a.insidePoll = true
	require.Equal(t, 0, a.Poll())
}

func TestStepStartsIncrementalTraceThenContinuesIt(t *testing.T) {
	a, _ := newTestArena(t)
	a.allocMutatorSize = 1 << 20

	report := a.Step()
	require.True(t, report.MoreWork)
	require.False(t, a.BusyTraces().IsEmpty())

	// The next step continues the running trace instead of starting
	// another; with no grey segments it finishes it.
	report = a.Step()
	require.False(t, report.MoreWork)
	require.True(t, a.BusyTraces().IsEmpty())
}

func TestStepWholeWorldWhenNearCommitLimit(t *testing.T) {
	a, _ := newTestArena(t)
	require.Equal(t, core.ResOK, a.SetCommitLimit(1000))
	a.committed = 950

	report := a.Step()
	require.True(t, report.WorldCollected)
	require.False(t, report.MoreWork)
}

func TestPollStateReflectsCommittedAndBusyTraces(t *testing.T) {
	a, _ := newTestArena(t)
	a.committed = 4096
	st := a.pollState(time.Millisecond)
	require.Equal(t, float64(4096), st.Committed)
	require.Equal(t, 0, st.BusyTraces)
}

func TestChooseStepContinuesRunningTraceOverStartingAnother(t *testing.T) {
	p := policy.NewDefault(1<<10, time.Second)
	choice := p.ChooseStep(policy.PollState{}, 0, 1.0, true)
	require.Equal(t, policy.StepContinueTrace, choice)
}
