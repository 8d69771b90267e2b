package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldPollTrueWhenBusyTrace(t *testing.T) {
	p := NewDefault(1<<20, time.Second)
	require.True(t, p.ShouldPoll(PollState{BusyTraces: 1}))
}

func TestShouldPollTrueWhenPastAllocThreshold(t *testing.T) {
	p := NewDefault(1<<10, time.Second)
	require.True(t, p.ShouldPoll(PollState{MutatorAllocd: 1 << 20}))
}

func TestShouldPollFalseOtherwise(t *testing.T) {
	p := NewDefault(1<<20, time.Second)
	require.False(t, p.ShouldPoll(PollState{MutatorAllocd: 10}))
}

func TestShouldPollAgainStopsPastMaxSlice(t *testing.T) {
	p := NewDefault(1<<10, 10*time.Millisecond)
	require.False(t, p.ShouldPollAgain(PollState{Elapsed: 20 * time.Millisecond, BusyTraces: 1}))
}

func TestShouldPollAgainContinuesWhileBusy(t *testing.T) {
	p := NewDefault(1<<10, time.Second)
	require.True(t, p.ShouldPollAgain(PollState{Elapsed: time.Millisecond, BusyTraces: 1}))
}

func TestChooseStepContinuesRunningTrace(t *testing.T) {
	p := NewDefault(1<<10, time.Second)
	require.Equal(t, StepContinueTrace, p.ChooseStep(PollState{}, 0, 1.0, true))
}

func TestChooseStepStartsWholeWorldNearCommitLimit(t *testing.T) {
	p := NewDefault(1<<10, time.Second)
	choice := p.ChooseStep(PollState{CommitLimit: 1000, Committed: 950}, 0, 1.0, false)
	require.Equal(t, StepStartWholeWorld, choice)
}

func TestChooseStepStartsIncrementalPastAllocThreshold(t *testing.T) {
	p := NewDefault(1<<10, time.Second)
	choice := p.ChooseStep(PollState{MutatorAllocd: 1 << 20}, 0, 1.0, false)
	require.Equal(t, StepStartIncremental, choice)
}

func TestChooseStepNoneWhenIdle(t *testing.T) {
	p := NewDefault(1<<20, time.Second)
	choice := p.ChooseStep(PollState{}, 0, 1.0, false)
	require.Equal(t, StepNone, choice)
}
