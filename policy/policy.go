// Package policy implements the decision layer §4.2 delegates to: should
// ArenaPoll poll at all, should it poll again after a step, and should
// ArenaStep start a whole-world collection or a new incremental trace. The
// core depends only on the Policy interface (defined here, consumed by
// package arena) so a caller can swap in a workload-specific policy without
// touching the arena implementation — the same "Config holds behavior as
// an injected interface" shape the teacher uses for StatePatcherFunc and
// ProtocolDiffer.
package policy

import "time"

// StepReport summarizes one increment of trace work, the same three facts
// the source's tracer step reports back to the poll loop.
type StepReport struct {
	MoreWork       bool
	WorldCollected bool
	Work           float64 // abstract work units done this step
}

// PollState is the subset of arena state the policy needs to decide
// whether to keep polling.
type PollState struct {
	Elapsed       time.Duration
	WorkDone      float64
	BusyTraces    int
	MutatorAllocd float64 // allocMutatorSize, the arena's cumulative mutator allocation in bytes (never reset)
	CommitLimit   float64
	Committed     float64
}

// StepChoice is what ArenaStep should do next.
type StepChoice int

const (
	StepNone StepChoice = iota
	StepContinueTrace
	StepStartIncremental
	StepStartWholeWorld
)

// Policy is the decision layer the arena's poll/step driver consults.
type Policy interface {
	// ShouldPoll decides whether ArenaPoll should do any work at all.
	ShouldPoll(st PollState) bool

	// ShouldPollAgain decides, mid-loop, whether to take another step.
	ShouldPollAgain(st PollState) bool

	// ChooseStep decides what ArenaStep should do given a time budget.
	ChooseStep(st PollState, interval time.Duration, multiplier float64, traceRunning bool) StepChoice
}

// Default is a simple, conservative policy: poll whenever there is a busy
// trace or the mutator has allocated past a configured threshold, keep
// polling until the time budget is exhausted, and prefer continuing an
// existing trace over starting a new one.
type Default struct {
	// AllocThreshold is the mutator allocation (bytes) that triggers
	// starting a new incremental trace when none is running.
	AllocThreshold float64
	// MaxPollSlice bounds how long a single ArenaPoll call is allowed to
	// keep looping.
	MaxPollSlice time.Duration
}

// NewDefault returns a Default policy with reasonable thresholds.
func NewDefault(allocThreshold float64, maxPollSlice time.Duration) *Default {
	return &Default{AllocThreshold: allocThreshold, MaxPollSlice: maxPollSlice}
}

func (p *Default) ShouldPoll(st PollState) bool {
	if st.BusyTraces > 0 {
		return true
	}
	return st.MutatorAllocd >= p.AllocThreshold
}

func (p *Default) ShouldPollAgain(st PollState) bool {
	if p.MaxPollSlice > 0 && st.Elapsed >= p.MaxPollSlice {
		return false
	}
	return st.BusyTraces > 0
}

func (p *Default) ChooseStep(st PollState, interval time.Duration, multiplier float64, traceRunning bool) StepChoice {
	if traceRunning {
		return StepContinueTrace
	}
	if st.CommitLimit > 0 && st.Committed >= 0.9*st.CommitLimit {
		return StepStartWholeWorld
	}
	if st.MutatorAllocd >= p.AllocThreshold {
		return StepStartIncremental
	}
	return StepNone
}
