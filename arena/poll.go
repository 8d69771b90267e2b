package arena

import (
	"time"

	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/policy"
)

// Poll runs §4.2's ArenaPoll loop: consult the policy for whether there
// is work to do, then repeatedly Step until the policy says stop or no
// trace is making progress. It returns the number of steps taken.
func (a *Arena) Poll() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.insidePoll {
		// Re-entrant poll calls collapse to a no-op, per §4.2: a poll
		// triggered from inside a step (e.g. by an allocation that itself
		// runs under the poll) must not recurse.
		return 0
	}
	a.insidePoll = true
	defer func() { a.insidePoll = false }()

	start := timeNow()
	st := a.pollState(0)
	if !a.policy.ShouldPoll(st) {
		return 0
	}

	a.emit(event.ArenaPoll, event.F("serial", a.serial))
	a.metrics.ObservePoll()

	steps := 0
	for {
		st = a.pollState(timeNow().Sub(start))
		if steps > 0 && !a.policy.ShouldPollAgain(st) {
			break
		}
		report := a.step()
		steps++
		if !report.MoreWork {
			break
		}
	}
	return steps
}

// Step runs a single increment of trace work (§4.2 ArenaStep): choose
// what to do via the policy, then do it. Exported so callers that want
// fine-grained control (tests, a driving CLI) can single-step instead of
// calling Poll.
func (a *Arena) Step() policy.StepReport {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.step()
}

// step assumes the arena lock is already held.
func (a *Arena) step() policy.StepReport {
	a.metrics.ObserveStep()
	st := a.pollState(0)
	traceRunning := !a.busyTraces.IsEmpty()
	choice := a.policy.ChooseStep(st, 0, 1.0, traceRunning)

	switch choice {
	case policy.StepStartIncremental, policy.StepStartWholeWorld:
		tr := a.startTrace(0, a.allocMutatorSize)
		if tr == nil {
			return policy.StepReport{MoreWork: false}
		}
		a.flipTrace(tr)
		if choice == policy.StepStartWholeWorld {
			a.lastWorldCollect = int64(timeNow().UnixNano())
			a.scanAllGrey(tr)
			a.finishTrace(tr)
			return policy.StepReport{MoreWork: false, WorldCollected: true}
		}
		return policy.StepReport{MoreWork: true}

	case policy.StepContinueTrace:
		tr := a.firstBusyTrace()
		if tr == nil {
			return policy.StepReport{MoreWork: false}
		}
		more := a.scanOneGreyRank(tr)
		if !more {
			a.finishTrace(tr)
		}
		return policy.StepReport{MoreWork: more}

	default:
		return policy.StepReport{MoreWork: false}
	}
}

// scanOneGreyRank pops one segment off the lowest non-empty grey ring and
// clears its greyness for tr, simulating the tracer visiting it. Returns
// whether any grey ring still has work outstanding.
func (a *Arena) scanOneGreyRank(tr *Trace) bool {
	for r := range a.greyRing {
		ring := a.greyRing[r]
		if ring.IsEmpty() {
			continue
		}
		var seg *Seg
		ring.ForEach(func(v any) {
			if seg == nil {
				seg = v.(*Seg)
			}
		})
		if seg != nil {
			seg.SetGrey(seg.Grey().Del(tr.id))
			tr.reclaimed += seg.Size()
		}
		break
	}
	for r := range a.greyRing {
		if !a.greyRing[r].IsEmpty() {
			return true
		}
	}
	return false
}

// scanAllGrey drains every grey ring in one shot, for a whole-world
// collection.
func (a *Arena) scanAllGrey(tr *Trace) {
	for a.scanOneGreyRank(tr) {
	}
}

func (a *Arena) firstBusyTrace() *Trace {
	for i := range a.traces {
		if a.traces[i] != nil {
			return a.traces[i]
		}
	}
	return nil
}

func (a *Arena) pollState(elapsed time.Duration) policy.PollState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return policy.PollState{
		Elapsed:       elapsed,
		BusyTraces:    a.busyTraces.PopCount(),
		MutatorAllocd: float64(a.allocMutatorSize),
		CommitLimit:   float64(a.commitLimit),
		Committed:     float64(a.committed),
	}
}

func timeNow() time.Time { return time.Now() }
