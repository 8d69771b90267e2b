package arena

import (
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/registry"
)

// traceState is where a Trace sits in its lifecycle, per §4.2/§4.5: a
// trace is created, flips (mutator and collector swap white/black roles),
// runs incrementally over a series of steps scanning the grey rings, and
// finishes once every rank's grey ring is empty.
type traceState uint8

const (
	traceStateInit traceState = iota
	traceStateFlipped
	traceStateFinished
)

// Trace is one incremental collection cycle: the spec's TraceId slot in
// the arena's fixed [TraceLimit]*Trace table, carrying the white zone set
// it was started with and its condemned/reclaimed byte counts.
type Trace struct {
	id    core.TraceId
	state traceState
	white core.ZoneSet
	condemned core.Size // bytes condemned when the trace started
	reclaimed core.Size // bytes reclaimed so far
}

// ID returns the trace's slot identifier.
func (t *Trace) ID() core.TraceId { return t.id }

// IsFlipped and IsFinished report whether the trace has flipped and/or
// finished.
func (t *Trace) IsFlipped() bool  { return t.state >= traceStateFlipped }
func (t *Trace) IsFinished() bool { return t.state == traceStateFinished }

// History is the arena's collection history: a short ring of completed
// traces' summary statistics, appended to by finishTrace. The policy layer
// does not consult it, and the arena has no accessor that exposes it.
// Grounded on the teacher's differ package's
// fixed-window history buffer (it keeps the last N observed states to
// compute deltas against).
type History struct {
	capacity int
	entries  []HistoryEntry
}

// HistoryEntry summarizes one finished trace.
type HistoryEntry struct {
	TraceID   core.TraceId
	Condemned core.Size
	Reclaimed core.Size
}

// NewHistory returns a History retaining at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

// Record appends e, evicting the oldest entry if at capacity.
func (h *History) Record(e HistoryEntry) {
	h.entries = append(h.entries, e)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Entries returns a copy of the retained history, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// startTrace allocates a free trace slot, marks it busy, and returns it.
// Returns nil if every slot in the fixed table is occupied (the trace
// limit, core.TraceLimit, has been reached).
func (a *Arena) startTrace(white core.ZoneSet, condemned core.Size) *Trace {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < core.TraceLimit; i++ {
		if a.traces[i] == nil {
			tr := &Trace{id: core.TraceId(i), white: white, condemned: condemned}
			a.traces[i] = tr
			a.busyTraces = a.busyTraces.Add(tr.id)
			return tr
		}
	}
	return nil
}

// flipTrace moves a trace from init to flipped, recording it in
// flippedTraces. Per §4.6 invariant 3, every segment already grey for tr
// that wasn't shielded for reads yet (because no trace it was grey for
// had flipped) must have its read shield raised the instant tr flips —
// this is the half of the invariant gcSetGrey can't maintain on its own,
// since nothing calls SetGrey again just because flippedTraces changed.
func (a *Arena) flipTrace(tr *Trace) {
	a.mu.Lock()
	prevFlipped := a.flippedTraces
	tr.state = traceStateFlipped
	a.flippedTraces = a.flippedTraces.Add(tr.id)
	a.mu.Unlock()

	for r := range a.greyRing {
		a.greyRing[r].ForEach(func(v any) {
			seg := v.(*Seg)
			grey := seg.Grey()
			if !grey.Is(tr.id) {
				return
			}
			if grey.Inter(prevFlipped).IsEmpty() {
				seg.raiseShield(registry.AccessREAD)
			}
		})
	}
}

// finishTrace retires a trace: frees its slot, records it to history, and
// clears it from the busy/flipped sets.
func (a *Arena) finishTrace(tr *Trace) {
	a.mu.Lock()
	tr.state = traceStateFinished
	a.traces[tr.id] = nil
	a.busyTraces = a.busyTraces.Del(tr.id)
	a.flippedTraces = a.flippedTraces.Del(tr.id)
	h := a.history
	a.mu.Unlock()

	if h != nil {
		h.Record(HistoryEntry{TraceID: tr.id, Condemned: tr.condemned, Reclaimed: tr.reclaimed})
	}
}

// BusyTraces returns the set of traces currently in progress.
func (a *Arena) BusyTraces() core.TraceSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busyTraces
}
