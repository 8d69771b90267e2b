package core

import "math/bits"

// TraceId identifies one incremental collection cycle. The arena's trace
// table has a fixed number of slots, TraceLimit, following the source's
// fixed TraceLIMIT.
type TraceId uint8

// TraceLimit is the number of concurrent trace slots an arena can hold.
const TraceLimit = 8

// TraceSet is a bitset over TraceId, used for busyTraces/flippedTraces and
// per-segment white/grey/nailed.
type TraceSet uint8

// TraceSetEmpty is the empty trace-set.
const TraceSetEmpty TraceSet = 0

// TraceSetUniv contains every valid TraceId in [0, TraceLimit).
const TraceSetUniv TraceSet = (1 << TraceLimit) - 1

// TraceSetSingle returns the trace-set containing only ti.
func TraceSetSingle(ti TraceId) TraceSet {
	return TraceSet(1) << ti
}

// Add returns ts with ti added.
func (ts TraceSet) Add(ti TraceId) TraceSet {
	return ts | TraceSetSingle(ti)
}

// Del returns ts with ti removed.
func (ts TraceSet) Del(ti TraceId) TraceSet {
	return ts &^ TraceSetSingle(ti)
}

// Is reports whether ti is a member of ts.
func (ts TraceSet) Is(ti TraceId) bool {
	return ts&TraceSetSingle(ti) != 0
}

// Inter returns the intersection of ts and other.
func (ts TraceSet) Inter(other TraceSet) TraceSet {
	return ts & other
}

// Union returns the union of ts and other.
func (ts TraceSet) Union(other TraceSet) TraceSet {
	return ts | other
}

// Diff returns ts with every member of other removed.
func (ts TraceSet) Diff(other TraceSet) TraceSet {
	return ts &^ other
}

// IsEmpty reports whether ts has no members.
func (ts TraceSet) IsEmpty() bool {
	return ts == TraceSetEmpty
}

// Sub reports whether ts is a subset of other.
func (ts TraceSet) Sub(other TraceSet) bool {
	return ts&^other == 0
}

// PopCount returns the number of traces in ts.
func (ts TraceSet) PopCount() int {
	return bits.OnesCount8(uint8(ts))
}
