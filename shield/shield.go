// Package shield implements §4.7's shield: the mediator between the
// collector's need to protect segments from the mutator (and vice versa)
// and the arena's barrier paths, which lower protection on demand and
// expect the shield to restore it once the collector is done looking.
// Grounded on the teacher's patcher package's nesting-depth-guarded
// apply/revert pair (StatePatcher tracks how many patches are currently
// applied so it only reverts once the count returns to zero); the shield
// uses the same depth-counted enter/leave discipline for suspend scopes.
package shield

import (
	"sync"

	"github.com/mpscore/mps/arena"
	"github.com/mpscore/mps/registry"
)

// segState is the shield's private bookkeeping per segment: the mode
// currently suspended (protected against) and how many nested Expose
// calls are outstanding before Cover should actually restore it.
type segState struct {
	suspended registry.AccessMode
	depth     int
}

// Shield is the reference implementation of arena.Shield. It holds no
// real mprotect-style OS state (§1 Non-goals: no page-level protection),
// only the logical suspended/depth bookkeeping a caller driving the
// arena through its barrier paths needs to observe was correctly
// threaded.
type Shield struct {
	mu    sync.Mutex
	depth int // global enter/leave nesting depth, §4.7
	segs  map[*arena.Seg]*segState
}

// New returns a ready-to-use Shield.
func New() *Shield {
	return &Shield{segs: make(map[*arena.Seg]*segState)}
}

func (s *Shield) state(seg *arena.Seg) *segState {
	st, ok := s.segs[seg]
	if !ok {
		st = &segState{}
		s.segs[seg] = st
	}
	return st
}

// Raise suspends mode on seg: the collector wants exclusive access before
// the mutator may touch it again.
func (s *Shield) Raise(seg *arena.Seg, mode registry.AccessMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(seg)
	st.suspended |= mode
}

// Lower restores mode on seg, normally called from the arena's barrier
// path when a fault needs to proceed.
func (s *Shield) Lower(seg *arena.Seg, mode registry.AccessMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(seg)
	st.suspended &^= mode
}

// Enter marks the start of a shielded region (the collector is about to
// look at mutator-visible state); nested Enter/Leave pairs only actually
// matter at depth zero, mirroring the patcher's apply-count discipline.
func (s *Shield) Enter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth++
}

// Leave ends a shielded region.
func (s *Shield) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		panic("shield: Leave without matching Enter")
	}
	s.depth--
}

// Expose makes seg's contents visible to the collector without
// disturbing the mutator-facing suspension the next mutator access should
// still observe; Cover is its matching call.
func (s *Shield) Expose(seg *arena.Seg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(seg).depth++
}

// Cover reverses one Expose. Once depth returns to zero, any previously
// raised protection is considered restored.
func (s *Shield) Cover(seg *arena.Seg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(seg)
	if st.depth == 0 {
		panic("shield: Cover without matching Expose")
	}
	st.depth--
}

// Flush applies any protection changes that Raise/Lower calls deferred
// while the shield was entered for seg. The reference shield applies
// changes immediately, so Flush is a no-op kept for interface parity with
// a real page-protection-backed implementation that batches mprotect
// calls for efficiency.
func (s *Shield) Flush(seg *arena.Seg) {}
