package arena

import (
	"fmt"
	"io"

	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/registry"
)

// segState tracks the signed lifecycle §9's "signed lifecycle guards"
// design note calls for: a segment's methods panic if called after Free,
// the same discipline the safearena reference's atomic freed flag
// enforces for a simpler single-owner allocator.
type segState uint8

const (
	segStateInvalid segState = iota
	segStateValid
)

// segClass is the method table a segment dispatches through, mirroring
// the source's SegClass subclassing: a vanilla segment supports only the
// base operations, a GC segment additionally tracks colour, summary and
// its buffer. Go has no subclassing, so the dispatch table is a struct of
// function values rather than a vtable, selected once at SegAlloc time.
// The table carries every generic op §4.5 enumerates (init, finish, the
// opaque p/setP slot, buffer/setBuffer) plus the GC-only colour/rank/
// summary ops §4.6 adds; vanilla installs "not reached" panics for the
// ones only a GC segment can answer.
type segClass struct {
	name string

	init           func(s *Seg, pool PoolOwner)
	finish         func(s *Seg)
	p              func(s *Seg) any
	setP           func(s *Seg, v any)
	buffer         func(s *Seg) *Buffer
	setBuffer      func(s *Seg, b *Buffer)
	setGrey        func(s *Seg, ts core.TraceSet)
	setWhite       func(s *Seg, ts core.TraceSet)
	setRankSet     func(s *Seg, rs core.RankSet)
	setSummary     func(s *Seg, zs core.ZoneSet)
	setRankSummary func(s *Seg, rs core.RankSet, zs core.ZoneSet)
}

func vanillaNotSupported(op string) func(*Seg, core.TraceSet) {
	return func(*Seg, core.TraceSet) {
		panic("arena: " + op + " not supported by vanilla segment class")
	}
}

// genericP/genericSetP back the opaque per-segment pointer every class
// (vanilla included) carries, per §4.5's p/setP dispatch entry — a pool
// implementation's private per-segment bookkeeping slot, unrelated to
// colour/rank/summary.
func genericP(s *Seg) any       { return s.p }
func genericSetP(s *Seg, v any) { s.p = v }

var vanillaClass = &segClass{
	name: "vanilla",

	init:   func(*Seg, PoolOwner) {},
	finish: func(*Seg) {},
	p:      genericP,
	setP:   genericSetP,
	buffer: func(*Seg) *Buffer {
		panic("arena: SegBuffer not supported by vanilla segment class")
	},
	setBuffer: func(*Seg, *Buffer) {
		panic("arena: SegSetBuffer not supported by vanilla segment class")
	},
	setGrey:    vanillaNotSupported("SegSetGrey"),
	setWhite:   vanillaNotSupported("SegSetWhite"),
	setRankSet: func(*Seg, core.RankSet) { panic("arena: SegSetRankSet not supported by vanilla segment class") },
	setSummary: func(*Seg, core.ZoneSet) { panic("arena: SegSetSummary not supported by vanilla segment class") },
	setRankSummary: func(*Seg, core.RankSet, core.ZoneSet) {
		panic("arena: SegSetRankAndSummary not supported by vanilla segment class")
	},
}

var gcClass = &segClass{
	name: "gc",

	init:           gcInit,
	finish:         gcFinish,
	p:              genericP,
	setP:           genericSetP,
	buffer:         gcBuffer,
	setBuffer:      gcSetBuffer,
	setGrey:        gcSetGrey,
	setWhite:       gcSetWhite,
	setRankSet:     gcSetRankSet,
	setSummary:     gcSetSummary,
	setRankSummary: gcSetRankSummary,
}

// Buffer is the minimal handle a GC segment keeps for the pool-owned
// allocation buffer attached to it. Only the fields the arena itself
// needs to reason about (ownership, the allocated/limit boundary for
// write-barrier purposes) live here; buffer internals belong to package
// pool.
type Buffer struct {
	Pool  PoolOwner
	Init  core.Addr
	Alloc core.Addr
	Limit core.Addr
}

// Seg is a segment: a contiguous run of tracts, aligned to the arena's
// alignment, owned by exactly one pool, per §3/§4.5. GC-specific fields
// are always present but only meaningful (and only ever mutated) when
// class is gcClass; see §4.6 for the rationale behind folding GCSeg into
// the same struct as a capability-flagged extension rather than a
// separate embedded type — the arena's own grey rings need to store and
// retrieve *Seg uniformly regardless of subclass.
type Seg struct {
	arena *Arena
	class *segClass
	state segState

	base  core.Addr
	limit core.Addr
	pool  PoolOwner

	p any // opaque per-segment slot, §4.5 p/setP

	rankSet core.RankSet
	pm      registry.AccessMode // current (hardware-modeled) protection mode
	sm      registry.AccessMode // shield-desired protection mode, §4.7

	// GC-only fields (meaningful when class == gcClass):
	white    core.TraceSet
	grey     core.TraceSet
	nailed   core.TraceSet
	summary  core.ZoneSet
	buffer   *Buffer
	greyNode *Node // linkage in arena.greyRing[rank], nil when not grey
	poolNode *Node // linkage in the owning pool's own segment ring
}

// Base, Limit and Pool expose the segment's identity.
func (s *Seg) Base() core.Addr       { return s.base }
func (s *Seg) Limit() core.Addr      { return s.limit }
func (s *Seg) Pool() PoolOwner       { return s.pool }
func (s *Seg) Size() core.Size       { return core.Size(s.limit - s.base) }
func (s *Seg) RankSet() core.RankSet { return s.rankSet }
func (s *Seg) White() core.TraceSet  { return s.white }
func (s *Seg) Grey() core.TraceSet   { return s.grey }
func (s *Seg) Nailed() core.TraceSet { return s.nailed }
func (s *Seg) Summary() core.ZoneSet { return s.summary }
func (s *Seg) IsGC() bool            { return s.class == gcClass }

func (s *Seg) checkValid() {
	if s.state != segStateValid {
		panic("arena: use of freed segment")
	}
}

// P returns the opaque per-segment value a pool implementation may have
// stashed via SetP; SegSetP in §4.5 is a generic op available to every
// segment class.
func (s *Seg) P() any {
	s.checkValid()
	return s.class.p(s)
}

// SetP stores an opaque per-segment value for the owning pool's own use.
func (s *Seg) SetP(v any) {
	s.checkValid()
	s.class.setP(s, v)
}

// Buffer returns the allocation buffer currently attached to the
// segment, or nil. Dispatches through the class; only a GC segment may
// carry one.
func (s *Seg) Buffer() *Buffer {
	s.checkValid()
	return s.class.buffer(s)
}

// SetBuffer attaches (or detaches, with nil) an allocation buffer.
func (s *Seg) SetBuffer(b *Buffer) {
	s.checkValid()
	s.class.setBuffer(s, b)
}

// SetGrey dispatches through the segment's class. For a GC segment this
// assigns the segment's greyness (§4.6: "seg.grey ← grey'", not a union)
// and adds or removes it from the arena's per-rank grey ring on the
// empty↔non-empty transition — Testable Property 9.
func (s *Seg) SetGrey(ts core.TraceSet) {
	s.checkValid()
	s.class.setGrey(s, ts)
}

// SetWhite dispatches through the segment's class.
func (s *Seg) SetWhite(ts core.TraceSet) {
	s.checkValid()
	s.class.setWhite(s, ts)
}

// SetRankSet dispatches through the segment's class.
func (s *Seg) SetRankSet(rs core.RankSet) {
	s.checkValid()
	s.class.setRankSet(s, rs)
}

// SetSummary dispatches through the segment's class.
func (s *Seg) SetSummary(zs core.ZoneSet) {
	s.checkValid()
	s.class.setSummary(s, zs)
}

// SetRankSummary dispatches through the segment's class; see
// gcSetRankSummary for the combined rank+summary shield rule §4.6 names
// separately from the individual setRankSet/setSummary rules.
func (s *Seg) SetRankSummary(rs core.RankSet, zs core.ZoneSet) {
	s.checkValid()
	s.class.setRankSummary(s, rs, zs)
}

// raiseShield asks the arena's shield to raise mode over s, and keeps
// both the shield-desired (sm) and modeled-hardware (pm) protection bits
// in sync — this reference shield applies Raise/Lower synchronously
// rather than batching them until a real Flush, so pm never lags sm.
func (s *Seg) raiseShield(mode registry.AccessMode) {
	s.arena.shield.Raise(s, mode)
	s.sm |= mode
	s.pm |= mode
}

// lowerShield is raiseShield's inverse.
func (s *Seg) lowerShield(mode registry.AccessMode) {
	s.arena.shield.Lower(s, mode)
	s.sm &^= mode
	s.pm &^= mode
}

// gcInit runs the GC class's extra initialization beyond the generic
// tract wiring SegAlloc already performed: a freshly allocated GC
// segment starts with an empty summary and no buffer, and is threaded
// onto the owning pool's own segment ring per §4.6's init step.
func gcInit(s *Seg, pool PoolOwner) {
	s.summary = core.ZoneSetEMPTY
	s.buffer = nil
	s.poolNode = pool.PoolSegRing().Push(s)
}

// gcFinish undoes gcInit and anything a live GC segment could have
// accumulated, in the order §4.6 specifies: unlink from the grey ring if
// still grey, refuse to finish a segment with a live buffer, then unlink
// from the pool's segment ring. SegFree runs this before releasing the
// segment's tracts.
func gcFinish(s *Seg) {
	if s.greyNode != nil {
		s.arena.removeGrey(s)
	}
	if s.buffer != nil {
		panic("arena: SegFree of a segment with a live allocation buffer")
	}
	if s.poolNode != nil {
		s.pool.PoolSegRing().Remove(s.poolNode)
		s.poolNode = nil
	}
}

func gcBuffer(s *Seg) *Buffer { return s.buffer }

func gcSetBuffer(s *Seg, b *Buffer) {
	if b != nil && b.Pool != s.pool {
		panic("arena: SegSetBuffer: buffer's pool must equal the segment's own pool")
	}
	s.buffer = b
}

// gcSetGrey implements §4.6's setGrey: assignment (not union) of the
// segment's greyness, grey-ring linkage keyed on plain emptiness, and the
// read shield keyed on a narrower, separate condition — whether the
// segment is grey for any trace that has flipped. Raising/lowering the
// read shield only on that grey∩flippedTraces transition is what lets a
// mutator read through segments that are merely grey for a trace that
// hasn't flipped yet without going through the barrier.
func gcSetGrey(s *Seg, ts core.TraceSet) {
	if !s.rankSet.IsEmpty() && !s.rankSet.IsSingle() {
		panic("arena: SegSetGrey requires a singleton rankSet")
	}

	oldGrey := s.grey
	oldF := oldGrey.Inter(s.arena.flippedTraces)

	s.grey = ts

	wasGrey := !oldGrey.IsEmpty()
	isGrey := !ts.IsEmpty()
	if isGrey && !wasGrey {
		s.arena.addGrey(s, s.rankSet)
	} else if !isGrey && wasGrey {
		s.arena.removeGrey(s)
	}

	newF := ts.Inter(s.arena.flippedTraces)
	if oldF.IsEmpty() && !newF.IsEmpty() {
		s.raiseShield(registry.AccessREAD)
	} else if !oldF.IsEmpty() && newF.IsEmpty() {
		s.lowerShield(registry.AccessREAD)
	}

	s.arena.emit(event.SegSetGrey, event.F("seg", s.base), event.F("traceSet", ts))
}

// gcSetWhite implements §4.6's setWhite: assignment of the segment's
// colour, propagated to every tract the segment covers so invariant 5
// (t.white = s.white for every tract t in the segment) holds for callers
// that inspect a Tract directly rather than going through its Seg.
func gcSetWhite(s *Seg, ts core.TraceSet) {
	s.white = ts
	for addr := s.base; addr < s.limit; addr += core.Addr(s.arena.grain) {
		if t := s.arena.tracts.find(addr); t != nil {
			t.white = ts
		}
	}
}

// gcSetRankSet implements §4.6's setRankSet: rs must be empty or a
// singleton, the summary must already be empty on an emptiness
// transition (a segment can't carry a non-trivial summary without a
// rank to scan it at), and the write shield is raised going from empty to
// non-empty and lowered going the other way.
func gcSetRankSet(s *Seg, rs core.RankSet) {
	if !rs.IsEmpty() && !rs.IsSingle() {
		panic("arena: SegSetRankSet requires an empty or singleton rankSet")
	}

	wasEmpty := s.rankSet.IsEmpty()
	isEmpty := rs.IsEmpty()
	if wasEmpty != isEmpty && !s.summary.IsEmpty() {
		panic("arena: SegSetRankSet requires an empty summary across a rankSet emptiness transition")
	}

	s.rankSet = rs

	if wasEmpty && !isEmpty {
		s.raiseShield(registry.AccessWRITE)
	} else if !wasEmpty && isEmpty {
		s.lowerShield(registry.AccessWRITE)
	}
}

// gcSetSummary implements §4.6's setSummary: the precondition is a
// non-empty rankSet (summaries only mean something for a segment a trace
// can scan), and the write shield tracks whether the summary still
// covers the universal zone set, not whether it's merely non-empty — a
// summary that covers UNIV makes no promise the mutator could violate,
// so no write barrier is needed; only once it narrows to a strict subset
// of UNIV does every write have to be tracked.
func gcSetSummary(s *Seg, zs core.ZoneSet) {
	if s.rankSet.IsEmpty() {
		panic("arena: SegSetSummary requires a non-empty rankSet")
	}

	wasUniv := s.summary.IsUniv()
	s.summary = zs
	isUniv := zs.IsUniv()

	if wasUniv && !isUniv {
		s.raiseShield(registry.AccessWRITE)
	} else if !wasUniv && isUniv {
		s.lowerShield(registry.AccessWRITE)
	}
}

// gcSetRankSummary implements §4.6's setRankSummary, the combined
// operation that changes rankSet and summary together in one shield
// adjustment instead of two: a segment is "write-shielded" exactly when
// it has a rank to scan at and a summary that isn't the trivial
// everything-goes UNIV set. The invariant r'=∅ ⇒ s'=∅ is checked before
// either field is assigned.
func gcSetRankSummary(s *Seg, rs core.RankSet, zs core.ZoneSet) {
	if !rs.IsEmpty() && !rs.IsSingle() {
		panic("arena: SegSetRankAndSummary requires an empty or singleton rankSet")
	}
	if rs.IsEmpty() && !zs.IsEmpty() {
		panic("arena: SegSetRankAndSummary requires summary = ∅ when rankSet = ∅")
	}

	wasShielded := !s.rankSet.IsEmpty() && !s.summary.IsUniv()
	willBeShielded := !rs.IsEmpty() && !zs.IsUniv()

	s.rankSet = rs
	s.summary = zs

	if willBeShielded && !wasShielded {
		s.raiseShield(registry.AccessWRITE)
	} else if wasShielded && !willBeShielded {
		s.lowerShield(registry.AccessWRITE)
	}
}

// Describe writes a structural dump of the segment, per §6.
func (s *Seg) Describe(w io.Writer, depth int) error {
	if err := event.WriteLine(w, depth, "Seg [%v, %v) class=%s rankSet=%v pm=%v sm=%v",
		s.base, s.limit, s.class.name, s.rankSet, s.pm, s.sm); err != nil {
		return err
	}
	if s.class == gcClass {
		return event.WriteLine(w, depth+1, "white=%v grey=%v nailed=%v summary=%x",
			s.white, s.grey, s.nailed, uint64(s.summary))
	}
	return nil
}

func (s *Seg) String() string {
	return fmt.Sprintf("Seg[%v,%v)", s.base, s.limit)
}
