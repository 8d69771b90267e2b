package arena

import (
	"github.com/mpscore/mps/bitset"
	"github.com/mpscore/mps/core"
)

// Tract is the page-grain external contract §3 describes: the smallest
// unit the arena hands out, always a multiple of the arena's grain size
// and always wholly owned by at most one segment at a time.
type Tract struct {
	base  core.Addr
	pool  PoolOwner // nil when the tract is not currently allocated
	seg   *Seg      // nil until a segment claims this tract
	white core.TraceSet
}

// Base returns the tract's base address.
func (t *Tract) Base() core.Addr { return t.base }

// Pool returns the pool that owns this tract, or nil if unallocated.
func (t *Tract) Pool() PoolOwner { return t.pool }

// Seg returns the segment this tract belongs to, or nil.
func (t *Tract) Seg() *Seg { return t.seg }

// White returns the set of traces for which this tract is white.
func (t *Tract) White() core.TraceSet { return t.white }

// HasSeg reports whether this tract currently belongs to a segment.
func (t *Tract) HasSeg() bool { return t.seg != nil }

// PoolOwner is the pool-facing identity an arena needs to hold about a
// pool without depending on the pool package's concrete type: enough to
// account allocation against the right owner and to describe it, nothing
// about the pool's internal allocation strategy. Concrete pool
// implementations (package pool) satisfy this directly.
type PoolOwner interface {
	PoolSerial() uint64
	PoolName() string
	// PoolGrain is the allocation grain this pool segments at; must be a
	// multiple of the arena's own grain.
	PoolGrain() core.Size
	// PoolSegRing returns the pool's own ring of segments it owns,
	// threaded by a GC segment's init (and unthreaded by its finish) per
	// §4.6 — the arena never allocates or owns this ring itself, only
	// pushes/removes nodes on it.
	PoolSegRing() *Ring
}

// tractTable is the arena's page table: a sorted slice of allocated
// tracts keyed by base address (for per-tract metadata lookups), plus a
// bitset.BitSet recording which grain indices are occupied (for the
// allocator's free-run search, which only needs a yes/no per grain, not
// the Tract behind it).
type tractTable struct {
	grain    core.Size
	tracts   []*Tract // sorted by base
	occupied bitset.BitSet
}

const tractTableInitialGrains = 1 << 16

func newTractTable(grain core.Size) *tractTable {
	return &tractTable{grain: grain, occupied: bitset.NewBitSet(tractTableInitialGrains)}
}

// grainIndex converts an address into a 0-based grain index (grain 0 is
// the grain at address `grain`, since address 0 is never allocated).
func (tt *tractTable) grainIndex(addr core.Addr) uint64 {
	return uint64(addr)/uint64(tt.grain) - 1
}

// ensureCapacity grows the occupancy bitset so index is addressable.
func (tt *tractTable) ensureCapacity(index uint64) {
	if index < tt.occupied.Bits() {
		return
	}
	grown := bitset.NewBitSet(index + 1)
	copy(grown, tt.occupied)
	tt.occupied = grown
}

// find returns the tract covering addr, or nil.
func (tt *tractTable) find(addr core.Addr) *Tract {
	base := core.AlignDown(addr, tt.grain)
	lo, hi := 0, len(tt.tracts)
	for lo < hi {
		mid := (lo + hi) / 2
		if tt.tracts[mid].base < base {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(tt.tracts) && tt.tracts[lo].base == base {
		return tt.tracts[lo]
	}
	return nil
}

// insert adds a freshly-created tract at base, keeping tracts sorted.
func (tt *tractTable) insert(base core.Addr) *Tract {
	t := &Tract{base: base}
	lo, hi := 0, len(tt.tracts)
	for lo < hi {
		mid := (lo + hi) / 2
		if tt.tracts[mid].base < base {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	tt.tracts = append(tt.tracts, nil)
	copy(tt.tracts[lo+1:], tt.tracts[lo:])
	tt.tracts[lo] = t

	idx := tt.grainIndex(base)
	tt.ensureCapacity(idx)
	tt.occupied.Set(idx)
	return t
}

// remove deletes the tract at base, if present.
func (tt *tractTable) remove(base core.Addr) {
	lo, hi := 0, len(tt.tracts)
	for lo < hi {
		mid := (lo + hi) / 2
		if tt.tracts[mid].base < base {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(tt.tracts) && tt.tracts[lo].base == base {
		tt.tracts = append(tt.tracts[:lo], tt.tracts[lo+1:]...)
		idx := tt.grainIndex(base)
		if idx < tt.occupied.Bits() {
			tt.occupied.Unset(idx)
		}
	}
}

// first returns the tract with the smallest base, or nil if the table is
// empty.
func (tt *tractTable) first() *Tract {
	if len(tt.tracts) == 0 {
		return nil
	}
	return tt.tracts[0]
}

// next returns the tract whose base immediately follows t's, or nil.
func (tt *tractTable) next(t *Tract) *Tract {
	lo, hi := 0, len(tt.tracts)
	for lo < hi {
		mid := (lo + hi) / 2
		if tt.tracts[mid].base < t.base {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(tt.tracts) && tt.tracts[lo].base == t.base && lo+1 < len(tt.tracts) {
		return tt.tracts[lo+1]
	}
	return nil
}
