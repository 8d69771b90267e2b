package arena

import (
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/registry"
)

// SegPref expresses the allocation preferences §4.5 allows a pool to
// state: whether the segment should be GC-tracked, and which rank it
// should be born into (only meaningful when GC is true).
type SegPref struct {
	GC   bool
	Rank core.Rank
}

// SegAlloc reserves size bytes of fresh address space (rounded up to the
// arena's grain), wires the covering tracts to pool, and returns the new
// segment. It fails with ResRESOURCE if rounding the request up to the
// grain would overflow, or ResCOMMIT_LIMIT if honoring the
// request would exceed the arena's commit limit — mirroring the two
// distinct out-of-memory reasons §7 calls out.
func (a *Arena) SegAlloc(size core.Size, pool PoolOwner, pref SegPref) (*Seg, core.Res) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if uint64(size) > ^uint64(0)-(uint64(a.grain)-1) {
		return nil, core.ResRESOURCE
	}
	grainSize := core.SizeAlignUp(size, a.grain)
	if grainSize == 0 {
		grainSize = a.grain
	}

	a.mu.Lock()
	if a.commitLimit > 0 && a.committed+grainSize > a.commitLimit {
		a.mu.Unlock()
		a.metrics.ObserveSegAllocFail()
		a.emit(event.SegAllocFail, event.F("size", size), event.F("reason", "commit limit"))
		return nil, core.ResCOMMIT_LIMIT
	}
	a.mu.Unlock()

	base := a.findFreeRun(grainSize)
	limit := base + core.Addr(grainSize)
	class := vanillaClass
	if pref.GC {
		class = gcClass
	}
	seg := &Seg{
		arena: a,
		class: class,
		state: segStateValid,
		base:  base,
		limit: limit,
		pool:  pool,
	}
	if pref.GC {
		seg.rankSet = core.RankSetSingle(pref.Rank)
	}

	for addr := base; addr < limit; addr += core.Addr(a.grain) {
		t := a.tracts.insert(addr)
		t.pool = pool
		t.seg = seg
	}
	class.init(seg, pool)

	a.mu.Lock()
	a.committed += grainSize
	a.mu.Unlock()
	a.metrics.SetCommitted(float64(a.committed))
	a.metrics.ObserveSegAlloc()
	a.emit(event.SegAlloc, event.F("base", base), event.F("size", grainSize), event.F("class", class.name))

	return seg, core.ResOK
}

// SegFree releases seg's tracts back to the free pool. Per §4.5/§4.6, it
// runs the lifecycle in order: lower any shield mode still set on the
// segment, run the class's finish (which, for a GC segment, defensively
// unlinks any remaining grey-ring membership, refuses a segment with a
// live buffer, and unthreads it from the owning pool's segment ring),
// flush the shield, then release the covering tracts.
func (a *Arena) SegFree(seg *Seg) {
	a.lock.Lock()
	defer a.lock.Unlock()

	seg.checkValid()

	if seg.sm&registry.AccessREAD != 0 {
		seg.lowerShield(registry.AccessREAD)
	}
	if seg.sm&registry.AccessWRITE != 0 {
		seg.lowerShield(registry.AccessWRITE)
	}

	seg.class.finish(seg)
	a.shield.Flush(seg)

	grainSize := core.Size(seg.limit - seg.base)
	for addr := seg.base; addr < seg.limit; addr += core.Addr(a.grain) {
		a.tracts.remove(addr)
	}
	seg.state = segStateInvalid

	a.mu.Lock()
	a.committed -= grainSize
	a.mu.Unlock()
	a.metrics.SetCommitted(float64(a.committed))
	a.metrics.ObserveSegFree()
	a.emit(event.SegFree, event.F("base", seg.base), event.F("size", grainSize))
}

// SegOfAddr returns the segment covering addr, if any.
func (a *Arena) SegOfAddr(addr core.Addr) (*Seg, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	t := a.tracts.find(addr)
	if t == nil || t.seg == nil {
		return nil, false
	}
	return t.seg, true
}

// SegFirst returns the first segment in base-address order, or false if
// the arena holds none.
func (a *Arena) SegFirst() (*Seg, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	for t := a.tracts.first(); t != nil; t = a.tracts.next(t) {
		if t.seg != nil && t.seg.base == t.base {
			return t.seg, true
		}
	}
	return nil, false
}

// SegNext returns the segment whose base immediately follows seg's, or
// false if seg is the last one.
func (a *Arena) SegNext(seg *Seg) (*Seg, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	ts := a.tracts.tracts
	lo, hi := 0, len(ts)
	for lo < hi {
		mid := (lo + hi) / 2
		if ts[mid].base < seg.limit {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for ; lo < len(ts); lo++ {
		if t := ts[lo]; t.seg != nil && t.seg.base == t.base {
			return t.seg, true
		}
	}
	return nil, false
}

// findFreeRun is the reference allocator's placement strategy: first-fit
// over the grain-sized gaps between allocated tracts, using the tract
// table's occupancy bitset (bitset.BitSet.FirstUnsetFrom) to skip whole
// fully-occupied words instead of probing one grain at a time. Real
// address-space reservation is out of scope (§1 Non-goals); this operates
// over an abstract, effectively unbounded address space starting at
// grain*1 (grain index 0), growing the bitset on demand.
func (a *Arena) findFreeRun(size core.Size) core.Addr {
	grains := (uint64(size) + uint64(a.grain) - 1) / uint64(a.grain)
	start := uint64(0)
	for {
		a.tracts.ensureCapacity(start + grains)
		idx, ok := a.tracts.occupied.FirstUnsetFrom(start)
		if !ok {
			idx = a.tracts.occupied.Bits()
		}
		if idx != start {
			start = idx
			continue
		}
		run := uint64(1)
		for run < grains {
			if a.tracts.occupied.IsSet(start + run) {
				break
			}
			run++
		}
		if run == grains {
			return core.Addr((start + 1) * uint64(a.grain))
		}
		start += run
	}
}

var _ registry.Member = (*Arena)(nil)
