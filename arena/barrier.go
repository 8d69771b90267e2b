package arena

import (
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/registry"
)

// Peek reads one reference-sized slot through the read barrier (§4.4): if
// the segment is grey for any trace that has flipped, reading through it
// could leak an unmarked white reference, so that trace's colour is
// scanned out of the segment first; only once no flipped trace can still
// be fooled does the shield get asked to expose the segment (paired with
// Cover, per §4.7) for the actual read. The arena itself doesn't know how
// to decode the slot's bytes (that's a pool/format concern); Peek returns
// ResOK once addr's segment has passed through the read barrier (whether
// or not it needed exposing), ResFAIL if no segment covers addr.
func (a *Arena) Peek(addr core.Addr) core.Res {
	a.lock.Lock()
	defer a.lock.Unlock()

	t := a.tracts.find(addr)
	if t == nil || t.seg == nil {
		return core.ResFAIL
	}
	a.barrierRead(t.seg)
	return core.ResOK
}

// barrierRead implements the read-barrier half of §4.4 shared by Peek and
// Read: scan-before-read when the segment is grey for a flipped trace,
// then the plain expose/cover dance if the segment's protection still
// calls for it.
func (a *Arena) barrierRead(seg *Seg) {
	if flippedGrey := seg.Grey().Inter(a.flippedTraces); !flippedGrey.IsEmpty() {
		a.scanBeforeRead(seg, flippedGrey)
	}
	if seg.pm&registry.AccessREAD != 0 {
		a.shield.Expose(seg)
		a.shield.Cover(seg)
	}
}

// scanBeforeRead performs a single-reference scan of seg for every trace
// in traces: the mutator is about to read a reference out of a segment
// that trace hasn't finished scanning, so the trace must account for that
// reference's segment before the read is allowed to proceed, the same
// guarantee scanOneGreyRank gives a full incremental step but narrowed to
// exactly the traces the read is in danger of racing. Routed through
// SetGrey so grey-ring linkage and the read shield stay consistent.
func (a *Arena) scanBeforeRead(seg *Seg, traces core.TraceSet) {
	for id := 0; id < core.TraceLimit; id++ {
		tid := core.TraceId(id)
		if !traces.Is(tid) {
			continue
		}
		seg.SetGrey(seg.Grey().Del(tid))
		if tr := a.traces[tid]; tr != nil {
			tr.reclaimed += seg.Size()
		}
	}
}

// Poke writes one reference-sized slot through the write barrier (§4.4):
// lowers write protection via the shield if the mutator's own write needs
// it (a cooperative stand-in for the hardware trap a real protected write
// would take), widens the segment's summary to cover the new reference's
// zone (which drives the write shield's own raise/lower through
// SetSummary on the wider UNIV transition), and flags the write fault
// event path the same way a real hardware trap would.
func (a *Arena) Poke(addr core.Addr, newRef core.Ref) core.Res {
	a.lock.Lock()
	defer a.lock.Unlock()

	t := a.tracts.find(addr)
	if t == nil || t.seg == nil {
		return core.ResFAIL
	}
	seg := t.seg
	if seg.pm&registry.AccessWRITE != 0 {
		a.shield.Lower(seg, registry.AccessWRITE)
		seg.pm &^= registry.AccessWRITE
	}
	if seg.class == gcClass {
		seg.SetSummary(seg.Summary().Add(newRef))
	}
	a.emit(event.ArenaWriteFaults, event.F("base", seg.base))
	return core.ResOK
}

// Read performs a barrier-mediated read of size bytes starting at addr,
// returning ResFAIL if any grain of the range is not covered by a
// segment. It is the bulk
// counterpart to Peek, for pools that read a block at a time rather than
// one reference.
func (a *Arena) Read(addr core.Addr, size core.Size) core.Res {
	a.lock.Lock()
	defer a.lock.Unlock()
	end := addr + core.Addr(size)
	for cur := addr; cur < end; cur += core.Addr(a.grain) {
		t := a.tracts.find(cur)
		if t == nil || t.seg == nil {
			return core.ResFAIL
		}
		a.barrierRead(t.seg)
	}
	return core.ResOK
}

// Write is the bulk counterpart to Poke, widening every covered
// segment's summary to the universal set rather than tracking individual
// references, since a bulk write's contents aren't known reference by
// reference.
func (a *Arena) Write(addr core.Addr, size core.Size) core.Res {
	a.lock.Lock()
	defer a.lock.Unlock()
	end := addr + core.Addr(size)
	for cur := addr; cur < end; cur += core.Addr(a.grain) {
		t := a.tracts.find(cur)
		if t == nil || t.seg == nil {
			return core.ResFAIL
		}
		seg := t.seg
		if seg.pm&registry.AccessWRITE != 0 {
			a.shield.Lower(seg, registry.AccessWRITE)
			seg.pm &^= registry.AccessWRITE
		}
		if seg.class == gcClass {
			seg.SetSummary(core.ZoneSetUNIV)
		}
		a.recordWriteFault(seg)
	}
	return core.ResOK
}
