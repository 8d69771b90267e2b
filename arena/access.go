package arena

import (
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/registry"
)

// TryAccess implements registry.Member for Arena: §4.4's ArenaAccess
// fault path. The registry has already claimed a's lock before calling
// this. It looks up the tract covering addr; if none, this arena does not
// own the fault. If the segment's protection forbids mode, the shield is
// asked to lower protection (emulating the hardware trap being satisfied);
// TryAccess itself does not repeat the access, it returns true so the
// faulting access can be retried by its caller.
func (a *Arena) TryAccess(addr core.Addr, mode registry.AccessMode) bool {
	t := a.tracts.find(addr)
	if t == nil || t.seg == nil {
		return false
	}
	seg := t.seg
	a.emit(event.ArenaAccess, event.F("addr", addr), event.F("mode", mode))

	if seg.pm&mode != 0 {
		a.shield.Lower(seg, mode)
		seg.pm &^= mode
	}
	if mode&registry.AccessWRITE != 0 {
		a.recordWriteFault(seg)
	}
	return true
}

// recordWriteFault updates the remembered-summary-block bookkeeping a
// write fault triggers: the segment's summary can no longer be trusted to
// be empty of the mutator's new reference, so it is widened to the
// universal summary per §4.4/§4.6's conservative rule, and the event
// stream is told a write fault occurred (§6 ArenaWriteFaults).
func (a *Arena) recordWriteFault(seg *Seg) {
	if seg.class == gcClass {
		seg.SetSummary(core.ZoneSetUNIV)
	}
	a.emit(event.ArenaWriteFaults, event.F("base", seg.base))
}
