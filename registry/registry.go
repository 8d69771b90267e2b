// Package registry implements §4.1's global arena registry: the
// process-wide ring of live arenas, the global lock that protects it and
// orders serial assignment, and the access-fault dispatch that walks the
// ring to find which arena (if any) owns a faulting address.
//
// registry never imports package arena: arenas register themselves as a
// Member, an interface registry defines. This keeps the dependency arrow
// pointing one way (arena -> registry) the way the teacher's chains
// package defines the Client/Logger/Indexer interfaces its concrete chain
// clients satisfy, rather than importing a concrete client package.
package registry

import (
	"sync"

	"github.com/mpscore/mps/core"
)

// AccessMode is the access-fault mode mask, {READ, WRITE} per §3/§4.1.
type AccessMode uint8

const (
	AccessREAD AccessMode = 1 << iota
	AccessWRITE
)

// Member is what an arena must provide to participate in the global
// registry: enough to lock/unlock it for ClaimAll/ReleaseAll, identify it
// by its assigned serial, and let it attempt to resolve an access fault.
type Member interface {
	// Lock/Unlock claim and release the member's own (per-arena) lock.
	// They must be safe to call while the registry lock is held.
	Lock()
	Unlock()

	// Serial returns the serial number assigned at announce time.
	Serial() uint64

	// TryAccess attempts to resolve a fault at addr with the given mode
	// against this member's own address space. It returns true if this
	// member owns addr (regardless of whether the fault could be fully
	// resolved) — false lets the dispatcher move on to the next member.
	// The caller holds this member's lock for the duration of the call.
	TryAccess(addr core.Addr, mode AccessMode) bool
}

// Registry is the process-wide ring of live arenas plus the lock ordering
// §4.1 and §5 specify: global lock, then ring traversal, then (for
// ArenaAccess) one member's own lock — released before moving to the next
// candidate so a single slow member cannot stall fault dispatch for every
// other arena.
type Registry struct {
	global core.ReentrantMutex // "global lock": ring + serial counter
	mu     sync.Mutex          // protects members slice itself
	members []Member
	serial  uint64
	inited  bool
}

// global is the single process-wide registry; every arena announces to it.
// Modeled as a lazily-initialized top-level structure per §9's design note
// ("module-level state... initialized on first arena creation; tear-down
// is deliberately absent").
var global = &Registry{}

// Global returns the process-wide registry.
func Global() *Registry { return global }

// NextSerial claims the global lock, assigns the next serial, and marks
// the registry initialized. Called once per arena, before the arena's own
// lock is first acquired (§4.1: "appended under the ring lock only after
// its globals are initialized and its lock acquired" — the serial itself
// is handed out first, ahead of that append).
func (r *Registry) NextSerial() uint64 {
	r.global.Lock()
	defer r.global.Unlock()
	r.inited = true
	r.serial++
	return r.serial
}

// Announce adds m to the ring. The caller must already hold m's lock (per
// §4.1: a newly created arena is appended only after its lock is
// acquired); Announce itself claims the registry's own lock around the
// slice mutation.
func (r *Registry) Announce(m Member) {
	r.global.Lock()
	defer r.global.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
}

// Denounce removes m from the ring. Per §4.1's deadlock-avoidance order,
// the caller is expected to have released m's own lock before calling
// Denounce and to reacquire it only after Denounce returns, if at all; the
// registry only ever takes its own locks here, never m's.
func (r *Registry) Denounce(m Member) {
	r.global.Lock()
	defer r.global.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cand := range r.members {
		if cand == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// Access walks the ring looking for a member that owns addr, claiming the
// global lock for the walk and each member's own lock only while that one
// member is examined (§4.1 ArenaAccess). It returns true as soon as a
// member reports ownership, false if no arena owns the address (the fault
// is not the MPS's to resolve).
func (r *Registry) Access(addr core.Addr, mode AccessMode) bool {
	r.global.Lock()
	defer r.global.Unlock()

	r.mu.Lock()
	snapshot := make([]Member, len(r.members))
	copy(snapshot, r.members)
	r.mu.Unlock()

	for _, m := range snapshot {
		m.Lock()
		hit := m.TryAccess(addr, mode)
		m.Unlock()
		if hit {
			return true
		}
	}
	return false
}

// ClaimAll takes the global lock, then claims every member's own lock in
// ring order, for fork-safety (§4.1). It does not release the global lock;
// the caller must call ReleaseAll (which releases in exactly the reverse
// order) before anything else can announce, denounce, or access.
func (r *Registry) ClaimAll() []Member {
	r.global.Lock()
	r.mu.Lock()
	snapshot := make([]Member, len(r.members))
	copy(snapshot, r.members)
	r.mu.Unlock()

	for _, m := range snapshot {
		m.Lock()
	}
	return snapshot
}

// ReleaseAll unwinds a ClaimAll exactly: member locks released in reverse
// claim order, then the global lock.
func (r *Registry) ReleaseAll(claimed []Member) {
	for i := len(claimed) - 1; i >= 0; i-- {
		claimed[i].Unlock()
	}
	r.global.Unlock()
}

// ReinitializeAll resets the registry's own lock in place, for a forked
// child that inherited the parent's locks in an undefined (possibly held)
// state. It does not touch member locks; each arena resets its own lock
// the same way when the child calls its post-fork hook.
func (r *Registry) ReinitializeAll() {
	r.global = core.ReentrantMutex{}
	r.mu = sync.Mutex{}
}

// PrepareFork is ClaimAll under the name the fork-safety triple uses: call
// it immediately before calling the real fork(2) (or, in Go, before
// os/exec-free process duplication via a cgo shim), so no other goroutine
// can be mid-mutation of any arena when the child copies the address
// space.
func (r *Registry) PrepareFork() []Member { return r.ClaimAll() }

// ParentAfterFork is ReleaseAll under the fork-safety triple's name,
// called in the parent immediately after fork returns.
func (r *Registry) ParentAfterFork(claimed []Member) { r.ReleaseAll(claimed) }

// ChildAfterFork is ReinitializeAll under the fork-safety triple's name,
// called in the child immediately after fork returns: every lock the
// child inherited may be held by a thread that no longer exists in this
// process, so the registry's own lock is reset in place rather than
// unlocked.
func (r *Registry) ChildAfterFork() { r.ReinitializeAll() }

// Len reports how many arenas are currently announced. Used by tests and
// by Testable Property 7 (post-denounce unreachability).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Contains reports whether m is currently announced.
func (r *Registry) Contains(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cand := range r.members {
		if cand == m {
			return true
		}
	}
	return false
}
