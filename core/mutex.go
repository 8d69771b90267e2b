package core

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Mutex wraps sync.Mutex so locking.Mutex-style wrapper packages (the
// teacher's internal/locking pattern: a thin struct satisfying
// sync.Locker, swappable for a deadlock-detecting build) have a single
// seam to extend without touching call sites.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }

// ReentrantMutex is a mutex that the same goroutine may claim more than
// once without deadlocking, unlocking it for good only on the matching
// number of Unlock calls. The arena lock and the global registry lock both
// need this: §4.1 calls out recursive claim paths (mps_arena_has_addr,
// access-fault dispatch re-entering an already-claimed arena) and the
// fork-safety ClaimAll/ReleaseAll pair that walks every arena while holding
// the registry lock continuously.
//
// Go has no supported way to read the current goroutine's id, so this
// parses it out of a runtime.Stack frame the same way a handful of
// reentrant-lock shims in the ecosystem do; it is used only to recognize
// "is this the same goroutine that already holds the lock", never for
// scheduling decisions.
type ReentrantMutex struct {
	mu    sync.Mutex
	owner int64 // goroutine id of the current holder, 0 if unheld
	depth int
	cond  *sync.Cond
}

func (m *ReentrantMutex) init() {
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
}

// Lock claims the mutex. If the calling goroutine already holds it, the
// claim nests (Depth increases) instead of blocking.
func (m *ReentrantMutex) Lock() {
	gid := goroutineID()
	m.mu.Lock()
	m.init()
	for m.depth > 0 && m.owner != gid {
		m.cond.Wait()
	}
	m.owner = gid
	m.depth++
	m.mu.Unlock()
}

// Unlock releases one level of claim. Once Depth reaches zero the mutex is
// free for another goroutine to claim.
func (m *ReentrantMutex) Unlock() {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 || m.owner != gid {
		panic("core: ReentrantMutex.Unlock by non-owner")
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.cond.Signal()
	}
}

// Depth reports how many nested claims the current goroutine holds (0 if
// it holds none). Useful for asserting re-entrancy invariants in tests.
func (m *ReentrantMutex) Depth() int {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != gid {
		return 0
	}
	return m.depth
}

// HeldByCaller reports whether the calling goroutine currently holds the
// lock (at any depth).
func (m *ReentrantMutex) HeldByCaller() bool {
	return m.Depth() > 0
}

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// "goroutine 123 [running]:"
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
