// Package pool provides a minimal reference pool, shaped like the
// source's MV (manual variable) pool class: first-fit free-list
// allocation within pool-owned segments, no garbage collection. It exists
// to exercise package arena end-to-end (SegAlloc/SegFree, the tract
// table, PoolOwner) the way the teacher's indexer package exists to
// exercise poolregistry end-to-end rather than to be a production
// allocator.
package pool

import (
	"fmt"
	"io"
	"sync"

	"github.com/mpscore/mps/arena"
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
)

// freeBlock is one run of free space within a segment.
type freeBlock struct {
	base core.Addr
	size core.Size
}

// segEntry tracks one segment this pool owns and its free list.
type segEntry struct {
	seg   *arena.Seg
	free  []freeBlock
}

// Pool is a manual-variable-style pool: callers Alloc/Free variable-size
// blocks, the pool grows by requesting new segments from its arena as
// existing ones fill up.
type Pool struct {
	mu      sync.Mutex
	serial  uint64
	name    string
	a       *arena.Arena
	grain   core.Size
	segs    []*segEntry
	segRing *arena.Ring // threaded by a GC segment's init/finish, §4.6
	sink    event.Sink
}

// Config configures a new Pool.
type Config struct {
	Name  string
	Arena *arena.Arena
	Grain core.Size
	Sink  event.Sink
}

var serials uint64
var serialMu sync.Mutex

func nextSerial() uint64 {
	serialMu.Lock()
	defer serialMu.Unlock()
	serials++
	return serials
}

// New constructs a Pool bound to cfg.Arena.
func New(cfg Config) (*Pool, error) {
	if cfg.Arena == nil {
		return nil, fmt.Errorf("pool: Config.Arena is required")
	}
	if cfg.Grain == 0 {
		cfg.Grain = cfg.Arena.Grain()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = event.NopSink{}
	}
	return &Pool{
		serial:  nextSerial(),
		name:    cfg.Name,
		a:       cfg.Arena,
		grain:   cfg.Grain,
		segRing: arena.NewRing(),
		sink:    sink,
	}, nil
}

// PoolSerial, PoolName, PoolGrain and PoolSegRing satisfy arena.PoolOwner.
func (p *Pool) PoolSerial() uint64    { return p.serial }
func (p *Pool) PoolName() string      { return p.name }
func (p *Pool) PoolGrain() core.Size  { return p.grain }
func (p *Pool) PoolSegRing() *arena.Ring { return p.segRing }

// Alloc returns size bytes of storage owned by this pool, requesting a
// fresh segment from the arena if no existing segment has room.
func (p *Pool) Alloc(size core.Size) (core.Addr, core.Res) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, se := range p.segs {
		if addr, ok := se.allocFrom(size); ok {
			return addr, core.ResOK
		}
	}

	segSize := core.SizeAlignUp(size, p.a.Grain())
	if segSize < p.grain {
		segSize = p.grain
	}
	seg, res := p.a.SegAlloc(segSize, p, arena.SegPref{})
	if res != core.ResOK {
		return 0, res
	}
	se := &segEntry{seg: seg, free: []freeBlock{{base: seg.Base(), size: core.Size(seg.Limit() - seg.Base())}}}
	p.segs = append(p.segs, se)

	addr, ok := se.allocFrom(size)
	if !ok {
		return 0, core.ResRESOURCE
	}
	return addr, core.ResOK
}

// Free returns a block previously handed out by Alloc back to its
// segment's free list; once a segment is entirely free, it is released
// back to the arena.
func (p *Pool) Free(addr core.Addr, size core.Size) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, se := range p.segs {
		if addr >= se.seg.Base() && addr < se.seg.Limit() {
			se.free = append(se.free, freeBlock{base: addr, size: size})
			se.coalesce()
			if se.isEntirelyFree() {
				p.a.SegFree(se.seg)
				p.segs = append(p.segs[:i], p.segs[i+1:]...)
			}
			return
		}
	}
}

func (se *segEntry) allocFrom(size core.Size) (core.Addr, bool) {
	for i, fb := range se.free {
		if core.Size(fb.size) >= size {
			addr := fb.base
			if fb.size == size {
				se.free = append(se.free[:i], se.free[i+1:]...)
			} else {
				se.free[i] = freeBlock{base: fb.base + core.Addr(size), size: fb.size - size}
			}
			return addr, true
		}
	}
	return 0, false
}

func (se *segEntry) isEntirelyFree() bool {
	if len(se.free) != 1 {
		return false
	}
	total := core.Size(se.seg.Limit() - se.seg.Base())
	return se.free[0].base == se.seg.Base() && se.free[0].size == total
}

// coalesce merges adjacent free blocks; the free list is kept small
// enough (one segment's worth of blocks) that a simple O(n^2) pass is
// adequate.
func (se *segEntry) coalesce() {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(se.free); i++ {
			for j := i + 1; j < len(se.free); j++ {
				a, b := se.free[i], se.free[j]
				if a.base+core.Addr(a.size) == b.base {
					se.free[i].size += b.size
					se.free = append(se.free[:j], se.free[j+1:]...)
					changed = true
					break
				}
				if b.base+core.Addr(b.size) == a.base {
					se.free[j].size += a.size
					se.free[i] = se.free[j]
					se.free = append(se.free[:j], se.free[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
}

// Describe writes a structural dump of the pool's segments and free
// lists, per §6.
func (p *Pool) Describe(w io.Writer, depth int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := event.WriteLine(w, depth, "Pool %q serial=%d segs=%d", p.name, p.serial, len(p.segs)); err != nil {
		return err
	}
	for _, se := range p.segs {
		if err := se.seg.Describe(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
