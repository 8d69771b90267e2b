// Package arena implements §3's Arena and §4.5/§4.6's Segment together in
// one package: the spec ties them too tightly to separate cleanly in Go
// without an import cycle (segments mutate arena-owned grey rings and the
// arena's tract table; the arena iterates segments by rank and by pool).
// Shield and Pool stay separate packages that import arena, not the other
// way around — arena defines the narrow Shield interface it needs itself,
// the same "accept interfaces" shape the teacher's chains package uses so
// engine never imports a concrete chain client.
package arena

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/policy"
	"github.com/mpscore/mps/registry"
)

// Shield is the narrow contract the arena needs from a shield
// implementation: raise/lower protection around a segment and flush any
// deferred work before the arena exposes memory to the mutator. Defined
// here (not in package shield) so arena has zero dependency on shield;
// package shield's concrete type satisfies this.
type Shield interface {
	Raise(seg *Seg, mode registry.AccessMode)
	Lower(seg *Seg, mode registry.AccessMode)
	Enter()
	Leave()
	Flush(seg *Seg)
	Expose(seg *Seg)
	Cover(seg *Seg)
}

// Config holds everything needed to construct an Arena, following the
// "Config struct + validate()" shape the teacher's chains and streams
// packages use for their client constructors.
type Config struct {
	Grain       core.Size
	CommitLimit core.Size
	Policy      policy.Policy
	Shield      Shield
	Sink        event.Sink
	Metrics     *Metrics
	Logger      core.Logger
}

func (c *Config) validate() error {
	if c.Grain == 0 {
		return fmt.Errorf("arena: Config.Grain must be nonzero")
	}
	if c.Policy == nil {
		return fmt.Errorf("arena: Config.Policy is required")
	}
	if c.Shield == nil {
		return fmt.Errorf("arena: Config.Shield is required")
	}
	return nil
}

// Arena is the top-level arena: the process-wide virtual-address
// reservation plus every ring and piece of bookkeeping §3 lists (pools,
// roots, formats, threads, dead threads, chains, messages, remembered
// summary blocks, the grey-by-rank rings, the fixed trace table, mutator
// accounting, poll/finalization/shield state).
type Arena struct {
	lock   core.ReentrantMutex
	serial uint64

	grain       core.Size
	commitLimit core.Size
	committed   core.Size

	tracts *tractTable

	pools            *Ring
	roots            *Ring
	formats          *Ring
	threads          *Ring
	deadThreads      *Ring
	chains           *Ring
	messages         *Ring
	remSummaryBlocks *Ring
	greyRing         [core.RankLimit]*Ring

	traces       [core.TraceLimit]*Trace
	busyTraces   core.TraceSet
	flippedTraces core.TraceSet

	emergency bool

	// Mutator accounting: monotone counters per §3, never reset, used to
	// derive the working-set metrics ArenaPoll reports to the policy.
	fillMutatorSize  core.Size
	emptyMutatorSize core.Size
	allocMutatorSize core.Size
	fillInternalSize core.Size
	emptyInternalSize core.Size

	isFinalPool bool
	finalPool   PoolOwner

	pollThreshold    core.Size
	insidePoll       bool
	clamped          bool
	lastWorldCollect int64 // unix nanos of last whole-world collection, 0 if none yet

	history  *History
	shield   Shield
	policy   policy.Policy
	metrics  *Metrics
	sink     event.Sink
	logger   core.Logger

	mu    sync.Mutex // protects the fields above that aren't covered by lock's invariant
	state arenaState
}

type arenaState uint8

const (
	arenaStateInvalid arenaState = iota
	arenaStateActive
	arenaStateDestroyed
)

// New constructs an Arena, assigns it a serial from the global registry,
// and announces it — per §4.1, announced only after its own lock has (in
// spirit) been acquired, modeled here by constructing fully before
// exposing the arena to any other goroutine.
func New(cfg Config) (*Arena, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sink := cfg.Sink
	if sink == nil {
		sink = event.NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	a := &Arena{
		grain:       cfg.Grain,
		commitLimit: cfg.CommitLimit,
		tracts:      newTractTable(cfg.Grain),

		pools:            NewRing(),
		roots:            NewRing(),
		formats:          NewRing(),
		threads:          NewRing(),
		deadThreads:      NewRing(),
		chains:           NewRing(),
		messages:         NewRing(),
		remSummaryBlocks: NewRing(),

		shield:  cfg.Shield,
		policy:  cfg.Policy,
		metrics: metrics,
		sink:    sink,
		logger:  logger,
		history: NewHistory(16),
		state:   arenaStateActive,
	}
	for i := range a.greyRing {
		a.greyRing[i] = NewRing()
	}

	a.serial = registry.Global().NextSerial()
	a.lock.Lock()
	registry.Global().Announce(a)
	a.lock.Unlock()

	metrics.ObserveArenaCreated()
	return a, nil
}

// Serial identifies this arena to the global registry.
func (a *Arena) Serial() uint64 { return a.serial }

// Lock and Unlock satisfy registry.Member, claiming the arena's own
// reentrant lock.
func (a *Arena) Lock()   { a.lock.Lock() }
func (a *Arena) Unlock() { a.lock.Unlock() }

// Grain returns the arena's allocation grain.
func (a *Arena) Grain() core.Size { return a.grain }

// CommitLimit returns the current soft ceiling on committed memory.
func (a *Arena) CommitLimit() core.Size {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commitLimit
}

// SetCommitLimit lowers or raises the commit limit. Per §3, it may not be
// set below the amount currently committed.
func (a *Arena) SetCommitLimit(limit core.Size) core.Res {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit < a.committed {
		return core.ResCOMMIT_LIMIT
	}
	a.commitLimit = limit
	return core.ResOK
}

// Committed returns the amount of memory currently committed.
func (a *Arena) Committed() core.Size {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.committed
}

// Emergency reports whether the arena is in the emergency (out-of-memory
// pressure) state §4.2/§6 describe.
func (a *Arena) Emergency() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emergency
}

func (a *Arena) setEmergency(v bool) {
	a.mu.Lock()
	was := a.emergency
	a.emergency = v
	a.mu.Unlock()
	if v && !was {
		a.emit(event.ArenaSetEmergency, event.F("serial", a.serial))
	}
}

// Destroy tears the arena down: denounces it from the global registry and
// marks it invalid. Per §4.1's deadlock-avoidance order, the arena's own
// lock is not held while Denounce runs.
func (a *Arena) Destroy() {
	a.lock.Lock()
	a.state = arenaStateDestroyed
	a.lock.Unlock()

	registry.Global().Denounce(a)
	a.metrics.ObserveArenaDestroyed()
}

// ChildAfterFork resets this arena's own lock after a fork, mirroring
// registry.Registry.ChildAfterFork: the inherited lock may be (logically)
// held by a thread that does not exist in the child process.
func (a *Arena) ChildAfterFork() {
	a.lock = core.ReentrantMutex{}
}

func (a *Arena) emit(kind event.Kind, fields ...event.Field) {
	a.sink.Emit(event.New(kind, time.Now(), fields...))
}

// addGrey links seg onto the grey ring for rank, used by gcSetGrey.
func (a *Arena) addGrey(seg *Seg, rank core.RankSet) {
	if seg.greyNode != nil {
		return
	}
	for r := 0; r < core.RankLimit; r++ {
		if rank.Is(core.Rank(r)) {
			seg.greyNode = a.greyRing[r].Push(seg)
			return
		}
	}
	// No rank set: fall back to rank 0's ring so the segment is still
	// reachable by a full grey scan.
	seg.greyNode = a.greyRing[0].Push(seg)
}

// removeGrey unlinks seg from whichever grey ring it is on.
func (a *Arena) removeGrey(seg *Seg) {
	if seg.greyNode == nil {
		return
	}
	for r := 0; r < core.RankLimit; r++ {
		ring := a.greyRing[r]
		for n := ring.sentinel.next; n != &ring.sentinel; n = n.next {
			if n == seg.greyNode {
				ring.Remove(n)
				seg.greyNode = nil
				return
			}
		}
	}
	seg.greyNode = nil
}

// GreyRing exposes the grey ring for rank r so a trace can scan it.
func (a *Arena) GreyRing(r core.Rank) *Ring {
	return a.greyRing[r]
}

// Describe writes a structural dump of the whole arena, per §6: the
// pool/root/format/thread/chain counts, then every segment via the tract
// table.
func (a *Arena) Describe(w io.Writer, depth int) error {
	a.mu.Lock()
	committed, limit := a.committed, a.commitLimit
	a.mu.Unlock()

	if err := event.WriteLine(w, depth, "Arena serial=%d grain=%d committed=%d commitLimit=%d",
		a.serial, a.grain, committed, limit); err != nil {
		return err
	}
	if err := event.WriteLine(w, depth+1, "pools=%d roots=%d formats=%d threads=%d chains=%d",
		a.pools.Len(), a.roots.Len(), a.formats.Len(), a.threads.Len(), a.chains.Len()); err != nil {
		return err
	}
	for t := a.tracts.first(); t != nil; t = a.tracts.next(t) {
		if t.seg != nil && t.seg.base == t.base {
			if err := t.seg.Describe(w, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
