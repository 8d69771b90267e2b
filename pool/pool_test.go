package pool

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/arena"
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/policy"
	"github.com/mpscore/mps/registry"
)

// noopShield satisfies arena.Shield without recording anything; these
// tests only care about the pool's own allocation bookkeeping.
type noopShield struct{}

func (noopShield) Raise(*arena.Seg, registry.AccessMode) {}
func (noopShield) Lower(*arena.Seg, registry.AccessMode) {}
func (noopShield) Enter()                                {}
func (noopShield) Leave()                                {}
func (noopShield) Flush(*arena.Seg)                      {}
func (noopShield) Expose(*arena.Seg)                     {}
func (noopShield) Cover(*arena.Seg)                       {}

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, err := arena.New(arena.Config{
		Grain:  4096,
		Policy: policy.NewDefault(1<<10, time.Second),
		Shield: noopShield{},
	})
	require.NoError(t, err)
	return a
}

func TestAllocRequestsSegmentOnFirstUse(t *testing.T) {
	a := newTestArena(t)
	p, err := New(Config{Name: "p1", Arena: a})
	require.NoError(t, err)

	addr, res := p.Alloc(128)
	require.Equal(t, core.ResOK, res)
	require.NotZero(t, addr)
}

func TestAllocReusesExistingSegmentBeforeRequestingAnother(t *testing.T) {
	a := newTestArena(t)
	p, err := New(Config{Name: "p1", Arena: a, Grain: 4096})
	require.NoError(t, err)

	_, res := p.Alloc(128)
	require.Equal(t, core.ResOK, res)
	require.Len(t, p.segs, 1)

	_, res = p.Alloc(128)
	require.Equal(t, core.ResOK, res)
	require.Len(t, p.segs, 1, "second small alloc should fit in the first segment")
}

func TestFreeCoalescesAndReleasesEmptySegment(t *testing.T) {
	a := newTestArena(t)
	p, err := New(Config{Name: "p1", Arena: a, Grain: 4096})
	require.NoError(t, err)

	addr, res := p.Alloc(4096)
	require.Equal(t, core.ResOK, res)
	require.Len(t, p.segs, 1)

	p.Free(addr, 4096)
	require.Len(t, p.segs, 0, "fully-freed segment should be released back to the arena")
}

func TestPoolSerialIsStableAndUnique(t *testing.T) {
	a := newTestArena(t)
	p1, err := New(Config{Name: "p1", Arena: a})
	require.NoError(t, err)
	p2, err := New(Config{Name: "p2", Arena: a})
	require.NoError(t, err)

	require.NotEqual(t, p1.PoolSerial(), p2.PoolSerial())
}

func TestNewRequiresArena(t *testing.T) {
	_, err := New(Config{Name: "p1"})
	require.Error(t, err)
}

func TestDescribeIncludesNameAndSegments(t *testing.T) {
	a := newTestArena(t)
	p, err := New(Config{Name: "p1", Arena: a})
	require.NoError(t, err)
	_, res := p.Alloc(128)
	require.Equal(t, core.ResOK, res)

	var buf strings.Builder
	require.NoError(t, p.Describe(&buf, 0))
	require.Contains(t, buf.String(), "p1")
}
