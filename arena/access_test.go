package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/registry"
)

func TestTryAccessLowersProtectionAndRetries(t *testing.T) {
	a, sh := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{})
	seg.pm |= registry.AccessREAD

	ok := a.TryAccess(seg.Base(), registry.AccessREAD)
	require.True(t, ok)
	require.Len(t, sh.lowered, 1)
	require.Equal(t, registry.AccessMode(0), seg.pm&registry.AccessREAD)
}

func TestTryAccessOnUnmappedAddrReturnsFalse(t *testing.T) {
	a, _ := newTestArena(t)
	require.False(t, a.TryAccess(0xdead0000, registry.AccessREAD))
}

func TestTryAccessOnWriteRecordsWriteFaultAndWidensGCSummary(t *testing.T) {
	a, _ := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{GC: true})
	seg.pm |= registry.AccessWRITE

	ok := a.TryAccess(seg.Base(), registry.AccessWRITE)
	require.True(t, ok)
	require.True(t, seg.Summary().IsUniv())
}

func TestTryAccessDispatchesThroughRegistry(t *testing.T) {
	a, _ := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{})
	seg.pm |= registry.AccessREAD

	ok := registry.Global().Access(seg.Base(), registry.AccessREAD)
	require.True(t, ok)
}
