package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/registry"
)

func TestPeekExposesShieldedSegment(t *testing.T) {
	a, sh := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{})
	seg.pm |= registry.AccessREAD

	res := a.Peek(seg.Base())
	require.Equal(t, core.ResOK, res)
	require.Len(t, sh.exposed, 1)
	require.Same(t, seg, sh.exposed[0])
}

func TestPeekOnUnmappedAddrFails(t *testing.T) {
	a, _ := newTestArena(t)
	require.Equal(t, core.ResFAIL, a.Peek(0xdead0000))
}

func TestPokeLowersWriteProtectionAndWidensGCSummary(t *testing.T) {
	a, sh := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{GC: true})
	seg.pm |= registry.AccessWRITE

	var ref core.Ref
	ref[len(ref)-1] = 3
	res := a.Poke(seg.Base(), ref)
	require.Equal(t, core.ResOK, res)
	require.Len(t, sh.lowered, 1)
	require.Equal(t, registry.AccessMode(0), seg.pm&registry.AccessWRITE)
	require.True(t, seg.Summary().Contains(ref))
}

func TestPokeOnVanillaSegmentDoesNotTouchSummary(t *testing.T) {
	a, _ := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{})

	var ref core.Ref
	res := a.Poke(seg.Base(), ref)
	require.Equal(t, core.ResOK, res)
	require.Equal(t, core.ZoneSetEMPTY, seg.Summary())
}

func TestReadAndWriteCoverMultiGrainRanges(t *testing.T) {
	a, _ := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(3*4096, p, SegPref{GC: true})
	seg.pm |= registry.AccessREAD | registry.AccessWRITE

	require.Equal(t, core.ResOK, a.Read(seg.Base(), seg.Size()))
	require.Equal(t, core.ResOK, a.Write(seg.Base(), seg.Size()))
	require.True(t, seg.Summary().IsUniv())
}

func TestWriteFailsWhenRangeEscapesMappedSegments(t *testing.T) {
	a, _ := newTestArena(t)
	p := &fakePoolOwner{serial: 1, name: "p", grain: 4096}
	seg, _ := a.SegAlloc(4096, p, SegPref{})

	require.Equal(t, core.ResFAIL, a.Write(seg.Base(), core.Size(2*4096)))
}
