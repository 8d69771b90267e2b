package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZoneSetAddContains(t *testing.T) {
	var ref Ref
	ref[len(ref)-1] = 5

	zs := ZoneSetEMPTY.Add(ref)
	require.True(t, zs.Contains(ref))
	require.False(t, zs.IsEmpty())
}

func TestZoneSetUnivIsSuperset(t *testing.T) {
	var ref Ref
	ref[len(ref)-1] = 42
	require.True(t, ZoneSetUNIV.Contains(ref))
	require.True(t, ZoneSetUNIV.IsUniv())
}

func TestZoneSetSub(t *testing.T) {
	var a, b Ref
	a[len(a)-1] = 1
	b[len(b)-1] = 2

	zs := ZoneSetEMPTY.Add(a)
	union := zs.Union(ZoneSetEMPTY.Add(b))
	require.True(t, zs.Sub(union))
	require.False(t, union.Sub(zs))
}

func TestZoneOfWrapsModZoneCount(t *testing.T) {
	var ref Ref
	ref[len(ref)-1] = 200
	z := ZoneOf(ref)
	require.Less(t, z, uint(64))
}
