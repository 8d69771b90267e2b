package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/core"
)

func TestTractTableInsertFindRemove(t *testing.T) {
	tt := newTractTable(4096)
	tr := tt.insert(core.Addr(4096))
	require.Same(t, tr, tt.find(core.Addr(4096)))
	require.Nil(t, tt.find(core.Addr(8192)))

	tt.remove(core.Addr(4096))
	require.Nil(t, tt.find(core.Addr(4096)))
}

func TestTractTableFindAlignsDownToGrain(t *testing.T) {
	tt := newTractTable(4096)
	tt.insert(core.Addr(4096))
	require.Same(t, tt.find(core.Addr(4096)), tt.find(core.Addr(4096+100)))
}

func TestTractTableFirstNextWalkInSortedOrder(t *testing.T) {
	tt := newTractTable(4096)
	tt.insert(core.Addr(3 * 4096))
	tt.insert(core.Addr(1 * 4096))
	tt.insert(core.Addr(2 * 4096))

	first := tt.first()
	require.Equal(t, core.Addr(4096), first.Base())

	second := tt.next(first)
	require.Equal(t, core.Addr(2*4096), second.Base())

	third := tt.next(second)
	require.Equal(t, core.Addr(3*4096), third.Base())

	require.Nil(t, tt.next(third))
}

func TestTractTableOccupancyBitsetTracksGrainIndex(t *testing.T) {
	tt := newTractTable(4096)
	idx := tt.grainIndex(core.Addr(4096))
	require.Equal(t, uint64(0), idx)

	tt.insert(core.Addr(4096))
	require.True(t, tt.occupied.IsSet(idx))

	tt.remove(core.Addr(4096))
	require.False(t, tt.occupied.IsSet(idx))
}

func TestTractTableEnsureCapacityGrowsWithoutLosingExistingBits(t *testing.T) {
	tt := newTractTable(4096)
	tt.insert(core.Addr(4096))
	before := tt.occupied.Bits()

	tt.ensureCapacity(before + 1000)
	require.Greater(t, tt.occupied.Bits(), before)
	require.True(t, tt.occupied.IsSet(tt.grainIndex(core.Addr(4096))))
}
