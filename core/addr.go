package core

import "github.com/holiman/uint256"

// Addr is an address in the arena's managed address space. The core never
// dereferences it; it is an opaque offset used for ordering, alignment, and
// table lookups. A real embedder maps Addr to process memory via the
// tract allocator (see ArenaAlloc/ArenaFree in package arena).
type Addr uint64

// Size is a byte count, always a multiple of some alignment when it
// describes a segment or tract range.
type Size uint64

// AlignUp rounds addr up to the next multiple of align (align must be a
// power of two). The rounding is done with uint256 arithmetic, the same
// overflow-checked fixed-width path the teacher's tickmath package uses for
// its own grain-aligned math, so a Size near the uint64 ceiling is caught
// rather than silently wrapping.
func AlignUp(addr Addr, align Size) Addr {
	if align == 0 {
		return addr
	}
	a := uint256.NewInt(uint64(addr))
	al := uint256.NewInt(uint64(align))
	one := uint256.NewInt(1)

	sum := new(uint256.Int).Add(a, new(uint256.Int).Sub(al, one))
	mask := new(uint256.Int).Sub(al, one)
	notMask := new(uint256.Int).Not(mask)
	result := new(uint256.Int).And(sum, notMask)
	if !result.IsUint64() {
		panic("core: AlignUp overflow")
	}
	return Addr(result.Uint64())
}

// AlignDown rounds addr down to the previous multiple of align.
func AlignDown(addr Addr, align Size) Addr {
	if align == 0 {
		return addr
	}
	return Addr(uint64(addr) &^ (uint64(align) - 1))
}

// IsAligned reports whether addr is a multiple of align.
func IsAligned(addr Addr, align Size) bool {
	if align == 0 {
		return true
	}
	return uint64(addr)&(uint64(align)-1) == 0
}

// SizeAlignUp rounds size up to the next multiple of align.
func SizeAlignUp(size Size, align Size) Size {
	return Size(AlignUp(Addr(size), align))
}
