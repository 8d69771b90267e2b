package core

import "github.com/ethereum/go-ethereum/common"

// Ref stands in for a reference (a pointer the real MPS would scan). The
// core never dereferences a Ref; it only needs to place it into a zone
// stripe for the summary/white/grey/nailed reference-set machinery. Reusing
// common.Hash (rather than a bespoke 32-byte array) keeps the same
// fixed-width, comparable, map-key-friendly type the teacher uses for
// addresses and hashes throughout its protocol packages.
type Ref = common.Hash

// ZoneSet is a reference-set overapproximation: a bitset over "zone
// stripes" of the address space, the same representation the source uses
// for segment summaries. A reference's zone is derived from its low-order
// bits, so two references that alias the same zone stripe are
// indistinguishable to the summary — this is deliberate approximation, not
// a bug.
type ZoneSet uint64

// zoneCount sets how many zones a Ref can fall into. A real MPS tunes
// this to the platform's grain size; here it is fixed at the low 6 bits of
// the last byte, giving 64 zones independent of grain configuration.
const zoneCount = 64

// ZoneSetEMPTY is the empty zone-set: "this segment holds no references".
const ZoneSetEMPTY ZoneSet = 0

// ZoneSetUNIV is the universal zone-set: "this segment may hold references
// to any zone", i.e. no information / no barrier benefit.
const ZoneSetUNIV ZoneSet = ^ZoneSet(0)

// ZoneOf returns the zone stripe a Ref falls into.
func ZoneOf(ref Ref) uint {
	return uint(ref[len(ref)-1]) % zoneCount
}

// Add returns zs with the zone containing ref added.
func (zs ZoneSet) Add(ref Ref) ZoneSet {
	return zs | (ZoneSet(1) << ZoneOf(ref))
}

// AddZone returns zs with zone z added directly.
func (zs ZoneSet) AddZone(z uint) ZoneSet {
	return zs | (ZoneSet(1) << (z % zoneCount))
}

// Union returns the union of zs and other.
func (zs ZoneSet) Union(other ZoneSet) ZoneSet {
	return zs | other
}

// Inter returns the intersection of zs and other.
func (zs ZoneSet) Inter(other ZoneSet) ZoneSet {
	return zs & other
}

// IsUniv reports whether zs covers every zone, i.e. carries no information.
func (zs ZoneSet) IsUniv() bool {
	return zs == ZoneSetUNIV
}

// IsEmpty reports whether zs is empty.
func (zs ZoneSet) IsEmpty() bool {
	return zs == ZoneSetEMPTY
}

// Sub reports whether zs is a (possibly non-strict) subset of other.
func (zs ZoneSet) Sub(other ZoneSet) bool {
	return zs&^other == 0
}

// Contains reports whether the zone containing ref is a member of zs.
func (zs ZoneSet) Contains(ref Ref) bool {
	return zs&(ZoneSet(1)<<ZoneOf(ref)) != 0
}
