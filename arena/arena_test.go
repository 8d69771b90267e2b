package arena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/policy"
	"github.com/mpscore/mps/registry"
)

// fakeShield records every call it receives, so tests can assert the
// barrier paths drove it the way §4.4/§4.7 expect.
type fakeShield struct {
	raised, lowered []registry.AccessMode
	entered, left   int
	exposed, cover  []*Seg
}

func (f *fakeShield) Raise(seg *Seg, mode registry.AccessMode) { f.raised = append(f.raised, mode) }
func (f *fakeShield) Lower(seg *Seg, mode registry.AccessMode) { f.lowered = append(f.lowered, mode) }
func (f *fakeShield) Enter()                                   { f.entered++ }
func (f *fakeShield) Leave()                                   { f.left++ }
func (f *fakeShield) Flush(seg *Seg)                            {}
func (f *fakeShield) Expose(seg *Seg)                           { f.exposed = append(f.exposed, seg) }
func (f *fakeShield) Cover(seg *Seg)                            { f.cover = append(f.cover, seg) }

type fakePoolOwner struct {
	serial uint64
	name   string
	grain  core.Size
	ring   *Ring
}

func (p *fakePoolOwner) PoolSerial() uint64 { return p.serial }
func (p *fakePoolOwner) PoolName() string   { return p.name }
func (p *fakePoolOwner) PoolGrain() core.Size { return p.grain }
func (p *fakePoolOwner) PoolSegRing() *Ring {
	if p.ring == nil {
		p.ring = NewRing()
	}
	return p.ring
}

func newTestArena(t *testing.T) (*Arena, *fakeShield) {
	t.Helper()
	sh := &fakeShield{}
	a, err := New(Config{
		Grain:  4096,
		Policy: policy.NewDefault(1<<10, time.Second),
		Shield: sh,
	})
	require.NoError(t, err)
	return a, sh
}
