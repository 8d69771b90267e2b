package core

import "testing"

func TestTraceSetAddDelIs(t *testing.T) {
	ts := TraceSetEmpty
	if !ts.IsEmpty() {
		t.Fatalf("expected empty set")
	}
	ts = ts.Add(3)
	if !ts.Is(3) {
		t.Fatalf("expected trace 3 to be a member")
	}
	if ts.Is(4) {
		t.Fatalf("trace 4 should not be a member")
	}
	ts = ts.Del(3)
	if !ts.IsEmpty() {
		t.Fatalf("expected empty set after Del")
	}
}

func TestTraceSetUnionInterDiff(t *testing.T) {
	a := TraceSetSingle(1).Add(2)
	b := TraceSetSingle(2).Add(3)

	if u := a.Union(b); !u.Is(1) || !u.Is(2) || !u.Is(3) {
		t.Fatalf("union missing members: %v", u)
	}
	if i := a.Inter(b); i != TraceSetSingle(2) {
		t.Fatalf("intersection wrong: %v", i)
	}
	if d := a.Diff(b); d != TraceSetSingle(1) {
		t.Fatalf("diff wrong: %v", d)
	}
}

func TestTraceSetSub(t *testing.T) {
	a := TraceSetSingle(1)
	b := TraceSetSingle(1).Add(2)
	if !a.Sub(b) {
		t.Fatalf("expected a to be a subset of b")
	}
	if b.Sub(a) {
		t.Fatalf("did not expect b to be a subset of a")
	}
}

func TestTraceSetPopCount(t *testing.T) {
	ts := TraceSetSingle(0).Add(1).Add(7)
	if got := ts.PopCount(); got != 3 {
		t.Fatalf("PopCount() = %d, want 3", got)
	}
}

func TestTraceSetUnivContainsAllLimits(t *testing.T) {
	for i := TraceId(0); i < TraceLimit; i++ {
		if !TraceSetUniv.Is(i) {
			t.Fatalf("TraceSetUniv missing trace %d", i)
		}
	}
}
