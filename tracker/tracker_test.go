package tracker

import (
	"testing"

	"github.com/d4l3k/messagediff"
)

func TestMissingAscending(t *testing.T) {
	tr := New(10)
	for _, i := range []uint32{0, 3, 4, 9} {
		tr.Mark(i)
	}
	want := []uint32{1, 2, 5, 6, 7, 8}
	if diff, equal := messagediff.PrettyDiff(want, tr.Missing()); !equal {
		t.Errorf("Missing() differs:\n%s", diff)
	}
	if got := tr.Cardinality(); got != 4 {
		t.Errorf("Cardinality() = %d, want 4", got)
	}
	if i, ok := tr.FirstMissing(); !ok || i != 1 {
		t.Errorf("FirstMissing() = %d, %t, want 1, true", i, ok)
	}
}

func TestMissingIsRecomputed(t *testing.T) {
	tr := New(3)
	first := tr.Missing()
	tr.Mark(1)
	second := tr.Missing()
	if len(first) != 3 || len(second) != 2 {
		t.Fatalf("Missing() lengths = %d, %d, want 3, 2", len(first), len(second))
	}
	if second[0] != 0 || second[1] != 2 {
		t.Errorf("Missing() after mark = %v, want [0 2]", second)
	}
}

func TestFullTracker(t *testing.T) {
	// Sizes around word boundaries of the underlying bitset.
	for _, size := range []uint32{1, 63, 64, 65, 128, 130} {
		tr := New(size)
		for i := uint32(0); i < size; i++ {
			if tr.Full() {
				t.Fatalf("size %d: Full() before marking %d", size, i)
			}
			tr.Mark(i)
		}
		if !tr.Full() {
			t.Errorf("size %d: not Full() after marking everything", size)
		}
		if _, ok := tr.FirstMissing(); ok {
			t.Errorf("size %d: FirstMissing() reported a gap", size)
		}
		if m := tr.Missing(); len(m) != 0 {
			t.Errorf("size %d: Missing() = %v, want empty", size, m)
		}
	}
}

func TestEmptyTracker(t *testing.T) {
	tr := New(0)
	if !tr.Full() {
		t.Error("zero sized tracker is not Full()")
	}
	if _, ok := tr.FirstMissing(); ok {
		t.Error("zero sized tracker has a missing index")
	}
	if m := tr.Missing(); len(m) != 0 {
		t.Errorf("Missing() = %v, want empty", m)
	}
}

func TestOutOfRangeIgnored(t *testing.T) {
	tr := New(4)
	tr.Mark(4)
	tr.Mark(100)
	if tr.Cardinality() != 0 {
		t.Errorf("out of range Mark changed cardinality to %d", tr.Cardinality())
	}
	if tr.IsSet(4) {
		t.Error("IsSet(4) on a tracker of size 4")
	}
	tr.Mark(2)
	tr.Clear(2)
	tr.Clear(7)
	if tr.IsSet(2) || tr.Cardinality() != 0 {
		t.Error("Clear(2) did not unset the bit")
	}
}

func TestDuplicateMarkKeepsCardinality(t *testing.T) {
	tr := New(5)
	tr.Mark(2)
	tr.Mark(2)
	if got := tr.Cardinality(); got != 1 {
		t.Errorf("Cardinality() = %d after duplicate mark, want 1", got)
	}
}
