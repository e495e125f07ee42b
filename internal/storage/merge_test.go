package storage

import (
	"math"
	"testing"
)

func TestMergeNoneNullPreservesOld(t *testing.T) {
	got := Merge(NoneMerge, Int(5), Null())
	if got.I != 5 {
		t.Errorf("got %v, want old value preserved", got)
	}
}

func TestMergeNoneNonNullReplaces(t *testing.T) {
	got := Merge(NoneMerge, Int(5), Int(9))
	if got.I != 9 {
		t.Errorf("got %v, want 9", got)
	}
}

func TestMergeLWWSameAsNone(t *testing.T) {
	spec := MergeSpec{Kind: MergeLWW}
	if got := Merge(spec, Int(1), Null()); got.I != 1 {
		t.Errorf("LWW null write should preserve old, got %v", got)
	}
	if got := Merge(spec, Int(1), Int(2)); got.I != 2 {
		t.Errorf("LWW non-null write should replace, got %v", got)
	}
}

func TestMergeSumBoundedClampsToRange(t *testing.T) {
	spec := MergeSpec{Kind: MergeSumBounded, Min: 0, Max: 100}
	got := Merge(spec, Int(60), Int(70))
	if got.I != 100 {
		t.Errorf("got %v, want clamped to 100", got)
	}
}

func TestMergeSumBoundedCommutative(t *testing.T) {
	spec := MergeSpec{Kind: MergeSumBounded, Min: 0, Max: 100}
	a := Merge(spec, Int(30), Int(80))
	b := Merge(spec, Int(80), Int(30))
	if a.I != b.I {
		t.Errorf("sum_bounded not commutative: %v vs %v", a.I, b.I)
	}
}

func TestMergeGSetUnionIsOrderIndependent(t *testing.T) {
	spec := MergeSpec{Kind: MergeGSet}
	a := Merge(spec, SetText([]string{"a", "b"}), SetText([]string{"b", "c"}))
	b := Merge(spec, SetText([]string{"b", "c"}), SetText([]string{"a", "b"}))
	if len(a.Set) != 3 || len(b.Set) != 3 {
		t.Fatalf("expected 3-element union, got %v and %v", a.Set, b.Set)
	}
	for i := range a.Set {
		if a.Set[i] != b.Set[i] {
			t.Errorf("gset merge not order-independent: %v vs %v", a.Set, b.Set)
		}
	}
}

func TestInt64Add128ClampNoOverflowWithinRange(t *testing.T) {
	got := int64Add128Clamp(10, 20, 0, 100)
	if got != 30 {
		t.Errorf("got %d, want 30", got)
	}
}

func TestInt64Add128ClampPositiveOverflowSaturatesToMax(t *testing.T) {
	got := int64Add128Clamp(math.MaxInt64, math.MaxInt64, 0, math.MaxInt64)
	if got != math.MaxInt64 {
		t.Errorf("got %d, want saturated max", got)
	}
}

func TestInt64Add128ClampNegativeOverflowSaturatesToMin(t *testing.T) {
	got := int64Add128Clamp(math.MinInt64, math.MinInt64, math.MinInt64, 0)
	if got != math.MinInt64 {
		t.Errorf("got %d, want saturated min", got)
	}
}

func TestInt64Add128ClampBelowRangeFloorsToMin(t *testing.T) {
	got := int64Add128Clamp(-5, -10, 0, 100)
	if got != 0 {
		t.Errorf("got %d, want floored to 0", got)
	}
}
