package dataflow

import "testing"

func TestIndexEqualConsidersColumnOrder(t *testing.T) {
	a := HashIndex(0, 1)
	b := HashIndex(0, 1)
	c := HashIndex(1, 0)

	if !a.Equal(b) {
		t.Error("expected identical hash indexes to be equal")
	}
	if a.Equal(c) {
		t.Error("expected indexes with reordered columns to be unequal")
	}
	if HashIndex(0).Equal(BTreeIndex(0)) {
		t.Error("expected indexes of different type to be unequal despite same columns")
	}
}

func TestIndexSharesColumn(t *testing.T) {
	a := HashIndex(0, 1)
	b := HashIndex(1, 2)
	c := HashIndex(2, 3)

	if !a.SharesColumn(b) {
		t.Error("expected a and b to share column 1")
	}
	if a.SharesColumn(c) {
		t.Error("expected a and c to share no columns")
	}
}

func TestIndexColumnSet(t *testing.T) {
	idx := HashIndex(3, 1, 3)
	set := idx.ColumnSet()
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct columns, got %d", len(set))
	}
	for _, c := range []int{1, 3} {
		if _, ok := set[c]; !ok {
			t.Errorf("expected column %d in set", c)
		}
	}
}

func TestIndexKeyDistinguishesTypeAndColumns(t *testing.T) {
	if HashIndex(0, 1).Key() == BTreeIndex(0, 1).Key() {
		t.Error("expected Hash and BTree keys over the same columns to differ")
	}
	if HashIndex(0, 1).Key() == HashIndex(1, 0).Key() {
		t.Error("expected reordered columns to produce a different key")
	}
}

func TestLookupIndexWithIndexPreservesKind(t *testing.T) {
	weak := WeakLookup(HashIndex(0))
	remapped := weak.WithIndex(HashIndex(1))

	if !remapped.IsWeak() {
		t.Error("expected WithIndex to preserve the Weak tag")
	}
	if !remapped.Idx.Equal(HashIndex(1)) {
		t.Errorf("expected remapped index to be HashIndex(1), got %v", remapped.Idx)
	}
}
