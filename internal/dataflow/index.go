// Package dataflow provides the dataflow graph collaborator that the
// materialization planner consumes: node capabilities, column provenance,
// and replay-path enumeration. It is intentionally a minimal reference
// implementation of the graph/keys layers the planner treats as external
// collaborators.
package dataflow

import (
	"fmt"
	"sort"
	"strings"
)

// NodeIndex is the stable identity of an operator in the dataflow graph.
type NodeIndex int

// DomainIndex identifies the scheduling domain that owns a node.
type DomainIndex int

// LocalNodeIndex is a node's address within its owning domain.
type LocalNodeIndex int

// IndexType distinguishes the physical structure backing an Index.
type IndexType int

const (
	Hash IndexType = iota
	BTree
)

func (t IndexType) String() string {
	if t == BTree {
		return "btree"
	}
	return "hash"
}

// Index is a pair of (index type, ordered column positions). Equality is
// structural including column order, so two Index values with the same
// columns in a different order are distinct indices.
type Index struct {
	Type    IndexType
	Columns []int
}

// HashIndex builds a Hash index over the given columns.
func HashIndex(columns ...int) Index {
	return Index{Type: Hash, Columns: append([]int(nil), columns...)}
}

// BTreeIndex builds a BTree index over the given columns.
func BTreeIndex(columns ...int) Index {
	return Index{Type: BTree, Columns: append([]int(nil), columns...)}
}

// Equal reports structural equality, including column order.
func (i Index) Equal(other Index) bool {
	if i.Type != other.Type || len(i.Columns) != len(other.Columns) {
		return false
	}
	for idx, c := range i.Columns {
		if other.Columns[idx] != c {
			return false
		}
	}
	return true
}

// Key returns a canonical string usable as a map key.
func (i Index) Key() string {
	cols := make([]string, len(i.Columns))
	for idx, c := range i.Columns {
		cols[idx] = fmt.Sprintf("%d", c)
	}
	return fmt.Sprintf("%s:%s", i.Type, strings.Join(cols, ","))
}

// SharesColumn reports whether i and other have at least one column in
// common, ignoring order.
func (i Index) SharesColumn(other Index) bool {
	for _, c := range i.Columns {
		for _, oc := range other.Columns {
			if c == oc {
				return true
			}
		}
	}
	return false
}

// ColumnSet returns the index's columns as a lookup set.
func (i Index) ColumnSet() map[int]struct{} {
	set := make(map[int]struct{}, len(i.Columns))
	for _, c := range i.Columns {
		set[c] = struct{}{}
	}
	return set
}

// SortedColumns returns a defensive, sorted copy of the index's columns.
// Equality never uses it.
func (i Index) SortedColumns() []int {
	cols := append([]int(nil), i.Columns...)
	sort.Ints(cols)
	return cols
}

// LookupKind distinguishes Strict (replay-consulted) from Weak (lookup-only)
// indexes.
type LookupKind int

const (
	Strict LookupKind = iota
	Weak
)

// LookupIndex is an Index tagged Strict or Weak. Every Weak index implies a
// matching Strict index of the same shape must also exist on the node.
type LookupIndex struct {
	Kind LookupKind
	Idx  Index
}

// StrictLookup builds a Strict LookupIndex.
func StrictLookup(idx Index) LookupIndex { return LookupIndex{Kind: Strict, Idx: idx} }

// WeakLookup builds a Weak LookupIndex.
func WeakLookup(idx Index) LookupIndex { return LookupIndex{Kind: Weak, Idx: idx} }

// IsWeak reports whether this is a Weak lookup index.
func (l LookupIndex) IsWeak() bool { return l.Kind == Weak }

// WithIndex returns a copy of l with its Index replaced, preserving the
// Strict/Weak tag. Used when hoisting an obligation's columns upward.
func (l LookupIndex) WithIndex(idx Index) LookupIndex {
	return LookupIndex{Kind: l.Kind, Idx: idx}
}

// Key returns a canonical string usable as a map key, since LookupIndex
// wraps an Index and so is no more comparable than Index itself.
func (l LookupIndex) Key() string {
	kind := "strict"
	if l.Kind == Weak {
		kind = "weak"
	}
	return kind + ":" + l.Idx.Key()
}

// LookupSet is a set of LookupIndex values, keyed internally by their
// canonical string form. LookupIndex wraps an Index, which carries a
// Columns slice, so neither type can be used as a map key directly.
type LookupSet map[string]LookupIndex

// NewLookupSet builds a LookupSet from the given lookup indexes.
func NewLookupSet(ls ...LookupIndex) LookupSet {
	s := make(LookupSet, len(ls))
	for _, l := range ls {
		s.Add(l)
	}
	return s
}

// Add inserts l into the set, returning false if an equal entry was
// already present.
func (s LookupSet) Add(l LookupIndex) bool {
	k := l.Key()
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = l
	return true
}

// Contains reports whether an equal LookupIndex is already in the set.
func (s LookupSet) Contains(l LookupIndex) bool {
	_, ok := s[l.Key()]
	return ok
}

// ShardKind distinguishes unsharded nodes from those sharded by a column.
type ShardKind int

const (
	NotSharded ShardKind = iota
	ByColumn
)

// Sharding describes how a node's output is partitioned across shards.
type Sharding struct {
	Kind   ShardKind
	Column int
	Shards int
}
