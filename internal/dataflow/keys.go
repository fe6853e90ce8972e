package dataflow

import "fmt"

// ColumnRef names a column set on a specific node: the thing a lookup
// obligation, or a replay, is ultimately about.
type ColumnRef struct {
	Node    NodeIndex
	Columns []int
}

// Segment is one hop of a replay path: the node that must supply rows and
// the index it supplies them by.
type Segment struct {
	Node  NodeIndex
	Index Index
}

// ReplayPath is an ordered chain of segments from the replay source down to
// the node whose lookup obligation is being satisfied. A broken path cannot
// be replayed end to end: one of its key columns does not resolve to a
// single ancestor column. It ends at the last resolvable node, and the
// planner forces that node to be materialized. A path that stops at an
// operator that cannot be queried through is not broken.
type ReplayPath struct {
	Segments   []Segment
	BrokenFlag bool
}

// Target returns the path's final segment: the node the replay terminates
// at and the index it is keyed by there.
func (p ReplayPath) Target() Segment { return p.Segments[len(p.Segments)-1] }

// Broken reports whether this path cannot be replayed end to end.
func (p ReplayPath) Broken() bool { return p.BrokenFlag }

// ReplayPathsForNonstop enumerates the replay paths that could satisfy a
// lookup obligation of the given index type over ref, by walking upward
// until a base, a source, or an internal operator that cannot be queried
// through is reached. Non-internal nodes (a reader sitting on top of its
// parent, say) are never themselves a stopping point: they climb through
// their own column provenance just like a query-through operator would. A
// column that resolves to more than one ancestor, or does not resolve at
// all, breaks the path at that point: the path is still returned (its
// target is the last resolvable node) but flagged Broken so the caller
// knows it must force materialization at that target.
func ReplayPathsForNonstop(g *Graph, ref ColumnRef, indexType IndexType) ([]ReplayPath, error) {
	if g.Node(ref.Node) == nil {
		return nil, fmt.Errorf("dataflow: no such node %d", ref.Node)
	}
	start := Segment{Node: ref.Node, Index: Index{Type: indexType, Columns: append([]int(nil), ref.Columns...)}}
	return walkReplay(g, []Segment{start}, ref.Node, ref.Columns, indexType), nil
}

func walkReplay(g *Graph, soFar []Segment, cur NodeIndex, columns []int, indexType IndexType) []ReplayPath {
	n := g.Node(cur)

	if n.IsBase() || n.IsSource() {
		return []ReplayPath{{Segments: soFar}}
	}
	if n.IsInternal() && !n.CanQueryThrough() {
		return []ReplayPath{{Segments: soFar}}
	}

	byParent := map[NodeIndex][]int{}
	var parentOrder []NodeIndex
	for _, col := range columns {
		prov := n.ParentColumns(col)
		if len(prov) != 1 || prov[0].Column == nil {
			return []ReplayPath{{Segments: soFar, BrokenFlag: true}}
		}
		p := prov[0]
		if _, ok := byParent[p.Ancestor]; !ok {
			parentOrder = append(parentOrder, p.Ancestor)
		}
		byParent[p.Ancestor] = append(byParent[p.Ancestor], *p.Column)
	}

	if len(parentOrder) != 1 {
		// Columns straddle more than one ancestor: this path cannot be
		// replayed as a single chain.
		return []ReplayPath{{Segments: soFar, BrokenFlag: true}}
	}

	parent := parentOrder[0]
	parentCols := byParent[parent]
	next := append(append([]Segment(nil), soFar...), Segment{
		Node:  parent,
		Index: Index{Type: indexType, Columns: parentCols},
	})
	return walkReplay(g, next, parent, parentCols, indexType)
}

// ProvenanceEntry names one hop of a provenance chain: the ancestor and the
// column in it each queried column traces back to (nil if generated there).
type ProvenanceEntry struct {
	Node    NodeIndex
	Columns []*int
}

// ProvenancePath is a full ancestor chain for a column set, from the
// originating node up to wherever the trail terminates (a base, a source,
// or a node that generates the value outright).
type ProvenancePath []ProvenanceEntry

// ProvenanceOf traces columns on node back through every ancestor chain,
// branching whenever a column's provenance fans out to more than one
// parent. Used by the validator's shard-merger check to find columns that
// alias the sharding column.
func ProvenanceOf(g *Graph, node NodeIndex, columns []int) ([]ProvenancePath, error) {
	if g.Node(node) == nil {
		return nil, fmt.Errorf("dataflow: no such node %d", node)
	}
	start := ProvenanceEntry{Node: node, Columns: intPtrs(columns)}
	return walkProvenance(g, []ProvenanceEntry{start}, node, columns), nil
}

func walkProvenance(g *Graph, soFar []ProvenanceEntry, cur NodeIndex, columns []int) []ProvenancePath {
	n := g.Node(cur)
	if n.IsBase() || n.IsSource() {
		return []ProvenancePath{append([]ProvenanceEntry(nil), soFar...)}
	}

	byParent := map[NodeIndex][]int{}
	var parentOrder []NodeIndex
	generated := true
	for _, col := range columns {
		prov := n.ParentColumns(col)
		if len(prov) == 0 {
			continue
		}
		for _, p := range prov {
			if p.Column == nil {
				continue
			}
			generated = false
			if _, ok := byParent[p.Ancestor]; !ok {
				parentOrder = append(parentOrder, p.Ancestor)
			}
			byParent[p.Ancestor] = append(byParent[p.Ancestor], *p.Column)
		}
	}

	if generated || len(parentOrder) == 0 {
		return []ProvenancePath{append([]ProvenanceEntry(nil), soFar...)}
	}

	var out []ProvenancePath
	for _, parent := range parentOrder {
		cols := byParent[parent]
		next := append(append([]ProvenanceEntry(nil), soFar...), ProvenanceEntry{
			Node:    parent,
			Columns: intPtrs(cols),
		})
		out = append(out, walkProvenance(g, next, parent, cols)...)
	}
	return out
}

func intPtrs(cols []int) []*int {
	out := make([]*int, len(cols))
	for i, c := range cols {
		v := c
		out[i] = &v
	}
	return out
}
