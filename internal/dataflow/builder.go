package dataflow

// NodeOpts carries the operator-specific knobs a constructor needs. Callers
// leave fields at their zero value unless the operator they are modeling
// needs otherwise.
type NodeOpts struct {
	Domain         DomainIndex
	Local          LocalNodeIndex
	Sharding       Sharding
	QueryThrough   bool
	RequiresFull   bool
	ShardMerger    bool
	ParentColumns  func(col int) []ColumnProvenance
	SuggestIndexes func(self NodeIndex) map[NodeIndex]LookupIndex
}

// AddSource adds the graph's synthetic root. Source nodes are never
// materialized and never appear in topological walks.
func (g *Graph) AddSource() NodeIndex {
	return g.addNode(&Node{kind: KindSource, name: "SOURCE"})
}

// AddBase adds a base table. Base tables always end up materialized (the
// collector injects a placeholder index when nothing else would force it)
// and can never be partial.
func (g *Graph) AddBase(name string, columns []string, opts NodeOpts) NodeIndex {
	return g.addNode(&Node{
		kind:    KindBase,
		name:    name,
		columns: columns,
		domain:  opts.Domain,
		local:   opts.Local,
		sharded: opts.Sharding,
	})
}

// IdentityProvenance builds a ParentColumns function for an operator that
// passes every column of the given parent through unchanged at the same
// position (e.g. a filter or project-without-rename).
func IdentityProvenance(parent NodeIndex) func(col int) []ColumnProvenance {
	return func(col int) []ColumnProvenance {
		c := col
		return []ColumnProvenance{{Ancestor: parent, Column: &c}}
	}
}

// RemappedProvenance builds a ParentColumns function from an explicit
// this-column -> parent-column map; a missing entry means the column is
// generated by this node and cannot be resolved further.
func RemappedProvenance(parent NodeIndex, remap map[int]int) func(col int) []ColumnProvenance {
	return func(col int) []ColumnProvenance {
		if pc, ok := remap[col]; ok {
			c := pc
			return []ColumnProvenance{{Ancestor: parent, Column: &c}}
		}
		return []ColumnProvenance{{Ancestor: parent, Column: nil}}
	}
}

// AddInternal adds an internal (query-through-eligible, join, filter,
// aggregation, ...) operator.
func (g *Graph) AddInternal(name string, columns []string, opts NodeOpts) NodeIndex {
	return g.addNode(&Node{
		kind:           KindInternal,
		name:           name,
		columns:        columns,
		domain:         opts.Domain,
		local:          opts.Local,
		sharded:        opts.Sharding,
		queryThrough:   opts.QueryThrough,
		requiresFull:   opts.RequiresFull,
		shardMerger:    opts.ShardMerger,
		parentColumns:  opts.ParentColumns,
		suggestIndexes: opts.SuggestIndexes,
	})
}

// AddEgress adds an egress node (a domain-boundary passthrough).
func (g *Graph) AddEgress(name string, opts NodeOpts) NodeIndex {
	return g.addNode(&Node{
		kind:   KindEgress,
		name:   name,
		domain: opts.Domain,
		local:  opts.Local,
	})
}

// AddReader adds a reader. key is the column index the client looks the
// reader up by; pass nil for a streaming-only reader that never performs
// lookups.
func (g *Graph) AddReader(name string, key *Index, materialized bool, opts NodeOpts) NodeIndex {
	return g.addNode(&Node{
		kind:   KindReader,
		name:   name,
		domain: opts.Domain,
		local:  opts.Local,
		reader: &Reader{key: key, materialized: materialized},
	})
}
