package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// scenarioNode describes one dataflow operator in a migration scenario
// file. Nodes are declared in dependency order: a node's parent must
// already have been declared above it, since wiring it requires the
// parent's NodeIndex to exist.
type scenarioNode struct {
	Name         string         `yaml:"name"`
	Kind         string         `yaml:"kind"` // base | internal | egress | reader
	Domain       int            `yaml:"domain"`
	Local        int            `yaml:"local"`
	Columns      []string       `yaml:"columns,omitempty"`
	Parent       string         `yaml:"parent,omitempty"`
	Parents      []string       `yaml:"parents,omitempty"` // straddled join: multiple parents, no single provenance chain
	Remap        map[int]int    `yaml:"remap,omitempty"`
	QueryThrough bool           `yaml:"query_through,omitempty"`
	RequiresFull bool           `yaml:"requires_full,omitempty"`
	ShardMerger  bool           `yaml:"shard_merger,omitempty"`
	Key          []int          `yaml:"key,omitempty"`
	Materialized bool           `yaml:"materialized,omitempty"`
	Suggest      map[string]int `yaml:"suggest_index,omitempty"` // node name -> single column, a placeholder suggestIndexes
}

// scenario is a migration expressed as a graph-building recipe plus the
// set of nodes that are newly added by this migration (by name). A
// scenario file models one call to Extend/Validate/Commit — the unit the
// `run` subcommand exercises end to end.
type scenario struct {
	Nodes    []scenarioNode `yaml:"nodes"`
	NewNodes []string       `yaml:"new_nodes"`
	Recovery bool           `yaml:"recovery,omitempty"`
}

func loadScenario(path string) (*scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Nodes) == 0 {
		return nil, fmt.Errorf("scenario has no nodes")
	}
	return &s, nil
}

// buildGraph materializes a scenario's graph-building recipe into an
// actual dataflow.Graph, returning the NodeIndex assigned to each declared
// node by name plus the NodeIndex slice named by NewNodes.
func buildGraph(s *scenario) (*dataflow.Graph, map[string]dataflow.NodeIndex, []dataflow.NodeIndex, error) {
	g := dataflow.NewGraph()
	source := g.AddSource()

	byName := make(map[string]dataflow.NodeIndex, len(s.Nodes))
	declOrder := make([]dataflow.NodeIndex, 0, len(s.Nodes))

	for _, sn := range s.Nodes {
		if _, exists := byName[sn.Name]; exists {
			return nil, nil, nil, fmt.Errorf("duplicate node name %q", sn.Name)
		}

		opts := dataflow.NodeOpts{
			Domain:       dataflow.DomainIndex(sn.Domain),
			Local:        dataflow.LocalNodeIndex(sn.Local),
			QueryThrough: sn.QueryThrough,
			RequiresFull: sn.RequiresFull,
			ShardMerger:  sn.ShardMerger,
		}

		var parent dataflow.NodeIndex
		var hasParent bool
		if sn.Parent != "" {
			p, ok := byName[sn.Parent]
			if !ok {
				return nil, nil, nil, fmt.Errorf("node %q: parent %q not yet declared", sn.Name, sn.Parent)
			}
			parent, hasParent = p, true
			if len(sn.Remap) > 0 {
				opts.ParentColumns = dataflow.RemappedProvenance(parent, sn.Remap)
			} else {
				opts.ParentColumns = dataflow.IdentityProvenance(parent)
			}
		}

		if len(sn.Suggest) > 0 {
			suggestions := make(map[dataflow.NodeIndex]dataflow.LookupIndex, len(sn.Suggest))
			for nodeName, col := range sn.Suggest {
				target, ok := byName[nodeName]
				if !ok {
					return nil, nil, nil, fmt.Errorf("node %q: suggest_index target %q not yet declared", sn.Name, nodeName)
				}
				suggestions[target] = dataflow.StrictLookup(dataflow.HashIndex(col))
			}
			opts.SuggestIndexes = func(self dataflow.NodeIndex) map[dataflow.NodeIndex]dataflow.LookupIndex {
				return suggestions
			}
		}

		var ni dataflow.NodeIndex
		switch sn.Kind {
		case "base":
			ni = g.AddBase(sn.Name, sn.Columns, opts)
			g.Connect(source, ni)
		case "internal":
			ni = g.AddInternal(sn.Name, sn.Columns, opts)
		case "egress":
			ni = g.AddEgress(sn.Name, opts)
		case "reader":
			var key *dataflow.Index
			if len(sn.Key) > 0 {
				idx := dataflow.HashIndex(sn.Key...)
				key = &idx
			}
			ni = g.AddReader(sn.Name, key, sn.Materialized, opts)
		default:
			return nil, nil, nil, fmt.Errorf("node %q: unknown kind %q", sn.Name, sn.Kind)
		}

		if hasParent {
			g.Connect(parent, ni)
		}
		for _, extra := range sn.Parents {
			p, ok := byName[extra]
			if !ok {
				return nil, nil, nil, fmt.Errorf("node %q: parent %q not yet declared", sn.Name, extra)
			}
			g.Connect(p, ni)
		}

		byName[sn.Name] = ni
		declOrder = append(declOrder, ni)
	}

	newNodes := make([]dataflow.NodeIndex, 0, len(s.NewNodes))
	for _, name := range s.NewNodes {
		ni, ok := byName[name]
		if !ok {
			return nil, nil, nil, fmt.Errorf("new_nodes: %q was never declared", name)
		}
		newNodes = append(newNodes, ni)
	}
	if len(newNodes) == 0 {
		// Default: every declared node is new, matching a from-scratch migration.
		newNodes = append(newNodes, declOrder...)
	}

	return g, byName, newNodes, nil
}
