package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/willibrandon/materializer/internal/config"
	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/diagnostics"
	"github.com/willibrandon/materializer/internal/domain"
	"github.com/willibrandon/materializer/internal/materialize"
	"github.com/willibrandon/materializer/internal/persist/sqlite"
)

// colorOut disables ANSI output when stderr isn't a terminal, matching the
// teacher's approach of never coloring piped/redirected output.
func colorOut() io.Writer {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}
	return os.Stderr
}

// openStore loads configuration and opens the planner's persisted state
// database, creating it on first use.
func openStore() (*config.Config, *sqlite.Store, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfigFromPath(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.Open(cfg.StateDB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open state db: %w", err)
	}
	return cfg, store, nil
}

// restoreState seeds a fresh Materializations with whatever durable state
// was persisted by a prior commit, so a new CLI invocation continues the
// same tag sequence and redundant-partial bookkeeping instead of starting
// over.
func restoreState(m *materialize.Materializations, store *sqlite.Store) error {
	_, tagGenerator, ok, err := store.LoadConfig()
	if err != nil {
		return fmt.Errorf("load persisted config: %w", err)
	}
	if !ok {
		return nil
	}
	m.RestoreTagGenerator(tagGenerator)

	pairs, err := store.LoadRedundantPartial()
	if err != nil {
		return fmt.Errorf("load redundant-partial map: %w", err)
	}
	redundant := make(map[dataflow.NodeIndex]dataflow.NodeIndex, len(pairs))
	for k, v := range pairs {
		redundant[dataflow.NodeIndex(k)] = dataflow.NodeIndex(v)
	}
	m.RestoreRedundant(redundant)
	return nil
}

// persistState writes the durable subset of m's state back to store: the
// planner config, the tag generator, the redundant-partial map, and each
// materialized non-reader node's replay paths (readers' paths are not
// saved).
func persistState(m *materialize.Materializations, store *sqlite.Store, g *dataflow.Graph) error {
	cfgJSON, err := json.Marshal(m.Config())
	if err != nil {
		return err
	}
	if err := store.SaveConfig(cfgJSON, m.TagGenerator()); err != nil {
		return err
	}

	pairs := make(map[int]int)
	for k, v := range m.Redundant() {
		pairs[int(k)] = int(v)
	}
	if err := store.SaveRedundantPartial(pairs); err != nil {
		return err
	}

	for _, ni := range m.MaterializedNonReaderNodes(g) {
		records := m.Paths(ni)
		if len(records) == 0 {
			continue
		}
		if err := store.SavePaths(int(ni), records); err != nil {
			return err
		}
	}
	return nil
}

// partialNodeCount counts every materialized, non-reader node currently
// marked partial.
func partialNodeCount(g *dataflow.Graph, m *materialize.Materializations) int {
	count := 0
	for _, ni := range m.MaterializedNonReaderNodes(g) {
		if m.IsPartial(ni) {
			count++
		}
	}
	return count
}

// printPlan renders a committed migration plan, domain by domain, in
// emission order, annotating each message's node with its scenario name
// where one can be resolved.
func printPlan(plan *domain.MigrationPlan, g *dataflow.Graph) {
	bold := color.New(color.Bold)
	bold.Fprintf(colorOut(), "migration %s", plan.ID())
	if plan.IsRecovery() {
		fmt.Fprint(colorOut(), " (recovery)")
	}
	fmt.Fprintln(colorOut())

	type key struct {
		domain dataflow.DomainIndex
		local  dataflow.LocalNodeIndex
	}
	names := make(map[key]string)
	for _, ni := range g.NodeIndices() {
		n := g.Node(ni)
		if n.IsSource() {
			continue
		}
		names[key{n.Domain(), n.LocalAddr()}] = n.Name()
	}

	for _, d := range plan.Domains() {
		bold.Fprintf(colorOut(), "domain %d\n", d)
		for _, req := range plan.Messages(d) {
			if name, ok := names[key{d, req.Node}]; ok {
				fmt.Fprintf(colorOut(), "  %s (%s)\n", req, name)
				continue
			}
			fmt.Fprintf(colorOut(), "  %s\n", req)
		}
	}
}

// reportPlannerError prints err and, when it carries a diagnosable
// invariant violation, captures a Graphviz dump of the graph and state at
// the point of failure and archives it in the state database.
func reportPlannerError(store *sqlite.Store, g *dataflow.Graph, m *materialize.Materializations, err error) error {
	red := color.New(color.FgRed, color.Bold)

	if iie, ok := err.(*materialize.InternalInvariantError); ok {
		dot := diagnostics.Graphviz{Graph: g, State: m.State(), Detailed: true}.String()
		if saveErr := store.SaveDiagnostic(iie.Message, dot); saveErr != nil {
			fmt.Fprintf(colorOut(), "warning: failed to archive diagnostic dump: %v\n", saveErr)
		}
		err = materialize.WithDiagnostic(iie, dot)
	}

	red.Fprintln(colorOut(), wordwrap.WrapString(fmt.Sprintf("error: %v", err), 100))
	return err
}
