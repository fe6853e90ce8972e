package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/diagnostics"
	"github.com/willibrandon/materializer/internal/materialize"
)

func newGraphvizCmd() *cobra.Command {
	var detailed bool
	var reachableFrom string
	cmd := &cobra.Command{
		Use:   "graphviz <scenario.yaml>",
		Short: "Dump a Graphviz DOT diagnostic of the scenario's graph and plan",
		Long: `graphviz computes the same plan 'run' would and writes a DOT digraph to
stdout, grouped by domain, labeled with each node's materialization status
when --detailed is set. Pipe the output to 'dot -Tpng' to render it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return graphvizScenario(args[0], detailed, reachableFrom)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", true, "label nodes with index sets and materialization status")
	cmd.Flags().StringVar(&reachableFrom, "reachable-from", "", "restrict the dump to nodes reachable from the named node")
	return cmd
}

func graphvizScenario(path string, detailed bool, reachableFrom string) error {
	defer initCLILogging()()

	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := loadScenario(path)
	if err != nil {
		return err
	}
	g, byName, newNodes, err := buildGraph(s)
	if err != nil {
		return err
	}

	m := materialize.New()
	m.SetConfig(cfg.Materialize.ToMaterializeConfig())
	if err := restoreState(m, store); err != nil {
		return err
	}
	if err := m.Extend(g, newNodes, s.Recovery); err != nil {
		return reportPlannerError(store, g, m, err)
	}
	if invalid, err := m.Validate(g, newNodes); err != nil {
		return reportPlannerError(store, g, m, err)
	} else if invalid != nil {
		return reportPlannerError(store, g, m, invalid)
	}

	dump := diagnostics.Graphviz{Graph: g, State: m.State(), Detailed: detailed}
	if reachableFrom != "" {
		ni, ok := byName[reachableFrom]
		if !ok {
			return fmt.Errorf("--reachable-from: node %q not declared in scenario", reachableFrom)
		}
		dump.ReachableFrom = &ni
		dump.ReachableDir = dataflow.Outgoing
	}

	fmt.Println(dump.String())
	return nil
}
