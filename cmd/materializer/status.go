package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/materializer/internal/diagnostics"
	"github.com/willibrandon/materializer/internal/materialize"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <scenario.yaml>",
		Short: "Show materialization status for a scenario's graph",
		Long: `status computes the same plan 'run' would, without persisting or
dispatching it, and prints a status tree per base table showing which
descendants are materialized, partial, or beyond the frontier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusScenario(args[0])
		},
	}
}

func statusScenario(path string) error {
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
	g, _, newNodes, err := buildGraph(s)
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

	for _, ni := range g.NodeIndices() {
		n := g.Node(ni)
		if !n.IsBase() {
			continue
		}
		fmt.Println(diagnostics.StatusTree(g, m.State(), ni).String())
	}

	history, err := store.LoadCommitHistory()
	if err != nil {
		return fmt.Errorf("load commit history: %w", err)
	}
	fmt.Printf("commits recorded: %d\n", len(history))
	return nil
}
