package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/willibrandon/materializer/internal/domain"
	"github.com/willibrandon/materializer/internal/materialize"
	"github.com/willibrandon/materializer/internal/persist/sqlite"
)

func newRunCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Apply a migration scenario and print the resulting plan",
		Long: `run loads a scenario file describing a dataflow graph and a set of
newly added nodes, computes the materializations the migration requires,
validates every invariant, and commits to a per-domain migration plan.

With --dry-run (the default) the plan is dispatched against an in-memory
reference domain. With --dry-run=false nothing is dispatched; the plan is
only printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "dispatch the plan against an in-memory reference domain (false: print the plan without dispatching it)")
	return cmd
}

func runScenario(path string, dryRun bool) error {
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

	plan := domain.NewMigrationPlan(s.Recovery)
	start := time.Now()
	if err := m.Commit(g, newNodes, plan); err != nil {
		return reportPlannerError(store, g, m, err)
	}
	m.Metrics().Observe(float64(time.Since(start).Milliseconds()))

	if err := persistState(m, store, g); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	if err := store.RecordCommitHistory(sqlite.CommitHistoryPoint{
		PartialNodeCount: partialNodeCount(g, m),
		TagGenerator:     m.TagGenerator(),
	}); err != nil {
		return fmt.Errorf("record commit history: %w", err)
	}

	printPlan(plan, g)

	if dryRun {
		dispatcher := domain.NewMemoryDispatcher()
		spinner, _ := pterm.DefaultSpinner.Start("dispatching plan to reference domain")
		if err := domain.Run(dispatcher, plan); err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success(fmt.Sprintf("dispatched %s message(s) across %d domain(s)",
			humanize.Comma(int64(len(dispatcher.Log()))), len(plan.Domains())))
	}

	return nil
}
