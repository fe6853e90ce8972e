package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var height int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Sparkline of partial-node count across recorded commits",
		Long: `history reads every commit recorded in the planner's state database and
plots the partial-node count over time, so operators can see whether a
series of migrations is trending toward more or less partial state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(height)
		},
	}
	cmd.Flags().IntVar(&height, "height", 10, "plot height in terminal rows")
	return cmd
}

func showHistory(height int) error {
	defer initCLILogging()()

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	points, err := store.LoadCommitHistory()
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("no commits recorded yet")
		return nil
	}

	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = float64(p.PartialNodeCount)
	}

	plot := asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Caption("partial-node count per commit"),
	)
	fmt.Println(plot)
	return nil
}
