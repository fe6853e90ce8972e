package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/willibrandon/materializer/internal/diagnostics"
	"github.com/willibrandon/materializer/internal/materialize"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <scenario.yaml>",
		Short: "Live TUI showing materialization status as a scenario is recomputed",
		Long: `watch recomputes the scenario's plan on a fixed interval and renders its
status tree, so changes to the scenario file (or a concurrently running
'run' against the same state database) are visible without restarting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchScenario(args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval")
	return cmd
}

type watchModel struct {
	path     string
	interval time.Duration
	body     string
	err      error
}

type watchTickMsg struct{}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(refreshWatch(m.path), tickWatch(m.interval))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case watchTickMsg:
		return m, tea.Batch(refreshWatch(m.path), tickWatch(m.interval))
	case watchBodyMsg:
		m.body = msg.body
		m.err = msg.err
	}
	return m, nil
}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	watchErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	watchHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (m watchModel) View() string {
	header := watchTitleStyle.Render(fmt.Sprintf("materializer watch — %s", m.path))
	if m.err != nil {
		return header + "\n\n" + watchErrStyle.Render(m.err.Error()) + "\n\n" + watchHintStyle.Render("press q to quit")
	}
	return header + "\n\n" + m.body + "\n\n" + watchHintStyle.Render("press q to quit")
}

type watchBodyMsg struct {
	body string
	err  error
}

func tickWatch(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return watchTickMsg{} })
}

// refreshWatch recomputes the scenario's plan against the persisted state
// database and renders every base table's status tree, without committing
// anything — a repeated 'status' snapshot driving the TUI.
func refreshWatch(path string) tea.Cmd {
	return func() tea.Msg {
		cfg, store, err := openStore()
		if err != nil {
			return watchBodyMsg{err: err}
		}
		defer store.Close()

		s, err := loadScenario(path)
		if err != nil {
			return watchBodyMsg{err: err}
		}
		g, _, newNodes, err := buildGraph(s)
		if err != nil {
			return watchBodyMsg{err: err}
		}

		m := materialize.New()
		m.SetConfig(cfg.Materialize.ToMaterializeConfig())
		if err := restoreState(m, store); err != nil {
			return watchBodyMsg{err: err}
		}
		if err := m.Extend(g, newNodes, s.Recovery); err != nil {
			return watchBodyMsg{err: err}
		}
		if invalid, err := m.Validate(g, newNodes); err != nil {
			return watchBodyMsg{err: err}
		} else if invalid != nil {
			return watchBodyMsg{err: invalid}
		}

		var body string
		for _, ni := range g.NodeIndices() {
			n := g.Node(ni)
			if !n.IsBase() {
				continue
			}
			body += diagnostics.StatusTree(g, m.State(), ni).String() + "\n"
		}
		return watchBodyMsg{body: body}
	}
}

func watchScenario(path string, interval time.Duration) error {
	defer initCLILogging()()
	p := tea.NewProgram(watchModel{path: path, interval: interval})
	_, err := p.Run()
	return err
}
