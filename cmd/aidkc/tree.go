package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rlindgren/aidk/internal/scenario"
	"github.com/rlindgren/aidk/internal/tui"
	"github.com/spf13/cobra"
)

func newTreeCommand() *cobra.Command {
	var (
		goal      string
		tickEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Open a terminal dashboard over the demo scenario's fiber tree",
		Long: `Drives the demo scenario one tick at a time (on a timer, or
manually with space/n) and renders its fiber tree and compiled sections
side by side (internal/tui).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if goal == "" {
				goal = scenario.DefaultConfig().Goal
			}
			model := tui.New(scenario.Config{Goal: goal}, tickEvery)
			program := tea.NewProgram(model)
			_, err := program.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "Override the demo scenario's goal text")
	cmd.Flags().DurationVar(&tickEvery, "tick-every", 3*time.Second, "Automatic tick interval")
	return cmd
}
