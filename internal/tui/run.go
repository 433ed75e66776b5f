package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/btsguard/internal/dashboard"
)

// Run drives the controller from an interactive terminal until the operator
// quits or ctx ends.
func Run(ctx context.Context, controller *dashboard.Controller, options ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	intents := make(chan dashboard.Intent)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return controller.Run(gctx, intents)
	})

	g.Go(func() error {
		defer cancel()

		model := NewModel(gctx, intents, controller.Views())
		options = append([]tea.ProgramOption{tea.WithContext(gctx), tea.WithAltScreen()}, options...)
		_, err := tea.NewProgram(model, options...).Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}
