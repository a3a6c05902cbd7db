// Package tui implements the interactive dashboard: a live-refreshing job
// table over the query façade, a prompt line for submitting new generations,
// and a detail view. All reads go through snapshot queries; the view never
// holds references into engine state.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nanobanan/banana/config"
	"github.com/nanobanan/banana/internal/engine"
	"github.com/nanobanan/banana/internal/events"
	"github.com/nanobanan/banana/internal/logger"
	"github.com/nanobanan/banana/internal/query"
)

// Options wires the TUI to the rest of the system
type Options struct {
	Queries *query.Service
	// Engine may be nil when no API key is configured; the TUI then runs
	// as a read-only history view.
	Engine *engine.Engine
	Bus    *events.Bus
	Config *config.Config
}

// Run starts the dashboard and blocks until the user quits
func Run(ctx context.Context, opts Options) error {
	// The alternate screen owns the terminal; silence log output for the
	// duration.
	logger.SetOutput(io.Discard)

	ch, unsubscribe := opts.Bus.Subscribe()
	defer unsubscribe()

	m := newModel(ctx, opts, ch)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
