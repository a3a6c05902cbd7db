package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nanobanan/banana/config"
	"github.com/nanobanan/banana/internal/db"
	"github.com/nanobanan/banana/internal/db/repos"
	"github.com/nanobanan/banana/internal/engine"
	"github.com/nanobanan/banana/internal/events"
	"github.com/nanobanan/banana/internal/genclient"
	"github.com/nanobanan/banana/internal/logger"
	"github.com/nanobanan/banana/internal/query"
	"github.com/nanobanan/banana/internal/tui"
)

// flag names
const (
	flagDBPath = "db"
	flagFormat = "format"
)

var (
	// cfg is the loaded configuration, shared by all commands
	cfg *config.Config
	// store is the open job history database
	store *gorm.DB
	// jobRepo is the job repository over the store
	jobRepo *repos.JobRepository
	// queries is the read-only façade used by jobs commands and the TUI
	queries *query.Service
	// bus carries job change notifications
	bus *events.Bus

	// dbPath overrides the job database location. Flag parsing sets this.
	dbPath string
)

// RootCmd represents the base command; running it without a subcommand
// launches the interactive TUI.
var RootCmd = &cobra.Command{
	Use:   "banana",
	Short: "Generate and edit images with Google Gemini",
	Long: `banana is a CLI and TUI client for generating and editing images with
Google Gemini image models. Every request is tracked as a durable job in a
local history database and survives retries, cancellation and restarts.

Set your API key via environment variable or config:
  export GEMINI_API_KEY=your-key-here
  banana config set api.key your-key-here

Run without arguments to launch the interactive TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, flagDBPath, "", "Path to the job history database (defaults to the user data directory)")
}

// setup wires the shared dependencies: config, database, repository, query
// façade and event bus.
func setup() error {
	logger.InitializeAndConfigure()

	var err error
	cfg, err = config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err = db.New(db.Options{Path: dbPath})
	if err != nil {
		return err
	}

	jobRepo = repos.NewJobRepository(store)
	queries = query.NewService(jobRepo)
	bus = events.NewBus()
	return nil
}

// policyFromConfig translates the engine section of the config into a policy
func policyFromConfig() engine.Policy {
	policy := engine.DefaultPolicy()
	if cfg.Engine.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Engine.MaxAttempts
	}
	if cfg.Engine.Concurrency > 0 {
		policy.Concurrency = int64(cfg.Engine.Concurrency)
	}
	return policy
}

// newEngine builds a fully wired engine with a live Gemini client. The
// returned cleanup stops the engine and closes the client.
func newEngine(ctx context.Context) (*engine.Engine, func(), error) {
	client, err := genclient.New(ctx, cfg.API.Key)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(jobRepo, client, bus, policyFromConfig())
	cleanup := func() {
		eng.Close()
		_ = client.Close()
	}
	return eng, cleanup, nil
}

// newControlEngine builds an engine without a generation client, enough for
// cancellation, which only writes through the store.
func newControlEngine() *engine.Engine {
	return engine.New(jobRepo, nil, bus, policyFromConfig())
}

func runTUI(ctx context.Context) error {
	var eng *engine.Engine
	cleanup := func() {}

	// Without an API key the TUI still works as a read-only history view.
	if cfg.API.Key != "" {
		var err error
		eng, cleanup, err = newEngine(ctx)
		if err != nil {
			return err
		}
		if _, err := eng.Recover(ctx); err != nil {
			logger.Warnf("recovery scan failed: %v", err)
		}
	}
	defer cleanup()

	return tui.Run(ctx, tui.Options{
		Queries: queries,
		Engine:  eng,
		Bus:     bus,
		Config:  cfg,
	})
}
