// Package commands implements auctionctl, the offline companion of the
// auction bot. It works directly against the configured store.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/telemetry"
)

// Deps are the collaborators the commands use. Zero fields fall back to
// the production implementations.
type Deps struct {
	OpenStore store.Driver
	Clock     clock.Clock
}

type app struct {
	configPath string
	envFile    string
	team       string

	open  store.Driver
	clock clock.Clock
}

// NewRootCmd builds the auctionctl command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	a := &app{open: deps.OpenStore, clock: deps.Clock}
	if a.open == nil {
		a.open = store.Open
	}
	if a.clock == nil {
		a.clock = clock.Real{}
	}

	root := &cobra.Command{
		Use:   "auctionctl",
		Short: "Inspect and prepare auction sessions offline",
		Long: `auctionctl reads and writes the session snapshots the auction bot keeps
in its store.

Examples:
  auctionctl import roster.csv
  auctionctl board --team lions
  auctionctl export -o squad.csv`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional .env file with AUCTIONBOT_* overrides")
	root.PersistentFlags().StringVar(&a.team, "team", "", "team key (default from config)")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newBoardCmd(a),
		newHistoryCmd(a),
		newKeysCmd(a),
		newResetCmd(a),
	)
	return root
}

// connect loads the configuration and opens the store. The caller closes
// the returned repositories.
func (a *app) connect(ctx context.Context) (*config.Config, *store.Repositories, error) {
	if err := config.LoadEnv(a.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if a.team != "" {
		cfg.Auction.TeamKey = a.team
	}

	repos, err := a.open(ctx, cfg.Database, a.clock)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	return cfg, repos, nil
}

// provider returns local telemetry logging warnings to the command's stderr.
func provider(cmd *cobra.Command) *telemetry.Provider {
	return telemetry.NewLocalProvider(cmd.ErrOrStderr(), "auctionctl", slog.LevelWarn)
}

// loadState reads the persisted session for key.
func loadState(ctx context.Context, repos *store.Repositories, key string) (auction.State, error) {
	data, err := repos.Snapshots.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return auction.State{}, fmt.Errorf("no session for team %q: %w", key, err)
	}
	if err != nil {
		return auction.State{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return auction.DecodeState(data)
}
