package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/seed"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the team's roster with a CSV sheet",
		Long: `Import replaces the roster of the team's session with the players in
FILE, clears the decision log and reshuffles the queue. A team without a
session gets a fresh one seeded from FILE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := filepath.Clean(args[0])

			cfg, repos, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer repos.Close()

			defaults, err := seed.Defaults(cfg.Auction)
			if err != nil {
				return err
			}
			tp := provider(cmd)
			mgr, err := auction.NewManager(cfg.Auction.TeamKey, defaults, repos.Snapshots, repos.Events,
				tp.Logger, tp.TracerProvider, tp.MeterProvider, a.clock)
			if err != nil {
				return err
			}

			fromFile := cfg.Auction
			fromFile.RosterFile, fromFile.RosterURL = path, ""
			restored, err := mgr.Bootstrap(ctx, seed.Roster(fromFile, defaults.Bases, nil))
			if err != nil {
				return err
			}

			if restored {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening roster file: %w", err)
				}
				defer f.Close()
				if _, err := mgr.ImportCSV(ctx, path, f); err != nil {
					return err
				}
			}

			st, err := mgr.Snapshot()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d players into %s (session %s)\n",
				len(st.Players), cfg.Auction.TeamKey, st.ID)
			return nil
		},
	}
}
