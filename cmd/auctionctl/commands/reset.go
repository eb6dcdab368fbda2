package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotConfirmed = errors.New("refusing to reset without --yes")

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the team's session snapshot",
		Long: `Reset deletes the stored snapshot for the team. The bot seeds a fresh
session on its next start. The audit trail is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			ctx := cmd.Context()
			cfg, repos, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer repos.Close()

			if err := repos.Snapshots.Delete(ctx, cfg.Auction.TeamKey); err != nil {
				return fmt.Errorf("deleting snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset session for %s\n", cfg.Auction.TeamKey)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
