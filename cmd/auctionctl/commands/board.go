package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	botcmd "github.com/jensholdgaard/cricket-auctionbot/internal/bot/commands"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
)

func newBoardCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show purse, quotas and the best remaining players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, repos, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer repos.Close()

			st, err := loadState(ctx, repos, cfg.Auction.TeamKey)
			if err != nil {
				return err
			}
			b := dashboard.Build(st)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			fmt.Fprintln(cmd.OutOrStdout(), botcmd.FormatBoard(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board as JSON")
	return cmd
}
