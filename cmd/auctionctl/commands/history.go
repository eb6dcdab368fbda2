package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the audit trail of the team's session",
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
			events, err := repos.Events.Load(ctx, st.ID)
			if err != nil {
				return fmt.Errorf("loading events: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tTIME\tTYPE\tDATA")
			for _, e := range events {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Version, e.CreatedAt.Format(time.RFC3339), e.Type, e.Data)
			}
			return tw.Flush()
		},
	}
}
