package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the team keys with a stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, repos, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer repos.Close()

			keys, err := repos.Snapshots.Keys(ctx)
			if err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
