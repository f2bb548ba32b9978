package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPortfolioCmd() *cobra.Command {
	var f walletFlags
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show a user's portfolio value and allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f.configPath, appOpts{Offline: f.offline}, func(ctx context.Context, a *app) error {
				u, err := userByEmail(ctx, a.db, f.user)
				if err != nil {
					return err
				}
				sum, err := a.portfolio.Summary(ctx, u.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(sum.Wallets) == 0 {
					fmt.Fprintln(out, "No wallets.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WALLET\tKIND\tBALANCE\tUSD\tNOTE")
				for _, v := range sum.Wallets {
					note := ""
					if v.Stale {
						note = "stale: " + v.Error
					}
					fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.2f\t%s\n", v.Name, v.Kind, v.Balance, v.USD, note)
				}
				tw.Flush()

				kinds := make([]string, 0, len(sum.ByKind))
				for k := range sum.ByKind {
					kinds = append(kinds, k)
				}
				sort.Strings(kinds)
				fmt.Fprintln(out)
				for _, k := range kinds {
					kt := sum.ByKind[k]
					fmt.Fprintf(out, "%-9s %6.2f%%  $%.2f\n", k, kt.Percent, kt.USD)
				}
				fmt.Fprintf(out, "Total     $%.2f\n", sum.TotalUSD)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}
