package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/wallet"
)

// walletFlags are shared by every wallet subcommand.
type walletFlags struct {
	configPath string
	user       string
	offline    bool
}

func (f *walletFlags) register(cmd *cobra.Command) {
	addConfigFlag(cmd, &f.configPath)
	cmd.Flags().StringVarP(&f.user, "user", "u", envOr("DESK_USER", ""), "account email (default $DESK_USER)")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "use the mock blockchain provider")
}

// run resolves the user and calls fn with the wallet service.
func (f *walletFlags) run(cmd *cobra.Command, fn func(ctx context.Context, svc *wallet.Service, userID string) error) error {
	return withApp(cmd, f.configPath, appOpts{Offline: f.offline}, func(ctx context.Context, a *app) error {
		u, err := userByEmail(ctx, a.db, f.user)
		if err != nil {
			return err
		}
		return fn(ctx, a.wallets, u.ID)
	})
}

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage custodial wallets",
	}

	cmd.AddCommand(newWalletListCmd())
	cmd.AddCommand(newWalletCreateCmd())
	cmd.AddCommand(newWalletPrimaryCmd())
	cmd.AddCommand(newWalletDeleteCmd())
	cmd.AddCommand(newWalletSyncCmd())
	return cmd
}

func newWalletListCmd() *cobra.Command {
	var f walletFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, svc *wallet.Service, userID string) error {
				list, err := svc.List(ctx, userID)
				if err != nil {
					return err
				}
				printWallets(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newWalletCreateCmd() *cobra.Command {
	var (
		f       walletFlags
		network string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "create <solana|ethereum>",
		Short: "Create a wallet through the blockchain provider",
		Long:  "Creates a wallet of the given kind. A user's first wallet becomes primary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, svc *wallet.Service, userID string) error {
				w, err := svc.Create(ctx, userID, wallet.CreateOpts{Kind: args[0], Network: network, Name: name})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s wallet %s (%s)\n", w.Kind, w.ID, w.Address)
				if w.Primary {
					fmt.Fprintln(cmd.OutOrStdout(), "Set as primary wallet.")
				}
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&network, "network", "", "network (default from chain config)")
	cmd.Flags().StringVar(&name, "name", "", "wallet name")
	return cmd
}

func newWalletPrimaryCmd() *cobra.Command {
	var f walletFlags
	cmd := &cobra.Command{
		Use:   "primary <wallet-id>",
		Short: "Make a wallet the user's primary wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, svc *wallet.Service, userID string) error {
				w, err := svc.SetPrimary(ctx, userID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s is now primary\n", w.ID)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newWalletDeleteCmd() *cobra.Command {
	var f walletFlags
	cmd := &cobra.Command{
		Use:   "delete <wallet-id>",
		Short: "Delete a wallet (the primary wallet cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, svc *wallet.Service, userID string) error {
				if err := svc.Delete(ctx, userID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted wallet %s\n", args[0])
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newWalletSyncCmd() *cobra.Command {
	var f walletFlags
	cmd := &cobra.Command{
		Use:   "sync [wallet-id]",
		Short: "Refresh balances from the blockchain provider",
		Long:  "Refreshes one wallet's balance, or every wallet of the user when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, svc *wallet.Service, userID string) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					w, err := svc.SyncBalance(ctx, userID, args[0])
					if err != nil {
						return err
					}
					printWallets(out, []models.Wallet{*w})
					return nil
				}
				report, err := svc.SyncAll(ctx, userID)
				if err != nil {
					return err
				}
				for id, err := range report.Failed {
					fmt.Fprintf(out, "FAILED %s: %v\n", id, err)
				}
				fmt.Fprintf(out, "Synced %d wallets, %d failed\n", len(report.Synced), len(report.Failed))
				if len(report.Failed) > 0 {
					return fmt.Errorf("%d wallets failed to sync", len(report.Failed))
				}
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func printWallets(out io.Writer, list []models.Wallet) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No wallets.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNETWORK\tNAME\tBALANCE\tSYNCED\tPRIMARY")
	for _, w := range list {
		synced := "-"
		if w.LastSynced != nil {
			synced = w.LastSynced.Format(time.DateTime)
		}
		primary := ""
		if w.Primary {
			primary = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\t%s\n", w.ID, w.Kind, w.Network, w.Name, w.Balance, synced, primary)
	}
	tw.Flush()
}
