package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/config"
	"github.com/zulandar/agentdesk/internal/dashboard"
	"github.com/zulandar/agentdesk/internal/scheduler"
	"github.com/zulandar/agentdesk/internal/telegraph"
	discordadapter "github.com/zulandar/agentdesk/internal/telegraph/discord"
	slackadapter "github.com/zulandar/agentdesk/internal/telegraph/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the web dashboard API",
		Long: `Launches the AgentDesk web dashboard: the JSON API, the live event
stream, the chat relay (when telegraph.platform is set) and the scheduled
balance sync and digest jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port, offline)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default server.port)")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the mock blockchain provider and static AI responses")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int, offline bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(cmd, configPath, appOpts{Offline: offline}, func(_ context.Context, a *app) error {
		if port == 0 {
			port = a.cfg.Server.Port
		}

		g, gctx := errgroup.WithContext(ctx)

		var poster scheduler.Poster
		adapter, err := createAdapter(a.cfg, a.log)
		if err != nil {
			return err
		}
		if adapter != nil {
			relay, err := telegraph.NewRelay(telegraph.RelayOpts{Adapter: adapter, Log: a.log.Named("telegraph")})
			if err != nil {
				return err
			}
			detach := relay.Attach(a.bus)
			defer detach()
			poster = relay
			g.Go(func() error { return relay.Run(gctx) })
		}

		sched, err := scheduler.New(scheduler.Options{
			BalanceCron: a.cfg.Sync.BalanceCron,
			Wallets:     a.wallets,
			DigestCron:  a.cfg.Telegraph.DigestCron,
			DB:          a.db,
			Poster:      poster,
			Log:         a.log.Named("scheduler"),
		})
		if err != nil {
			return err
		}
		sched.Start(gctx)
		defer sched.Stop()
		if jobs := sched.Jobs(); len(jobs) > 0 {
			a.log.Info("scheduler started", zap.Strings("jobs", jobs))
		}

		g.Go(func() error {
			return dashboard.Start(gctx, dashboard.StartOpts{
				Services: dashboard.Services{
					DB:        a.db,
					Bus:       a.bus,
					Store:     a.store,
					Dialogue:  a.dialogue,
					Wallets:   a.wallets,
					NFTs:      a.nfts,
					Portfolio: a.portfolio,
					Feedback:  a.feedback,
					Log:       a.log.Named("dashboard"),
				},
				Port: port,
				Out:  cmd.OutOrStdout(),
			})
		})

		err = g.Wait()
		fmt.Fprintln(cmd.OutOrStdout(), "Dashboard stopped.")
		return err
	})
}

// createAdapter builds the chat platform adapter from the config. It returns
// nil when no platform is configured.
func createAdapter(cfg *config.Config, log *zap.Logger) (telegraph.Adapter, error) {
	switch cfg.Telegraph.Platform {
	case "":
		return nil, nil
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			BotToken:  cfg.Telegraph.Slack.BotToken,
			ChannelID: cfg.Telegraph.Slack.ChannelID,
			Log:       log.Named("slack"),
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Telegraph.Discord.BotToken,
			ChannelID: cfg.Telegraph.Discord.ChannelID,
			Log:       log.Named("discord"),
		})
	default:
		return nil, fmt.Errorf("telegraph: unsupported platform %q", cfg.Telegraph.Platform)
	}
}
