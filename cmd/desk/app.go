package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/chain"
	"github.com/zulandar/agentdesk/internal/config"
	"github.com/zulandar/agentdesk/internal/db"
	"github.com/zulandar/agentdesk/internal/dialogue"
	"github.com/zulandar/agentdesk/internal/feedback"
	"github.com/zulandar/agentdesk/internal/logging"
	"github.com/zulandar/agentdesk/internal/messaging"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/portfolio"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigPath = "agentdesk.yaml"

// addConfigFlag registers the shared --config flag.
func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", defaultConfigPath, "path to AgentDesk config file")
}

// loadConfig reads the config file. A missing file at the default path
// yields the built-in defaults; an explicit path must exist.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !cmd.Flags().Changed("config") && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

// app is the wired service graph shared by every command.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	bus       *bus.Bus
	store     *agent.Store
	chain     chain.Client
	ai        ai.Client
	wallets   *wallet.Service
	nfts      *nft.Service
	portfolio *portfolio.Service
	feedback  *feedback.Service
	dialogue  *dialogue.Orchestrator

	detach func()
}

type appOpts struct {
	// Offline swaps the chain and AI providers for the in-process fakes.
	Offline bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOpts) (*app, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, err
	}

	chainClient, err := newChainClient(cfg, opts.Offline, log)
	if err != nil {
		return nil, err
	}
	aiClient, err := newAIClient(ctx, cfg, opts.Offline, log)
	if err != nil {
		return nil, err
	}

	b := bus.New(log.Named("bus"))
	store := agent.NewStore(b, agent.DefaultRoster())
	if err := restoreCoordinations(gormDB, store, log); err != nil {
		return nil, err
	}
	detach := messaging.NewArchive(gormDB, log.Named("archive")).Attach(b)

	wallets := wallet.NewService(gormDB, chainClient, b, log.Named("wallet"), cfg.Chain)
	return &app{
		cfg:       cfg,
		log:       log,
		db:        gormDB,
		bus:       b,
		store:     store,
		chain:     chainClient,
		ai:        aiClient,
		wallets:   wallets,
		nfts:      nft.NewService(gormDB, chainClient, wallets, b, log.Named("nft")),
		portfolio: portfolio.NewService(wallets, chainClient, log.Named("portfolio")),
		feedback:  feedback.NewService(gormDB, b),
		dialogue:  dialogue.New(store, aiClient, log.Named("dialogue")),
		detach:    detach,
	}, nil
}

// restoreCoordinations reloads hand-offs left open by a previous run so they
// can still be acknowledged and resolved.
func restoreCoordinations(gormDB *gorm.DB, store *agent.Store, log *zap.Logger) error {
	rows, err := messaging.Unresolved(gormDB)
	if err != nil {
		return err
	}
	open := make([]agent.Coordination, len(rows))
	for i, row := range rows {
		open[i] = messaging.ToAgentCoordination(row)
	}
	if n := store.RestoreCoordinations(open); n > 0 {
		log.Info("restored open coordinations", zap.Int("count", n))
	}
	return nil
}

func (a *app) Close() {
	a.detach()
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.log.Sync()
}

func newChainClient(cfg *config.Config, offline bool, log *zap.Logger) (chain.Client, error) {
	if offline || cfg.Chain.BaseURL == "" {
		log.Info("using mock blockchain provider")
		return chain.NewMockClient(), nil
	}
	return chain.NewHTTPClient(cfg.Chain)
}

func newAIClient(ctx context.Context, cfg *config.Config, offline bool, log *zap.Logger) (ai.Client, error) {
	if offline || cfg.GenAI.APIKey == "" {
		log.Info("using static AI responses")
		return &ai.StaticClient{}, nil
	}
	return ai.NewGenAIClient(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, cfg.GenAI.ImageModel, log.Named("genai"))
}

// withApp loads config, wires the app, runs fn, and tears the app down.
func withApp(cmd *cobra.Command, configPath string, opts appOpts, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// userByEmail resolves the --user flag.
func userByEmail(ctx context.Context, gormDB *gorm.DB, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("--user is required (or set DESK_USER)")
	}
	var u models.User
	err := gormDB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	return &u, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
