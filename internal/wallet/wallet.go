// Package wallet manages custodial wallets: creation through the blockchain
// provider, the per-user primary flag, deletion and balance sync.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/chain"
	"github.com/zulandar/agentdesk/internal/config"
	"github.com/zulandar/agentdesk/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncConcurrency bounds concurrent balance lookups in SyncAll.
const syncConcurrency = 4

// ErrPrimaryWallet is returned when deleting the user's primary wallet.
var ErrPrimaryWallet = errors.New("wallet: cannot delete the primary wallet")

// Event is published on wallet.created, wallet.deleted and wallet.primary.
type Event struct {
	UserID          string        `json:"user_id"`
	Wallet          models.Wallet `json:"wallet"`
	PreviousPrimary string        `json:"previous_primary,omitempty"`
}

// BalanceEvent is published on wallet.synced.
type BalanceEvent struct {
	UserID   string    `json:"user_id"`
	WalletID string    `json:"wallet_id"`
	Address  string    `json:"address"`
	Kind     string    `json:"kind"`
	Previous float64   `json:"previous"`
	Balance  float64   `json:"balance"`
	SyncedAt time.Time `json:"synced_at"`
}

// CreateOpts describes a wallet to create. Network defaults per kind.
type CreateOpts struct {
	Kind    string `json:"kind"`
	Network string `json:"network"`
	Name    string `json:"name"`
}

// SyncReport holds the per-wallet outcome of SyncAll, keyed by wallet id.
type SyncReport struct {
	Synced map[string]models.Wallet
	Failed map[string]error
}

// Service implements wallet operations.
type Service struct {
	db       *gorm.DB
	chain    chain.Client
	bus      *bus.Bus
	log      *zap.Logger
	networks map[chain.Kind]string
}

// NewService wires a wallet service. Default networks come from cfg.
func NewService(db *gorm.DB, client chain.Client, b *bus.Bus, log *zap.Logger, cfg config.ChainConfig) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:    db,
		chain: client,
		bus:   b,
		log:   log,
		networks: map[chain.Kind]string{
			chain.KindSolana:   cfg.SolanaNetwork,
			chain.KindEthereum: cfg.EthereumNetwork,
		},
	}
}

func (s *Service) publish(topic bus.Topic, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

// Create asks the provider for a new wallet and stores it. A user's first
// wallet becomes primary.
func (s *Service) Create(ctx context.Context, userID string, opts CreateOpts) (*models.Wallet, error) {
	kind, err := chain.ParseKind(strings.ToLower(strings.TrimSpace(opts.Kind)))
	if err != nil {
		return nil, fmt.Errorf("wallet: %w: %v", models.ErrValidation, err)
	}
	network := strings.TrimSpace(opts.Network)
	if network == "" {
		network = s.networks[kind]
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = fmt.Sprintf("%s wallet", kind.Symbol())
	}

	created, err := s.chain.CreateWallet(ctx, kind, network)
	if err != nil {
		return nil, fmt.Errorf("wallet: create: %w", err)
	}

	w := models.Wallet{
		ID:         uuid.NewString(),
		UserID:     userID,
		Address:    created.Address,
		PrivateKey: created.PrivateKey,
		Mnemonic:   created.Mnemonic,
		Network:    network,
		Kind:       string(kind),
		Name:       name,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Wallet{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		w.Primary = count == 0
		return tx.Create(&w).Error
	})
	if err != nil {
		return nil, fmt.Errorf("wallet: store: %w", err)
	}

	s.log.Info("wallet created", zap.String("user", userID), zap.String("wallet", w.ID),
		zap.String("kind", w.Kind), zap.Bool("primary", w.Primary))
	s.publish(bus.TopicWalletCreated, Event{UserID: userID, Wallet: w})
	return &w, nil
}

// List returns the user's wallets, primary first then oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_primary DESC").Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("wallet: list: %w", err)
	}
	return wallets, nil
}

// Get returns one of the user's wallets.
func (s *Service) Get(ctx context.Context, userID, walletID string) (*models.Wallet, error) {
	return get(s.db.WithContext(ctx), userID, walletID)
}

func get(db *gorm.DB, userID, walletID string) (*models.Wallet, error) {
	var w models.Wallet
	err := db.Where("id = ? AND user_id = ?", walletID, userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wallet %s: %w", walletID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: get %s: %w", walletID, err)
	}
	return &w, nil
}

// Primary returns the user's primary wallet.
func (s *Service) Primary(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_primary = ?", userID, true).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wallet: primary for %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: primary: %w", err)
	}
	return &w, nil
}

// Delete removes a wallet. The primary wallet is refused before anything is
// changed.
func (s *Service) Delete(ctx context.Context, userID, walletID string) error {
	w, err := s.Get(ctx, userID, walletID)
	if err != nil {
		return err
	}
	if w.Primary {
		return ErrPrimaryWallet
	}
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ? AND is_primary = ?", walletID, userID, false).
		Delete(&models.Wallet{}).Error; err != nil {
		return fmt.Errorf("wallet: delete %s: %w", walletID, err)
	}

	s.log.Info("wallet deleted", zap.String("user", userID), zap.String("wallet", walletID))
	s.publish(bus.TopicWalletDeleted, Event{UserID: userID, Wallet: *w})
	return nil
}

// lockUser takes a row lock on the owning user so concurrent transactions
// touching that user's primary flag run one after another. SQLite ignores the
// lock; its writers are already serialized.
func lockUser(tx *gorm.DB, userID string) error {
	var users []models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", userID).Find(&users).Error
}

// SetPrimary moves the primary flag to walletID in one transaction. Setting
// the current primary again is a no-op.
func (s *Service) SetPrimary(ctx context.Context, userID, walletID string) (*models.Wallet, error) {
	var (
		target   *models.Wallet
		previous string
		changed  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		w, err := get(tx, userID, walletID)
		if err != nil {
			return err
		}
		target = w
		if w.Primary {
			return nil
		}

		var current []models.Wallet
		if err := tx.Where("user_id = ? AND is_primary = ?", userID, true).Find(&current).Error; err != nil {
			return err
		}
		if len(current) > 1 {
			return fmt.Errorf("wallet: user %s has %d primary wallets", userID, len(current))
		}
		if len(current) == 1 {
			previous = current[0].ID
			if err := tx.Model(&models.Wallet{}).Where("id = ?", previous).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Wallet{}).Where("id = ?", walletID).
			Update("is_primary", true).Error; err != nil {
			return err
		}
		target.Primary = true
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("wallet: set primary %s: %w", walletID, err)
	}

	if changed {
		s.log.Info("primary wallet changed", zap.String("user", userID),
			zap.String("wallet", walletID), zap.String("previous", previous))
		s.publish(bus.TopicWalletPrimary, Event{UserID: userID, Wallet: *target, PreviousPrimary: previous})
	}
	return target, nil
}

// SyncBalance refreshes one wallet's balance from the provider.
func (s *Service) SyncBalance(ctx context.Context, userID, walletID string) (*models.Wallet, error) {
	w, err := s.Get(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, w)
}

func (s *Service) sync(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	balance, err := s.chain.Balance(ctx, chain.Kind(w.Kind), w.Network, w.Address)
	if err != nil {
		return nil, fmt.Errorf("wallet: sync %s: %w", w.ID, err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", w.ID).
		Updates(map[string]interface{}{"balance": balance, "last_synced": now}).Error; err != nil {
		return nil, fmt.Errorf("wallet: sync %s: %w", w.ID, err)
	}

	previous := w.Balance
	w.Balance = balance
	w.LastSynced = &now
	s.publish(bus.TopicWalletSynced, BalanceEvent{
		UserID:   w.UserID,
		WalletID: w.ID,
		Address:  w.Address,
		Kind:     w.Kind,
		Previous: previous,
		Balance:  balance,
		SyncedAt: now,
	})
	return w, nil
}

// SyncAll refreshes every wallet of the user concurrently. A failing wallet
// does not stop the others; outcomes are keyed by wallet id.
func (s *Service) SyncAll(ctx context.Context, userID string) (SyncReport, error) {
	wallets, err := s.List(ctx, userID)
	if err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{
		Synced: make(map[string]models.Wallet, len(wallets)),
		Failed: make(map[string]error),
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for i := range wallets {
		w := wallets[i]
		g.Go(func() error {
			updated, err := s.sync(ctx, &w)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[w.ID] = err
				return nil
			}
			report.Synced[w.ID] = *updated
			return nil
		})
	}
	_ = g.Wait()

	for id, err := range report.Failed {
		s.log.Warn("wallet sync failed", zap.String("user", userID), zap.String("wallet", id), zap.Error(err))
	}
	return report, nil
}

// SyncEveryone refreshes the wallets of every user that has one. It returns
// the number of wallets synced and failed.
func (s *Service) SyncEveryone(ctx context.Context) (synced, failed int, err error) {
	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Distinct("user_id").Pluck("user_id", &userIDs).Error; err != nil {
		return 0, 0, fmt.Errorf("wallet: list owners: %w", err)
	}
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		report, err := s.SyncAll(ctx, id)
		if err != nil {
			return synced, failed, err
		}
		synced += len(report.Synced)
		failed += len(report.Failed)
	}
	return synced, failed, nil
}
