// Package nft mints NFTs from a user's wallet and keeps a record of them.
package nft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/chain"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MintedEvent is published on nft.minted.
type MintedEvent struct {
	UserID string     `json:"user_id"`
	NFT    models.NFT `json:"nft"`
}

// MintOpts describes an NFT to mint. An empty WalletID mints from the
// user's primary wallet.
type MintOpts struct {
	WalletID    string            `json:"wallet_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Attributes  []chain.Attribute `json:"attributes"`
}

func (o MintOpts) validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("nft: %w: name is required", models.ErrValidation)
	}
	if strings.TrimSpace(o.ImageURL) == "" {
		return fmt.Errorf("nft: %w: image url is required", models.ErrValidation)
	}
	return nil
}

// Service mints and lists NFTs.
type Service struct {
	db      *gorm.DB
	chain   chain.Client
	wallets *wallet.Service
	bus     *bus.Bus
	log     *zap.Logger
}

// NewService wires an NFT service.
func NewService(db *gorm.DB, client chain.Client, wallets *wallet.Service, b *bus.Bus, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, chain: client, wallets: wallets, bus: b, log: log}
}

// Mint signs a mint with the chosen wallet's key and records the result.
func (s *Service) Mint(ctx context.Context, userID string, opts MintOpts) (*models.NFT, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var (
		w   *models.Wallet
		err error
	)
	if opts.WalletID != "" {
		w, err = s.wallets.Get(ctx, userID, opts.WalletID)
	} else {
		w, err = s.wallets.Primary(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.chain.MintNFT(ctx, chain.MintRequest{
		Kind:        chain.Kind(w.Kind),
		Network:     w.Network,
		Name:        opts.Name,
		Description: opts.Description,
		ImageURL:    opts.ImageURL,
		Attributes:  opts.Attributes,
		PrivateKey:  w.PrivateKey,
		Recipient:   w.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("nft: mint: %w", err)
	}

	attrs := "[]"
	if len(opts.Attributes) > 0 {
		data, err := json.Marshal(opts.Attributes)
		if err != nil {
			return nil, fmt.Errorf("nft: encode attributes: %w", err)
		}
		attrs = string(data)
	}
	record := models.NFT{
		ID:          uuid.NewString(),
		UserID:      userID,
		WalletID:    w.ID,
		Name:        opts.Name,
		Description: opts.Description,
		ImageURL:    opts.ImageURL,
		Attributes:  attrs,
		TxID:        res.TxID,
		MintAddress: res.MintAddress,
		TokenID:     res.TokenID,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// The token exists on chain; keep the tx id in the log so it can be
		// recorded by hand.
		s.log.Error("nft minted but not recorded", zap.String("tx", res.TxID), zap.Error(err))
		return nil, fmt.Errorf("nft: record mint %s: %w", res.TxID, err)
	}

	s.log.Info("nft minted", zap.String("user", userID), zap.String("nft", record.ID), zap.String("tx", res.TxID))
	if s.bus != nil {
		s.bus.Publish(bus.TopicNFTMinted, MintedEvent{UserID: userID, NFT: record})
	}
	return &record, nil
}

// List returns the user's NFTs, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.NFT, error) {
	var nfts []models.NFT
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&nfts).Error; err != nil {
		return nil, fmt.Errorf("nft: list: %w", err)
	}
	return nfts, nil
}
