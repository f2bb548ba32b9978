// Package chain talks to the hosted blockchain API provider that creates
// custodial wallets, reads balances, mints NFTs and values holdings.
package chain

import (
	"context"
	"fmt"
)

// Kind is a supported blockchain family.
type Kind string

const (
	KindSolana   Kind = "solana"
	KindEthereum Kind = "ethereum"
)

// ParseKind validates a wallet kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSolana, KindEthereum:
		return Kind(s), nil
	}
	return "", fmt.Errorf("chain: unknown wallet kind %q", s)
}

// Symbol returns the native asset ticker for the kind.
func (k Kind) Symbol() string {
	switch k {
	case KindSolana:
		return "SOL"
	case KindEthereum:
		return "ETH"
	}
	return ""
}

// NewWallet is the key material returned by the provider for a new wallet.
type NewWallet struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
	Mnemonic   string `json:"mnemonic,omitempty"`
}

// Attribute is one NFT trait sent with a mint request.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// MintRequest describes an NFT to mint.
type MintRequest struct {
	Kind        Kind        `json:"kind"`
	Network     string      `json:"network"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	PrivateKey  string      `json:"private_key"`
	Recipient   string      `json:"recipient"`
}

// MintResult identifies a minted NFT. Solana returns a mint address,
// Ethereum a token id.
type MintResult struct {
	TxID        string `json:"tx_id"`
	MintAddress string `json:"mint_address,omitempty"`
	TokenID     string `json:"token_id,omitempty"`
}

// Holding is an amount of a native asset to value.
type Holding struct {
	Kind   Kind    `json:"kind"`
	Amount float64 `json:"amount"`
}

// Valuation is the provider's USD valuation of a set of holdings.
type Valuation struct {
	TotalUSD float64            `json:"total_usd"`
	Prices   map[string]float64 `json:"prices"`
}

// Client is the blockchain provider surface.
type Client interface {
	CreateWallet(ctx context.Context, kind Kind, network string) (NewWallet, error)
	Balance(ctx context.Context, kind Kind, network, address string) (float64, error)
	MintNFT(ctx context.Context, req MintRequest) (MintResult, error)
	PortfolioValue(ctx context.Context, holdings []Holding) (Valuation, error)
}

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain: provider returned %d: %s", e.StatusCode, e.Message)
}
