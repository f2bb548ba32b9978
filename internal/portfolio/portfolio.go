// Package portfolio derives portfolio analytics from live wallet balances and
// provider prices.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/chain"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/zap"
)

// WalletValue is one wallet's contribution to the portfolio.
type WalletValue struct {
	WalletID string  `json:"wallet_id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Address  string  `json:"address"`
	Balance  float64 `json:"balance"`
	USD      float64 `json:"usd"`
	Stale    bool    `json:"stale"`
	Error    string  `json:"error,omitempty"`
}

// KindTotal aggregates wallets of one kind.
type KindTotal struct {
	Balance float64 `json:"balance"`
	USD     float64 `json:"usd"`
	Percent float64 `json:"percent"`
}

// Summary is the portfolio view of one user.
type Summary struct {
	TotalUSD    float64              `json:"total_usd"`
	Wallets     []WalletValue        `json:"wallets"`
	ByKind      map[string]KindTotal `json:"by_kind"`
	Prices      map[string]float64   `json:"prices"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Service computes portfolio summaries.
type Service struct {
	wallets *wallet.Service
	chain   chain.Client
	log     *zap.Logger
}

// NewService wires a portfolio service.
func NewService(wallets *wallet.Service, client chain.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{wallets: wallets, chain: client, log: log}
}

// Summary refreshes every wallet balance, values the holdings and computes
// per-kind allocation. Wallets whose refresh fails keep their stored balance
// and are flagged stale.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	list, err := s.wallets.List(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	report, err := s.wallets.SyncAll(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	values := make([]WalletValue, 0, len(list))
	held := make(map[chain.Kind]float64)
	for _, w := range list {
		v := WalletValue{WalletID: w.ID, Name: w.Name, Kind: w.Kind, Address: w.Address, Balance: w.Balance}
		if synced, ok := report.Synced[w.ID]; ok {
			v.Balance = synced.Balance
		} else if err, ok := report.Failed[w.ID]; ok {
			v.Stale = true
			v.Error = err.Error()
		}
		held[chain.Kind(w.Kind)] += v.Balance
		values = append(values, v)
	}

	sum := Summary{
		Wallets:     values,
		ByKind:      make(map[string]KindTotal),
		Prices:      map[string]float64{},
		GeneratedAt: time.Now(),
	}
	if len(values) == 0 {
		return sum, nil
	}

	kinds := make([]chain.Kind, 0, len(held))
	for k := range held {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	holdings := make([]chain.Holding, 0, len(kinds))
	for _, k := range kinds {
		holdings = append(holdings, chain.Holding{Kind: k, Amount: held[k]})
	}

	valuation, err := s.chain.PortfolioValue(ctx, holdings)
	if err != nil {
		return Summary{}, fmt.Errorf("portfolio: value holdings: %w", err)
	}
	if valuation.Prices != nil {
		sum.Prices = valuation.Prices
	}

	for i := range sum.Wallets {
		v := &sum.Wallets[i]
		v.USD = v.Balance * sum.Prices[chain.Kind(v.Kind).Symbol()]
		kt := sum.ByKind[v.Kind]
		kt.Balance += v.Balance
		kt.USD += v.USD
		sum.ByKind[v.Kind] = kt
		sum.TotalUSD += v.USD
	}
	if sum.TotalUSD > 0 {
		for k, kt := range sum.ByKind {
			kt.Percent = kt.USD / sum.TotalUSD * 100
			sum.ByKind[k] = kt
		}
	}
	return sum, nil
}

// ValidateAdviceRequest rejects an advice request before any network call.
func ValidateAdviceRequest(req ai.AdviceRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return fmt.Errorf("portfolio: %w: amount must be greater than zero", models.ErrValidation)
	}
	if !models.ValidRiskLevel(req.Risk) {
		return fmt.Errorf("portfolio: %w: unknown risk level %q", models.ErrValidation, req.Risk)
	}
	for _, g := range req.Goals {
		if strings.TrimSpace(g) != "" {
			return nil
		}
	}
	return fmt.Errorf("portfolio: %w: at least one investment goal is required", models.ErrValidation)
}
