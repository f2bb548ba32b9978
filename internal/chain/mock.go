package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
)

// MockClient is a deterministic in-memory provider for tests and offline
// mode. Addresses and default balances derive from a counter, so the same
// sequence of calls always yields the same results.
type MockClient struct {
	mu       sync.Mutex
	seq      int
	balances map[string]float64
	failures map[string]error
	prices   map[Kind]float64
	minted   []MintRequest

	// Err, when set, fails every call.
	Err error
}

var _ Client = (*MockClient)(nil)

// NewMockClient returns a mock with default SOL and ETH prices.
func NewMockClient() *MockClient {
	return &MockClient{
		balances: make(map[string]float64),
		failures: make(map[string]error),
		prices:   map[Kind]float64{KindSolana: 150, KindEthereum: 3000},
	}
}

// SetBalance fixes the balance reported for address.
func (m *MockClient) SetBalance(address string, balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = balance
}

// FailBalance makes balance lookups for address return err.
func (m *MockClient) FailBalance(address string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[address] = err
}

// SetPrice fixes the USD price of kind's native asset.
func (m *MockClient) SetPrice(kind Kind, usd float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[kind] = usd
}

// Minted returns the mint requests received so far.
func (m *MockClient) Minted() []MintRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MintRequest(nil), m.minted...)
}

func (m *MockClient) CreateWallet(_ context.Context, kind Kind, network string) (NewWallet, error) {
	if m.Err != nil {
		return NewWallet{}, m.Err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return NewWallet{}, err
	}

	m.mu.Lock()
	m.seq++
	seed := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", kind, network, m.seq)))
	m.mu.Unlock()

	w := NewWallet{PrivateKey: hex.EncodeToString(seed[:])}
	switch kind {
	case KindEthereum:
		w.Address = "0x" + hex.EncodeToString(seed[:20])
	default:
		w.Address = "So1" + hex.EncodeToString(seed[:16])
		w.Mnemonic = "mock seed phrase " + hex.EncodeToString(seed[:4])
	}
	return w, nil
}

func (m *MockClient) Balance(_ context.Context, _ Kind, _ string, address string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[address]; ok {
		return 0, err
	}
	if b, ok := m.balances[address]; ok {
		return b, nil
	}
	sum := sha256.Sum256([]byte(address))
	return float64(binary.BigEndian.Uint16(sum[:2])%1000) / 100, nil
}

func (m *MockClient) MintNFT(_ context.Context, req MintRequest) (MintResult, error) {
	if m.Err != nil {
		return MintResult{}, m.Err
	}
	if req.Recipient == "" || req.PrivateKey == "" {
		return MintResult{}, &APIError{StatusCode: 400, Message: "recipient and private key are required"}
	}

	m.mu.Lock()
	m.minted = append(m.minted, req)
	n := len(m.minted)
	m.mu.Unlock()

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", req.Recipient, req.Name, n)))
	res := MintResult{TxID: hex.EncodeToString(sum[:])}
	if req.Kind == KindEthereum {
		res.TokenID = fmt.Sprintf("%d", n)
	} else {
		res.MintAddress = "Mint" + hex.EncodeToString(sum[:12])
	}
	return res, nil
}

func (m *MockClient) PortfolioValue(_ context.Context, holdings []Holding) (Valuation, error) {
	if m.Err != nil {
		return Valuation{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := Valuation{Prices: make(map[string]float64)}
	for _, h := range holdings {
		price := m.prices[h.Kind]
		v.Prices[h.Kind.Symbol()] = price
		v.TotalUSD += h.Amount * price
	}
	return v, nil
}
