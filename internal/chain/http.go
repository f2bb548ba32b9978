package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zulandar/agentdesk/internal/config"
	"golang.org/x/oauth2/clientcredentials"
)

// maxResponseBytes caps how much of a provider response body is read.
const maxResponseBytes = 1 << 20

// HTTPClient implements Client as JSON over HTTPS.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a provider client from config. When a token URL is
// configured requests carry OAuth2 client-credentials tokens, otherwise the
// API key is sent in the X-API-Key header.
func NewHTTPClient(cfg config.ChainConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chain: base_url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("chain: invalid base_url: %w", err)
	}

	hc := &http.Client{}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		hc = cc.Client(context.Background())
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    hc,
	}, nil
}

// CreateWallet asks the provider to generate a new custodial wallet.
func (c *HTTPClient) CreateWallet(ctx context.Context, kind Kind, network string) (NewWallet, error) {
	var out NewWallet
	body := map[string]string{"kind": string(kind), "network": network}
	if err := c.do(ctx, http.MethodPost, "/wallets", body, &out); err != nil {
		return NewWallet{}, fmt.Errorf("chain: create wallet: %w", err)
	}
	if out.Address == "" {
		return NewWallet{}, fmt.Errorf("chain: create wallet: provider returned no address")
	}
	return out, nil
}

// Balance returns the native-asset balance of address.
func (c *HTTPClient) Balance(ctx context.Context, kind Kind, network, address string) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	path := fmt.Sprintf("/wallets/%s/%s/%s/balance",
		url.PathEscape(string(kind)), url.PathEscape(network), url.PathEscape(address))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, fmt.Errorf("chain: balance %s: %w", address, err)
	}
	return out.Balance, nil
}

// MintNFT mints an NFT signed by the request's private key.
func (c *HTTPClient) MintNFT(ctx context.Context, req MintRequest) (MintResult, error) {
	var out MintResult
	if err := c.do(ctx, http.MethodPost, "/nfts/mint", req, &out); err != nil {
		return MintResult{}, fmt.Errorf("chain: mint nft: %w", err)
	}
	return out, nil
}

// PortfolioValue values holdings in USD at current prices.
func (c *HTTPClient) PortfolioValue(ctx context.Context, holdings []Holding) (Valuation, error) {
	var out Valuation
	body := map[string][]Holding{"holdings": holdings}
	if err := c.do(ctx, http.MethodPost, "/portfolio/value", body, &out); err != nil {
		return Valuation{}, fmt.Errorf("chain: portfolio value: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error
// body, falling back to the raw text.
func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(data))
}
