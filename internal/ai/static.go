package ai

import (
	"context"
	"fmt"
	"sync"
)

// StaticClient is a scripted Client for tests and offline mode.
type StaticClient struct {
	// ReplyFunc, when set, produces chat replies; otherwise Reply is echoed
	// back, or a canned acknowledgement of the input when Reply is empty.
	ReplyFunc func(ChatRequest) (string, error)
	Reply     string
	Image     string
	Metadata  NFTMetadata
	Advice    string
	Err       error

	mu    sync.Mutex
	calls []ChatRequest
}

var _ Client = (*StaticClient)(nil)

// ChatResponse returns the scripted reply.
func (s *StaticClient) ChatResponse(_ context.Context, req ChatRequest) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.ReplyFunc != nil {
		return s.ReplyFunc(req)
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Reply != "" {
		return s.Reply, nil
	}
	return fmt.Sprintf("Noted: %s", req.Input), nil
}

// NFTImage returns the scripted image URL.
func (s *StaticClient) NFTImage(context.Context, string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Image == "" {
		return "https://example.invalid/nft.png", nil
	}
	return s.Image, nil
}

// NFTMetadata returns the scripted metadata, naming it after the prompt when
// none is configured.
func (s *StaticClient) NFTMetadata(_ context.Context, prompt string) (NFTMetadata, error) {
	if s.Err != nil {
		return NFTMetadata{}, s.Err
	}
	if s.Metadata.Name == "" {
		return NFTMetadata{Name: prompt, Description: "Generated from: " + prompt}, nil
	}
	return s.Metadata, nil
}

// InvestmentAdvice returns the scripted advice.
func (s *StaticClient) InvestmentAdvice(_ context.Context, req AdviceRequest) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Advice == "" {
		return advicePrompt(req), nil
	}
	return s.Advice, nil
}

// Calls returns the chat requests received so far.
func (s *StaticClient) Calls() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRequest(nil), s.calls...)
}
