// Package ai wraps the generative AI service behind a small interface used by
// the dialogue layer for persona replies, NFT artwork and investment advice.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the service answers with no content.
var ErrEmptyResponse = errors.New("ai: empty response")

// Role identifies the author of one conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior exchange included as conversation context.
type Turn struct {
	Role Role
	Text string
}

// ChatRequest is a persona reply request.
type ChatRequest struct {
	System  string
	History []Turn
	Input   string
}

// Attribute is one NFT trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NFTMetadata is generated descriptive data for an NFT.
type NFTMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
}

// AdviceRequest asks for investment guidance.
type AdviceRequest struct {
	Amount float64
	Risk   string
	Goals  []string
}

// Client is the generative AI surface the rest of the system depends on.
type Client interface {
	ChatResponse(ctx context.Context, req ChatRequest) (string, error)
	NFTImage(ctx context.Context, prompt string) (string, error)
	NFTMetadata(ctx context.Context, prompt string) (NFTMetadata, error)
	InvestmentAdvice(ctx context.Context, req AdviceRequest) (string, error)
}

func metadataPrompt(prompt string) string {
	return "Create metadata for an NFT based on this idea: " + prompt + "\n" +
		`Respond with a JSON object: {"name": string, "description": string, ` +
		`"attributes": [{"trait_type": string, "value": string}]}.`
}

func imagePrompt(prompt string) string {
	return "Digital artwork for an NFT collectible, high detail, square composition: " + prompt
}

func advicePrompt(req AdviceRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "An investor has %.2f USD to allocate with a %s risk tolerance.\n", req.Amount, req.Risk)
	if len(req.Goals) > 0 {
		fmt.Fprintf(&b, "Their goals: %s.\n", strings.Join(req.Goals, ", "))
	}
	b.WriteString("Suggest an allocation across crypto assets and DeFi strategies, ")
	b.WriteString("explain the main risks, and state clearly that this is not financial advice.")
	return b.String()
}
