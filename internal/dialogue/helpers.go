package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/classifier"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/portfolio"
	"golang.org/x/sync/errgroup"
)

// NFTDraft is generated artwork and metadata ready to mint.
type NFTDraft struct {
	Metadata ai.NFTMetadata `json:"metadata"`
	ImageURL string         `json:"image_url"`
}

// GenerateNFT has the NFT persona design an NFT from prompt. Metadata and
// image are generated concurrently.
func (o *Orchestrator) GenerateNFT(ctx context.Context, userID, prompt string) (NFTDraft, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return NFTDraft{}, fmt.Errorf("dialogue: %w: prompt is required", models.ErrValidation)
	}
	persona, ok := o.store.Agent(classifier.AgentNFT)
	if !ok {
		return NFTDraft{}, fmt.Errorf("dialogue: %w: %s", agent.ErrUnknownAgent, classifier.AgentNFT)
	}

	o.begin(persona.ID, prompt, agent.TaskPayload{Input: prompt, UserID: userID, Category: string(classifier.CategoryNFT)})
	start := time.Now()

	var draft NFTDraft
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		md, err := o.ai.NFTMetadata(gctx, prompt)
		draft.Metadata = md
		return err
	})
	g.Go(func() error {
		url, err := o.ai.NFTImage(gctx, prompt)
		draft.ImageURL = url
		return err
	})
	if err := g.Wait(); err != nil {
		o.fail(persona, userID, "nft generation", err)
		return NFTDraft{}, fmt.Errorf("dialogue: generate nft: %w", err)
	}

	note := fmt.Sprintf("I designed %q for you. Review the artwork and mint it when you're happy.", draft.Metadata.Name)
	o.complete(persona.ID, userID, note, agent.CompletionPayload{Reply: note, LatencyMs: time.Since(start).Milliseconds()})
	return draft, nil
}

// InvestmentAdvice has the DeFi persona advise on req. The request is
// validated before the AI service is contacted.
func (o *Orchestrator) InvestmentAdvice(ctx context.Context, userID string, req ai.AdviceRequest) (string, error) {
	if err := portfolio.ValidateAdviceRequest(req); err != nil {
		return "", err
	}
	persona, ok := o.store.Agent(classifier.AgentDeFi)
	if !ok {
		return "", fmt.Errorf("dialogue: %w: %s", agent.ErrUnknownAgent, classifier.AgentDeFi)
	}

	input := fmt.Sprintf("Advise on investing %.2f USD (%s risk; goals: %s)", req.Amount, req.Risk, strings.Join(req.Goals, ", "))
	o.begin(persona.ID, input, agent.TaskPayload{Input: input, UserID: userID, Category: string(classifier.CategoryDeFi)})
	start := time.Now()

	advice, err := o.ai.InvestmentAdvice(ctx, req)
	if err != nil {
		o.fail(persona, userID, "investment advice", err)
		return "", fmt.Errorf("dialogue: investment advice: %w", err)
	}
	o.complete(persona.ID, userID, advice, agent.CompletionPayload{Reply: advice, LatencyMs: time.Since(start).Milliseconds()})
	return advice, nil
}
