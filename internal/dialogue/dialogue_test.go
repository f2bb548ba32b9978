package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/classifier"
	"github.com/zulandar/agentdesk/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newOrchestrator(client ai.Client) (*Orchestrator, *agent.Store, *bus.Bus) {
	b := bus.New(nil)
	store := agent.NewStore(b, agent.DefaultRoster())
	return New(store, client, nil), store, b
}

func kinds(msgs []agent.Message) []agent.MessageKind {
	out := make([]agent.MessageKind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}

func TestSubmit_BlankInput(t *testing.T) {
	o, store, _ := newOrchestrator(&ai.StaticClient{})
	_, err := o.Submit(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, store.Analyses())
}

func TestSubmit_SingleResponder(t *testing.T) {
	client := &ai.StaticClient{Reply: "Here is a concept for your collection."}
	o, store, b := newOrchestrator(client)
	var analyses int
	b.Subscribe(bus.TopicAnalysisCompleted, func(bus.Event) error {
		analyses++
		return nil
	})

	res, err := o.Submit(context.Background(), "u1", "mint an nft")
	require.NoError(t, err)

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	assert.Equal(t, classifier.AgentNFT, r.AgentID)
	assert.Equal(t, "NFT Artisan", r.AgentName)
	assert.Equal(t, classifier.TierPrimary, r.Tier)
	assert.False(t, r.Fallback)
	assert.Equal(t, 1, analyses)

	a, _ := store.Agent(classifier.AgentNFT)
	assert.Equal(t, agent.StatusActive, a.Status)
	assert.Equal(t, []agent.MessageKind{agent.KindTask, agent.KindCompletion}, kinds(store.Messages(classifier.AgentNFT, 0)))

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "NFT Artisan")
	assert.Equal(t, "mint an nft", calls[0].Input)
}

func TestSubmit_MultiAgentRepliesInActivationOrder(t *testing.T) {
	client := &ai.StaticClient{ReplyFunc: func(req ai.ChatRequest) (string, error) {
		// The primary persona answers last.
		if strings.Contains(req.System, "NFT Artisan") {
			time.Sleep(30 * time.Millisecond)
			return "nft reply", nil
		}
		return "staking reply", nil
	}}
	o, _, _ := newOrchestrator(client)

	res, err := o.Submit(context.Background(), "u1", "mint an nft and stake the rewards")
	require.NoError(t, err)

	assert.True(t, res.Analysis.Analysis.MultiAgent)
	require.Len(t, res.Replies, 2)
	assert.Equal(t, classifier.AgentNFT, res.Replies[0].AgentID)
	assert.Equal(t, "nft reply", res.Replies[0].Content)
	assert.Equal(t, classifier.AgentStaking, res.Replies[1].AgentID)
	assert.Equal(t, "staking reply", res.Replies[1].Content)
}

func TestRespond_FailureReturnsFallback(t *testing.T) {
	client := &ai.StaticClient{Err: errors.New("quota exceeded")}
	o, store, _ := newOrchestrator(client)

	res, err := o.Submit(context.Background(), "u1", "check my wallet balance")
	require.NoError(t, err, "ai failures are never fatal")

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	persona, _ := store.Agent(classifier.AgentWallet)
	assert.True(t, r.Fallback)
	assert.Equal(t, persona.Fallback, r.Content)
	assert.Contains(t, r.Error, "quota exceeded")
	assert.Equal(t, agent.StatusError, persona.Status)

	msgs := store.Messages(classifier.AgentWallet, 0)
	assert.Equal(t, []agent.MessageKind{agent.KindTask, agent.KindError}, kinds(msgs))
	payload := msgs[1].Payload.(agent.ErrorPayload)
	assert.Equal(t, "chat", payload.Operation)
	assert.Equal(t, persona.Fallback, payload.Fallback)
}

func TestRespond_RecoversAfterError(t *testing.T) {
	client := &ai.StaticClient{Err: errors.New("down")}
	o, store, _ := newOrchestrator(client)
	_, err := o.Submit(context.Background(), "u1", "check my wallet")
	require.NoError(t, err)

	client.Err = nil
	_, err = o.Submit(context.Background(), "u1", "check my wallet")
	require.NoError(t, err)

	a, _ := store.Agent(classifier.AgentWallet)
	assert.Equal(t, agent.StatusActive, a.Status)
}

func TestRespond_UnknownAgent(t *testing.T) {
	o, _, _ := newOrchestrator(&ai.StaticClient{})
	_, err := o.Respond(context.Background(), "u1", classifier.Activation{AgentID: "ghost"}, "hi")
	assert.ErrorIs(t, err, agent.ErrUnknownAgent)
}

func TestRespond_HandoffCreatesPendingCoordination(t *testing.T) {
	client := &ai.StaticClient{Reply: "Great idea. Wallet Guardian will confirm your primary wallet first."}
	o, store, b := newOrchestrator(client)
	var events []agent.Coordination
	b.Subscribe(bus.TopicAgentCoordination, func(e bus.Event) error {
		events = append(events, e.Payload.(agent.Coordination))
		return nil
	})

	res, err := o.Submit(context.Background(), "u1", "mint an nft")
	require.NoError(t, err)

	assert.Equal(t, []string{classifier.AgentWallet}, res.Replies[0].Handoffs)
	coords := store.Coordinations()
	require.Len(t, coords, 1)
	assert.Equal(t, classifier.AgentNFT, coords[0].From)
	assert.Equal(t, classifier.AgentWallet, coords[0].To)
	assert.Equal(t, agent.CoordinationPending, coords[0].Status)
	assert.Equal(t, "mint an nft", coords[0].Task)
	assert.Equal(t, "u1", coords[0].UserID)
	require.Len(t, events, 1)

	msgs := store.Messages(classifier.AgentNFT, 1)
	done := msgs[0].Payload.(agent.CompletionPayload)
	assert.Equal(t, []string{classifier.AgentWallet}, done.Handoffs)
}

func TestDetectHandoffs(t *testing.T) {
	roster := agent.DefaultRoster()
	tests := []struct {
		name  string
		reply string
		self  string
		want  []string
	}{
		{"no names", "Just mint it.", classifier.AgentNFT, nil},
		{"self mention ignored", "As NFT Artisan I suggest pastel tones.", classifier.AgentNFT, nil},
		{"two personas in roster order", "Ask Staking Sage, then DeFi Strategist.", classifier.AgentGeneral,
			[]string{classifier.AgentDeFi, classifier.AgentStaking}},
		{"case sensitive", "ask the wallet guardian", classifier.AgentNFT, nil},
		// A negated mention still counts: detection is a plain substring search.
		{"negated mention still matches", "You don't need Wallet Guardian for this.", classifier.AgentNFT,
			[]string{classifier.AgentWallet}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectHandoffs(tt.reply, tt.self, roster))
		})
	}
}

func TestRespond_HistoryWindow(t *testing.T) {
	client := &ai.StaticClient{}
	o, _, _ := newOrchestrator(client)
	o.HistoryWindow = 2

	for _, q := range []string{"mint an nft", "nft metadata ideas", "nft collectible names"} {
		_, err := o.Submit(context.Background(), "u1", q)
		require.NoError(t, err)
	}

	calls := client.Calls()
	require.Len(t, calls, 3)
	assert.Empty(t, calls[0].History)
	require.Len(t, calls[2].History, 2)
	assert.Equal(t, ai.Turn{Role: ai.RoleUser, Text: "nft metadata ideas"}, calls[2].History[0])
	assert.Equal(t, ai.RoleModel, calls[2].History[1].Role)
}

func TestRespond_HistoryIsPerUser(t *testing.T) {
	client := &ai.StaticClient{ReplyFunc: func(req ai.ChatRequest) (string, error) {
		return "noted: " + req.Input, nil
	}}
	o, store, _ := newOrchestrator(client)

	_, err := o.Submit(context.Background(), "alice", "mint an nft of my purple otter codename")
	require.NoError(t, err)
	_, err = o.Submit(context.Background(), "bob", "mint an nft")
	require.NoError(t, err)
	_, err = o.Submit(context.Background(), "bob", "nft metadata ideas")
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 3)
	assert.Empty(t, calls[1].History, "bob starts without alice's turns")
	for _, turn := range calls[2].History {
		assert.NotContains(t, turn.Text, "purple otter")
	}
	assert.Len(t, calls[2].History, 2)

	for _, m := range store.MessagesFor("bob", "", 0) {
		assert.Equal(t, "bob", m.UserID)
		assert.NotContains(t, m.Content, "purple otter")
	}
	assert.Len(t, store.MessagesFor("alice", classifier.AgentNFT, 0), 2)
}

func TestGenerateNFT(t *testing.T) {
	client := &ai.StaticClient{
		Image:    "https://img/fox.png",
		Metadata: ai.NFTMetadata{Name: "Neon Fox", Description: "A glowing fox"},
	}
	o, store, _ := newOrchestrator(client)

	draft, err := o.GenerateNFT(context.Background(), "u1", "a neon fox")
	require.NoError(t, err)
	assert.Equal(t, "Neon Fox", draft.Metadata.Name)
	assert.Equal(t, "https://img/fox.png", draft.ImageURL)

	a, _ := store.Agent(classifier.AgentNFT)
	assert.Equal(t, agent.StatusActive, a.Status)
	msgs := store.Messages(classifier.AgentNFT, 0)
	assert.Equal(t, []agent.MessageKind{agent.KindTask, agent.KindCompletion}, kinds(msgs))
	assert.Contains(t, msgs[1].Content, "Neon Fox")
}

func TestGenerateNFT_Errors(t *testing.T) {
	client := &ai.StaticClient{Err: errors.New("image model busy")}
	o, store, _ := newOrchestrator(client)

	_, err := o.GenerateNFT(context.Background(), "u1", " ")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = o.GenerateNFT(context.Background(), "u1", "a fox")
	assert.Error(t, err)
	a, _ := store.Agent(classifier.AgentNFT)
	assert.Equal(t, agent.StatusError, a.Status)
}

func TestInvestmentAdvice(t *testing.T) {
	client := &ai.StaticClient{Advice: "Split 60/40 between staking and stablecoin yield."}
	o, store, _ := newOrchestrator(client)

	got, err := o.InvestmentAdvice(context.Background(), "u1", ai.AdviceRequest{
		Amount: 1000, Risk: models.RiskModerate, Goals: []string{"income"},
	})
	require.NoError(t, err)
	assert.Equal(t, client.Advice, got)

	msgs := store.Messages(classifier.AgentDeFi, 0)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "1000.00 USD")
}

func TestInvestmentAdvice_ValidatesBeforeCalling(t *testing.T) {
	client := &ai.StaticClient{Err: errors.New("should not be reached")}
	o, store, _ := newOrchestrator(client)

	_, err := o.InvestmentAdvice(context.Background(), "u1", ai.AdviceRequest{Amount: 0, Risk: "moderate", Goals: []string{"x"}})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, store.Messages(classifier.AgentDeFi, 0))
}
