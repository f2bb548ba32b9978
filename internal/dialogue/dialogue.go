// Package dialogue drives the persona conversation: it routes user input
// through the classifier, asks the AI service for each responding persona's
// reply, and records status, messages and hand-offs in the agent store.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/classifier"
	"github.com/zulandar/agentdesk/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryWindow is how many prior messages of a persona are sent as
// conversation context.
const DefaultHistoryWindow = 6

// Reply is one persona's answer.
type Reply struct {
	AgentID    string          `json:"agent_id"`
	AgentName  string          `json:"agent_name"`
	Tier       classifier.Tier `json:"tier"`
	Confidence float64         `json:"confidence"`
	Content    string          `json:"content"`
	Fallback   bool            `json:"fallback"`
	Error      string          `json:"error,omitempty"`
	Handoffs   []string        `json:"handoffs,omitempty"`
}

// Result is the outcome of one submitted prompt.
type Result struct {
	Analysis agent.AnalysisRecord `json:"analysis"`
	Replies  []Reply              `json:"replies"`
}

// Orchestrator coordinates classifier, AI client and agent store.
type Orchestrator struct {
	store *agent.Store
	ai    ai.Client
	log   *zap.Logger

	HistoryWindow int
}

// New creates an Orchestrator.
func New(store *agent.Store, client ai.Client, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{store: store, ai: client, log: log, HistoryWindow: DefaultHistoryWindow}
}

// Submit classifies input, records the analysis, and collects a reply from
// the primary and every secondary persona. Replies are returned in
// activation order regardless of completion order.
func (o *Orchestrator) Submit(ctx context.Context, userID, input string) (Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, fmt.Errorf("dialogue: %w: message is required", models.ErrValidation)
	}

	rec := o.store.RecordAnalysis(userID, classifier.Analyze(input))
	responders := rec.Analysis.Responders()

	var (
		mu      sync.Mutex
		byAgent = make(map[string]Reply, len(responders))
		g       errgroup.Group
	)
	for _, act := range responders {
		g.Go(func() error {
			r, err := o.Respond(ctx, userID, act, input)
			if err != nil {
				return err
			}
			mu.Lock()
			byAgent[act.AgentID] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	replies := make([]Reply, 0, len(responders))
	for _, act := range responders {
		replies = append(replies, byAgent[act.AgentID])
	}
	return Result{Analysis: rec, Replies: replies}, nil
}

// Respond produces one persona's reply to input. AI failures never escape:
// the persona's fallback reply is returned and the failure is logged in the
// message log. The only error is an activation naming an unknown persona.
func (o *Orchestrator) Respond(ctx context.Context, userID string, act classifier.Activation, input string) (Reply, error) {
	persona, ok := o.store.Agent(act.AgentID)
	if !ok {
		return Reply{}, fmt.Errorf("dialogue: %w: %s", agent.ErrUnknownAgent, act.AgentID)
	}
	reply := Reply{
		AgentID:    persona.ID,
		AgentName:  persona.Name,
		Tier:       act.Tier,
		Confidence: act.Confidence,
	}

	history := o.history(persona.ID, userID)
	o.begin(persona.ID, input, TaskFor(userID, act, input))

	start := time.Now()
	text, err := o.ai.ChatResponse(ctx, ai.ChatRequest{
		System:  persona.SystemRole,
		History: history,
		Input:   input,
	})
	if err != nil {
		o.fail(persona, userID, "chat", err)
		reply.Content = persona.Fallback
		reply.Fallback = true
		reply.Error = err.Error()
		return reply, nil
	}

	handoffs := DetectHandoffs(text, persona.ID, o.store.Agents())
	o.complete(persona.ID, userID, text, agent.CompletionPayload{
		Reply:     text,
		Handoffs:  handoffs,
		LatencyMs: time.Since(start).Milliseconds(),
	})
	for _, to := range handoffs {
		if _, err := o.store.AddCoordination(userID, persona.ID, to, input); err != nil {
			o.log.Warn("dialogue: record handoff", zap.String("from", persona.ID), zap.String("to", to), zap.Error(err))
		}
	}

	reply.Content = text
	reply.Handoffs = handoffs
	return reply, nil
}

// TaskFor builds the task payload logged when a persona starts on input.
func TaskFor(userID string, act classifier.Activation, input string) agent.TaskPayload {
	return agent.TaskPayload{
		Input:    input,
		UserID:   userID,
		Tier:     string(act.Tier),
		Score:    act.Confidence,
		Category: string(act.Category),
	}
}

// DetectHandoffs returns the ids of every other persona whose display name
// appears verbatim in reply, in roster order.
func DetectHandoffs(reply, selfID string, roster []agent.Agent) []string {
	var out []string
	for _, a := range roster {
		if a.ID == selfID || a.Name == "" {
			continue
		}
		if strings.Contains(reply, a.Name) {
			out = append(out, a.ID)
		}
	}
	return out
}

// history converts the persona's recent messages with userID into
// conversation turns. Other users' exchanges never leak into the context.
func (o *Orchestrator) history(agentID, userID string) []ai.Turn {
	if o.HistoryWindow <= 0 {
		return nil
	}
	var turns []ai.Turn
	for _, m := range o.store.MessagesFor(userID, agentID, o.HistoryWindow) {
		switch p := m.Payload.(type) {
		case agent.TaskPayload:
			turns = append(turns, ai.Turn{Role: ai.RoleUser, Text: p.Input})
		case agent.CompletionPayload:
			turns = append(turns, ai.Turn{Role: ai.RoleModel, Text: p.Reply})
		}
	}
	return turns
}

func (o *Orchestrator) begin(agentID, content string, task agent.TaskPayload) {
	o.setStatus(agentID, agent.StatusProcessing)
	o.append(agentID, task.UserID, content, task)
}

func (o *Orchestrator) complete(agentID, userID, content string, done agent.CompletionPayload) {
	o.append(agentID, userID, content, done)
	o.setStatus(agentID, agent.StatusActive)
}

func (o *Orchestrator) fail(persona agent.Agent, userID, op string, err error) {
	o.log.Warn("dialogue: ai call failed", zap.String("agent", persona.ID), zap.String("op", op), zap.Error(err))
	o.setStatus(persona.ID, agent.StatusError)
	o.append(persona.ID, userID, persona.Fallback, agent.ErrorPayload{
		Operation: op,
		Error:     err.Error(),
		Fallback:  persona.Fallback,
	})
}

func (o *Orchestrator) setStatus(agentID string, s agent.Status) {
	if err := o.store.SetStatus(agentID, s); err != nil {
		o.log.Warn("dialogue: set status", zap.String("agent", agentID), zap.Error(err))
	}
}

func (o *Orchestrator) append(agentID, userID, content string, p agent.Payload) {
	if _, err := o.store.AppendMessage(agentID, userID, content, p); err != nil {
		o.log.Warn("dialogue: append message", zap.String("agent", agentID), zap.Error(err))
	}
}
