package agent

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/classifier"
)

// defaultAnalysisHistory bounds the analysis history kept in memory.
const defaultAnalysisHistory = 50

var (
	// ErrUnknownAgent is returned for an agent id outside the roster.
	ErrUnknownAgent = errors.New("agent: unknown agent")
	// ErrUnknownCoordination is returned for a coordination id never recorded.
	ErrUnknownCoordination = errors.New("agent: unknown coordination")
	// ErrInvalidTransition is returned for a disallowed coordination status change.
	ErrInvalidTransition = errors.New("agent: invalid coordination transition")
)

// Message is one entry in the append-only agent message log.
type Message struct {
	ID        string      `json:"id"`
	AgentID   string      `json:"agent_id"`
	UserID    string      `json:"user_id,omitempty"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
	Payload   Payload     `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// StatusChange is published on bus.TopicAgentStatus.
type StatusChange struct {
	AgentID  string `json:"agent_id"`
	Previous Status `json:"previous"`
	Status   Status `json:"status"`
}

// AnalysisRecord is one classifier verdict kept in the analysis history.
type AnalysisRecord struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id,omitempty"`
	Analysis  classifier.Analysis `json:"analysis"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store is the application-state container. All mutation goes through its
// setters, which serialize on one mutex and publish the matching bus event
// after the lock is released.
type Store struct {
	mu            sync.RWMutex
	agents        []Agent
	index         map[string]int
	messages      []Message
	analyses      []AnalysisRecord
	maxAnalyses   int
	coordinations []Coordination
	coordIndex    map[string]int

	bus   *bus.Bus
	now   func() time.Time
	newID func() string
}

// NewStore creates a Store seeded with roster. A nil bus disables events.
func NewStore(b *bus.Bus, roster []Agent) *Store {
	s := &Store{
		index:       make(map[string]int, len(roster)),
		coordIndex:  make(map[string]int),
		maxAnalyses: defaultAnalysisHistory,
		bus:         b,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, a := range roster {
		a.Specialties = append([]string(nil), a.Specialties...)
		if a.Status == "" {
			a.Status = StatusIdle
		}
		s.index[a.ID] = len(s.agents)
		s.agents = append(s.agents, a)
	}
	return s
}

func (s *Store) publish(topic bus.Topic, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

// Agents returns a copy of the roster in display order.
func (s *Store) Agents() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, len(s.agents))
	for i, a := range s.agents {
		a.Specialties = append([]string(nil), a.Specialties...)
		out[i] = a
	}
	return out
}

// Agent returns one roster entry.
func (s *Store) Agent(id string) (Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Agent{}, false
	}
	a := s.agents[i]
	a.Specialties = append([]string(nil), a.Specialties...)
	return a, true
}

// SetStatus changes an agent's status. Setting the current status again is a
// no-op and publishes nothing.
func (s *Store) SetStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("agent: invalid status %q", status)
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	prev := s.agents[i].Status
	s.agents[i].Status = status
	s.mu.Unlock()

	if prev != status {
		s.publish(bus.TopicAgentStatus, StatusChange{AgentID: id, Previous: prev, Status: status})
	}
	return nil
}

// AppendMessage adds a message to the log on behalf of userID. The agent must
// be in the roster. An empty userID marks a system message.
func (s *Store) AppendMessage(agentID, userID, content string, payload Payload) (Message, error) {
	if payload == nil {
		return Message{}, fmt.Errorf("agent: message payload is required")
	}

	s.mu.Lock()
	if _, ok := s.index[agentID]; !ok {
		s.mu.Unlock()
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	msg := Message{
		ID:        s.newID(),
		AgentID:   agentID,
		UserID:    userID,
		Content:   content,
		Kind:      payload.Kind(),
		Payload:   payload,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.publish(bus.TopicAgentMessage, msg)
	return msg, nil
}

// Messages returns up to limit of the most recent messages, oldest first,
// optionally filtered by agent. limit <= 0 returns all.
func (s *Store) Messages(agentID string, limit int) []Message {
	return s.filterMessages(func(m Message) bool {
		return agentID == "" || m.AgentID == agentID
	}, limit)
}

// MessagesFor is Messages restricted to one user's conversation.
func (s *Store) MessagesFor(userID, agentID string, limit int) []Message {
	return s.filterMessages(func(m Message) bool {
		return m.UserID == userID && (agentID == "" || m.AgentID == agentID)
	}, limit)
}

func (s *Store) filterMessages(match func(Message) bool, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if !match(m) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// RecordAnalysis appends a classifier verdict to the history, evicting the
// oldest beyond the history bound.
func (s *Store) RecordAnalysis(userID string, a classifier.Analysis) AnalysisRecord {
	s.mu.Lock()
	rec := AnalysisRecord{
		ID:        s.newID(),
		UserID:    userID,
		Analysis:  a,
		CreatedAt: s.now(),
	}
	s.analyses = append(s.analyses, rec)
	if over := len(s.analyses) - s.maxAnalyses; over > 0 {
		s.analyses = append([]AnalysisRecord(nil), s.analyses[over:]...)
	}
	s.mu.Unlock()

	s.publish(bus.TopicAnalysisCompleted, rec)
	return rec
}

// Analyses returns the analysis history, oldest first.
func (s *Store) Analyses() []AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AnalysisRecord, len(s.analyses))
	copy(out, s.analyses)
	return out
}

// LatestAnalysisFor returns userID's most recent analysis, which supersedes
// their earlier ones.
func (s *Store) LatestAnalysisFor(userID string) (AnalysisRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].UserID == userID {
			return s.analyses[i], true
		}
	}
	return AnalysisRecord{}, false
}

// AddCoordination records a pending hand-off between two roster agents,
// raised while serving userID.
func (s *Store) AddCoordination(userID, from, to, task string) (Coordination, error) {
	if from == to {
		return Coordination{}, fmt.Errorf("agent: coordination from %s to itself", from)
	}

	s.mu.Lock()
	for _, id := range []string{from, to} {
		if _, ok := s.index[id]; !ok {
			s.mu.Unlock()
			return Coordination{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
		}
	}
	now := s.now()
	c := Coordination{
		ID:        s.newID(),
		UserID:    userID,
		From:      from,
		To:        to,
		Task:      task,
		Status:    CoordinationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.coordIndex[c.ID] = len(s.coordinations)
	s.coordinations = append(s.coordinations, c)
	s.mu.Unlock()

	s.publish(bus.TopicAgentCoordination, c)
	return c, nil
}

// UpdateCoordination moves a coordination to status, recording result.
func (s *Store) UpdateCoordination(id string, status CoordinationStatus, result string) (Coordination, error) {
	s.mu.Lock()
	i, ok := s.coordIndex[id]
	if !ok {
		s.mu.Unlock()
		return Coordination{}, fmt.Errorf("%w: %s", ErrUnknownCoordination, id)
	}
	c := s.coordinations[i]
	if !c.Status.CanTransition(status) {
		s.mu.Unlock()
		return Coordination{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, status)
	}
	c.Status = status
	if result != "" {
		c.Result = result
	}
	c.UpdatedAt = s.now()
	s.coordinations[i] = c
	s.mu.Unlock()

	s.publish(bus.TopicAgentCoordination, c)
	return c, nil
}

// Coordinations returns the coordination trail, oldest first.
func (s *Store) Coordinations() []Coordination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Coordination, len(s.coordinations))
	copy(out, s.coordinations)
	return out
}

// Coordination returns one recorded hand-off.
func (s *Store) Coordination(id string) (Coordination, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.coordIndex[id]
	if !ok {
		return Coordination{}, false
	}
	return s.coordinations[i], true
}

// RestoreCoordinations loads hand-offs persisted by an earlier process so they
// can still be acknowledged and resolved. Ids already known are skipped.
// Nothing is published.
func (s *Store) RestoreCoordinations(cs []Coordination) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range cs {
		if _, ok := s.coordIndex[c.ID]; ok || c.ID == "" {
			continue
		}
		s.coordIndex[c.ID] = len(s.coordinations)
		s.coordinations = append(s.coordinations, c)
		n++
	}
	return n
}
