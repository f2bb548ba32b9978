// Package messaging persists the agent activity trail: the message log and
// the coordination hand-offs between personas.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var openStatuses = []string{string(agent.CoordinationPending), string(agent.CoordinationAcknowledged)}

// Record persists one agent message.
func Record(db *gorm.DB, msg agent.Message) (*models.AgentMessage, error) {
	if msg.ID == "" {
		return nil, fmt.Errorf("messaging: message id is required")
	}
	if msg.AgentID == "" {
		return nil, fmt.Errorf("messaging: agent id is required")
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("messaging: encode payload: %w", err)
	}
	row := models.AgentMessage{
		ID:        msg.ID,
		AgentID:   msg.AgentID,
		UserID:    msg.UserID,
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		Payload:   string(payload),
		CreatedAt: msg.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("messaging: record %s: %w", msg.ID, err)
	}
	return &row, nil
}

// Scope narrows a query, e.g. ForUser.
type Scope = func(*gorm.DB) *gorm.DB

// ForUser restricts messages or coordinations to those raised for userID.
func ForUser(userID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// History returns up to limit of the most recent persisted messages, newest
// first, optionally for one agent. limit <= 0 returns all.
func History(db *gorm.DB, agentID string, limit int, scopes ...Scope) ([]models.AgentMessage, error) {
	q := db.Scopes(scopes...).Order("created_at DESC")
	if agentID != "" {
		q = q.Where("agent_id = ?", agentID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []models.AgentMessage
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: history: %w", err)
	}
	return msgs, nil
}

// Handoff persists a coordination, inserting it or overwriting the stored
// copy with the same id.
func Handoff(db *gorm.DB, c agent.Coordination) (*models.Coordination, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("messaging: coordination id is required")
	}
	if c.From == "" || c.To == "" {
		return nil, fmt.Errorf("messaging: coordination needs from and to agents")
	}

	row := models.Coordination{
		ID:        c.ID,
		UserID:    c.UserID,
		FromAgent: c.From,
		ToAgent:   c.To,
		Task:      c.Task,
		Status:    string(c.Status),
		Result:    c.Result,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if row.Status == "" {
		row.Status = string(agent.CoordinationPending)
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("messaging: handoff %s: %w", c.ID, err)
	}
	return &row, nil
}

// Pending returns coordinations addressed to agentID that are not yet
// completed or failed, oldest first.
func Pending(db *gorm.DB, agentID string, scopes ...Scope) ([]models.Coordination, error) {
	if agentID == "" {
		return nil, fmt.Errorf("messaging: agentID is required")
	}
	var out []models.Coordination
	if err := db.Scopes(scopes...).Where("to_agent = ? AND status IN ?", agentID, openStatuses).
		Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("messaging: pending %s: %w", agentID, err)
	}
	return out, nil
}

// Coordinations returns up to limit of the most recent coordinations,
// newest first. limit <= 0 returns all.
func Coordinations(db *gorm.DB, limit int, scopes ...Scope) ([]models.Coordination, error) {
	q := db.Scopes(scopes...).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Coordination
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("messaging: coordinations: %w", err)
	}
	return out, nil
}

// Get returns one persisted coordination.
func Get(db *gorm.DB, id string, scopes ...Scope) (*models.Coordination, error) {
	var row models.Coordination
	err := db.Scopes(scopes...).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("messaging: coordination %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: get coordination %s: %w", id, err)
	}
	return &row, nil
}

// Transition moves a persisted coordination to status, enforcing the same
// lifecycle as the in-memory store.
func Transition(db *gorm.DB, id string, status agent.CoordinationStatus, result string, scopes ...Scope) (*models.Coordination, error) {
	row, err := Get(db, id, scopes...)
	if err != nil {
		return nil, err
	}
	if !agent.CoordinationStatus(row.Status).CanTransition(status) {
		return nil, fmt.Errorf("messaging: %w: %s -> %s", agent.ErrInvalidTransition, row.Status, status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": string(status), "updated_at": now}
	if result != "" {
		updates["result"] = result
	}
	if err := db.Model(row).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("messaging: transition %s: %w", id, err)
	}
	row.Status = string(status)
	row.UpdatedAt = now
	if result != "" {
		row.Result = result
	}
	return row, nil
}

// Unresolved returns every coordination still pending or acknowledged,
// oldest first. Used to reload open hand-offs after a restart.
func Unresolved(db *gorm.DB) ([]models.Coordination, error) {
	var out []models.Coordination
	if err := db.Where("status IN ?", openStatuses).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("messaging: unresolved: %w", err)
	}
	return out, nil
}

// ToAgentCoordination converts a persisted row back into the store's form.
func ToAgentCoordination(row models.Coordination) agent.Coordination {
	return agent.Coordination{
		ID:        row.ID,
		UserID:    row.UserID,
		From:      row.FromAgent,
		To:        row.ToAgent,
		Task:      row.Task,
		Status:    agent.CoordinationStatus(row.Status),
		Result:    row.Result,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
