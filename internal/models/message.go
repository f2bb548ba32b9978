package models

import (
	"encoding/json"
	"time"
)

// AgentMessage mirrors one entry of the in-memory agent message log.
type AgentMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AgentID   string    `gorm:"size:32;not null;index" json:"agent_id"`
	UserID    string    `gorm:"size:36;index" json:"user_id,omitempty"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	Content   string    `gorm:"type:text" json:"content"`
	Payload   string    `gorm:"type:text" json:"-"` // JSON of the typed payload
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// MarshalJSON embeds the stored payload as a JSON object rather than a
// string. A payload that is not valid JSON is emitted as null.
func (m AgentMessage) MarshalJSON() ([]byte, error) {
	type alias AgentMessage
	var payload json.RawMessage
	if json.Valid([]byte(m.Payload)) {
		payload = json.RawMessage(m.Payload)
	}
	return json.Marshal(struct {
		alias
		Payload json.RawMessage `json:"payload"`
	}{alias: alias(m), Payload: payload})
}

// Coordination is a persisted hand-off from one agent persona to another.
type Coordination struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index" json:"user_id,omitempty"`
	FromAgent string    `gorm:"size:32;not null" json:"from_agent"`
	ToAgent   string    `gorm:"size:32;not null;index" json:"to_agent"`
	Task      string    `gorm:"type:text" json:"task"`
	Status    string    `gorm:"size:16;default:pending;index" json:"status"`
	Result    string    `gorm:"type:text" json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
