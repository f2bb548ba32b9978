package agent

import "time"

// CoordinationStatus tracks a hand-off through its lifecycle.
type CoordinationStatus string

const (
	CoordinationPending      CoordinationStatus = "pending"
	CoordinationAcknowledged CoordinationStatus = "acknowledged"
	CoordinationCompleted    CoordinationStatus = "completed"
	CoordinationFailed       CoordinationStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s CoordinationStatus) Terminal() bool {
	return s == CoordinationCompleted || s == CoordinationFailed
}

// CanTransition reports whether s may move to next.
func (s CoordinationStatus) CanTransition(next CoordinationStatus) bool {
	switch s {
	case CoordinationPending:
		return next == CoordinationAcknowledged || next == CoordinationCompleted || next == CoordinationFailed
	case CoordinationAcknowledged:
		return next == CoordinationCompleted || next == CoordinationFailed
	}
	return false
}

// Coordination is a recorded hand-off from one persona to another.
type Coordination struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id,omitempty"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Task      string             `json:"task"`
	Status    CoordinationStatus `json:"status"`
	Result    string             `json:"result,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
