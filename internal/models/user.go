package models

import (
	"encoding/json"
	"time"
)

// Risk levels accepted for profiles and investment advice.
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

// ValidRiskLevel reports whether level is a known risk level.
func ValidRiskLevel(level string) bool {
	switch level {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// User is a registered dashboard account.
type User struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Email           string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash    string    `gorm:"size:72;not null" json:"-"`
	DisplayName     string    `gorm:"size:128" json:"display_name"`
	RiskLevel       string    `gorm:"size:16;default:moderate" json:"risk_level"`
	InvestmentGoals string    `gorm:"type:text" json:"investment_goals"` // JSON array
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Session is a bearer token issued at sign-in.
type Session struct {
	Token     string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// Goals decodes InvestmentGoals. A malformed column reads as no goals.
func (u *User) Goals() []string {
	if u.InvestmentGoals == "" {
		return nil
	}
	var goals []string
	if err := json.Unmarshal([]byte(u.InvestmentGoals), &goals); err != nil {
		return nil
	}
	return goals
}

// SetGoals encodes goals into InvestmentGoals.
func (u *User) SetGoals(goals []string) {
	if len(goals) == 0 {
		u.InvestmentGoals = ""
		return
	}
	data, _ := json.Marshal(goals)
	u.InvestmentGoals = string(data)
}
