package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
)

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName     *string  `json:"display_name"`
	RiskLevel       *string  `json:"risk_level"`
	InvestmentGoals []string `json:"investment_goals"`
}

// Profile is the public view of a user.
type Profile struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name"`
	RiskLevel       string   `json:"risk_level"`
	InvestmentGoals []string `json:"investment_goals"`
}

// ProfileOf builds the public view of u.
func ProfileOf(u *models.User) Profile {
	goals := u.Goals()
	if goals == nil {
		goals = []string{}
	}
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		RiskLevel:       u.RiskLevel,
		InvestmentGoals: goals,
	}
}

// GetProfile loads a user's profile.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (Profile, error) {
	var user models.User
	err := db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, fmt.Errorf("auth: user %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("auth: get profile: %w", err)
	}
	return ProfileOf(&user), nil
}

// UpdateProfile validates and applies upd.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, upd ProfileUpdate) (Profile, error) {
	updates := map[string]interface{}{}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return Profile{}, fmt.Errorf("auth: %w: display name cannot be empty", models.ErrValidation)
		}
		updates["display_name"] = name
	}
	if upd.RiskLevel != nil {
		if !models.ValidRiskLevel(*upd.RiskLevel) {
			return Profile{}, fmt.Errorf("auth: %w: unknown risk level %q", models.ErrValidation, *upd.RiskLevel)
		}
		updates["risk_level"] = *upd.RiskLevel
	}
	if upd.InvestmentGoals != nil {
		var u models.User
		u.SetGoals(cleanGoals(upd.InvestmentGoals))
		updates["investment_goals"] = u.InvestmentGoals
	}

	if _, err := GetProfile(ctx, db, userID); err != nil {
		return Profile{}, err
	}
	if len(updates) > 0 {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return Profile{}, fmt.Errorf("auth: update profile: %w", err)
		}
	}
	return GetProfile(ctx, db, userID)
}

func cleanGoals(goals []string) []string {
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
