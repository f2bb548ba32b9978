// Package feedback collects user testimonials and publishes approved ones.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
)

// MaxBodyLength caps a testimonial's length in runes.
const MaxBodyLength = 2000

// Service stores feedback.
type Service struct {
	db  *gorm.DB
	bus *bus.Bus
}

// NewService wires a feedback service.
func NewService(db *gorm.DB, b *bus.Bus) *Service {
	return &Service{db: db, bus: b}
}

// Submit validates and stores a testimonial. New feedback awaits approval.
func (s *Service) Submit(ctx context.Context, userID string, rating int, body string) (*models.Feedback, error) {
	body = strings.TrimSpace(body)
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("feedback: %w: rating must be between 1 and 5", models.ErrValidation)
	}
	if body == "" {
		return nil, fmt.Errorf("feedback: %w: body is required", models.ErrValidation)
	}
	if len([]rune(body)) > MaxBodyLength {
		return nil, fmt.Errorf("feedback: %w: body exceeds %d characters", models.ErrValidation, MaxBodyLength)
	}

	fb := models.Feedback{UserID: userID, Rating: rating, Body: body, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
		return nil, fmt.Errorf("feedback: submit: %w", err)
	}
	if s.bus != nil {
		s.bus.Publish(bus.TopicFeedbackSubmitted, fb)
	}
	return &fb, nil
}

// ListApproved returns approved feedback, newest first. limit <= 0 returns
// all.
func (s *Service) ListApproved(ctx context.Context, limit int) ([]models.Feedback, error) {
	q := s.db.WithContext(ctx).Where("approved = ?", true).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Feedback
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("feedback: list: %w", err)
	}
	return out, nil
}

// Approve marks feedback as publishable.
func (s *Service) Approve(ctx context.Context, id uint) error {
	var fb models.Feedback
	err := s.db.WithContext(ctx).First(&fb, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("feedback %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("feedback: approve %d: %w", id, err)
	}
	if err := s.db.WithContext(ctx).Model(&fb).Update("approved", true).Error; err != nil {
		return fmt.Errorf("feedback: approve %d: %w", id, err)
	}
	return nil
}
