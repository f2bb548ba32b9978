package telegraph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
)

// Report holds dashboard activity for a period.
type Report struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	UsersCreated   int
	WalletsCreated int
	NFTsMinted     int
	Feedback       int
	AvgRating      float64
	AgentBreakdown []AgentDigest
	Coordinations  map[string]int // status -> count
}

// AgentDigest holds per-persona message counts.
type AgentDigest struct {
	AgentID  string
	Messages int
}

// Empty reports whether nothing happened in the period.
func (r *Report) Empty() bool {
	return r.UsersCreated == 0 && r.WalletsCreated == 0 && r.NFTsMinted == 0 &&
		r.Feedback == 0 && len(r.AgentBreakdown) == 0 && len(r.Coordinations) == 0
}

// BuildDigest queries the record store for activity in [since, until).
func BuildDigest(db *gorm.DB, since, until time.Time) (*Report, error) {
	report := &Report{
		PeriodStart:   since,
		PeriodEnd:     until,
		Coordinations: map[string]int{},
	}

	counts := []struct {
		model any
		dst   *int
	}{
		{&models.User{}, &report.UsersCreated},
		{&models.Wallet{}, &report.WalletsCreated},
		{&models.NFT{}, &report.NFTsMinted},
	}
	for _, c := range counts {
		var n int64
		if err := db.Model(c.model).
			Where("created_at >= ? AND created_at < ?", since, until).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("telegraph: digest: %w", err)
		}
		*c.dst = int(n)
	}

	var fb struct {
		Count int64
		Avg   float64
	}
	if err := db.Model(&models.Feedback{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as avg").
		Scan(&fb).Error; err != nil {
		return nil, fmt.Errorf("telegraph: digest feedback: %w", err)
	}
	report.Feedback = int(fb.Count)
	report.AvgRating = fb.Avg

	var perAgent []struct {
		AgentID string
		Total   int64
	}
	if err := db.Model(&models.AgentMessage{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Select("agent_id, COUNT(*) as total").
		Group("agent_id").
		Scan(&perAgent).Error; err != nil {
		return nil, fmt.Errorf("telegraph: digest messages: %w", err)
	}
	for _, row := range perAgent {
		report.AgentBreakdown = append(report.AgentBreakdown, AgentDigest{AgentID: row.AgentID, Messages: int(row.Total)})
	}
	sort.Slice(report.AgentBreakdown, func(i, j int) bool {
		a, b := report.AgentBreakdown[i], report.AgentBreakdown[j]
		if a.Messages != b.Messages {
			return a.Messages > b.Messages
		}
		return a.AgentID < b.AgentID
	})

	var perStatus []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Coordination{}).
		Where("updated_at >= ? AND updated_at < ?", since, until).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&perStatus).Error; err != nil {
		return nil, fmt.Errorf("telegraph: digest coordinations: %w", err)
	}
	for _, row := range perStatus {
		report.Coordinations[row.Status] = int(row.Total)
	}

	return report, nil
}

// FormatDigest formats a report as a FormattedEvent.
func FormatDigest(report *Report) FormattedEvent {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Period**: %s – %s",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04")))
	bodyLines = append(bodyLines, fmt.Sprintf("**Activity**: %d users, %d wallets, %d NFTs",
		report.UsersCreated, report.WalletsCreated, report.NFTsMinted))
	if report.Feedback > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Feedback**: %d (avg %.1f)", report.Feedback, report.AvgRating))
	}

	if len(report.AgentBreakdown) > 0 {
		bodyLines = append(bodyLines, "")
		bodyLines = append(bodyLines, "**Per Agent**:")
		for _, ad := range report.AgentBreakdown {
			bodyLines = append(bodyLines, fmt.Sprintf("  %s: %d messages", ad.AgentID, ad.Messages))
		}
	}

	if len(report.Coordinations) > 0 {
		statuses := make([]string, 0, len(report.Coordinations))
		for s := range report.Coordinations {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		parts := make([]string, 0, len(statuses))
		for _, s := range statuses {
			parts = append(parts, fmt.Sprintf("%d %s", report.Coordinations[s], s))
		}
		bodyLines = append(bodyLines, fmt.Sprintf("**Hand-offs**: %s", strings.Join(parts, ", ")))
	}

	fields := []Field{
		{Name: "Users", Value: fmt.Sprintf("%d", report.UsersCreated), Short: true},
		{Name: "Wallets", Value: fmt.Sprintf("%d", report.WalletsCreated), Short: true},
		{Name: "NFTs", Value: fmt.Sprintf("%d", report.NFTsMinted), Short: true},
	}
	if report.Feedback > 0 {
		fields = append(fields, Field{Name: "Rating", Value: fmt.Sprintf("%.1f", report.AvgRating), Short: true})
	}

	return FormattedEvent{
		Title:    "Daily Digest",
		Body:     strings.Join(bodyLines, "\n"),
		Severity: "info",
		Color:    ColorInfo,
		Fields:   fields,
	}
}
