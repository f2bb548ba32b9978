package db

import (
	"fmt"

	"github.com/zulandar/agentdesk/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Session{},
		&models.Wallet{},
		&models.NFT{},
		&models.Feedback{},
		&models.AgentMessage{},
		&models.Coordination{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
