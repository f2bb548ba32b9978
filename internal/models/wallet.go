package models

import "time"

// Wallet is a custodial wallet created through the blockchain provider.
type Wallet struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"size:36;not null;index" json:"user_id"`
	Address    string     `gorm:"size:128;not null" json:"address"`
	PrivateKey string     `gorm:"type:text;not null" json:"-"`
	Mnemonic   string     `gorm:"type:text" json:"-"`
	Network    string     `gorm:"size:32;not null" json:"network"`
	Kind       string     `gorm:"size:16;not null" json:"kind"` // "solana" or "ethereum"
	Name       string     `gorm:"size:128" json:"name"`
	Primary    bool       `gorm:"column:is_primary;default:false;index" json:"primary"`
	Balance    float64    `gorm:"default:0" json:"balance"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
