package models

import "time"

// NFT records a token minted through the blockchain provider.
type NFT struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	WalletID    string    `gorm:"size:36;not null;index" json:"wallet_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	Attributes  string    `gorm:"type:text" json:"attributes"` // JSON array
	TxID        string    `gorm:"size:128" json:"tx_id"`
	MintAddress string    `gorm:"size:128" json:"mint_address,omitempty"`
	TokenID     string    `gorm:"size:128" json:"token_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
