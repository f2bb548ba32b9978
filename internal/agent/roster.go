// Package agent holds the persona roster and the application-state container
// for agent status, the message log, analysis history and coordination trail.
package agent

import "github.com/zulandar/agentdesk/internal/classifier"

// Status is an agent's current activity state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusActive     Status = "active"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusActive, StatusProcessing, StatusError:
		return true
	}
	return false
}

// Agent is a named dialogue persona.
type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Avatar      string   `json:"avatar"`
	Specialties []string `json:"specialties"`
	SystemRole  string   `json:"-"`
	Fallback    string   `json:"-"`
}

// DefaultRoster returns the five built-in personas in display order.
func DefaultRoster() []Agent {
	return []Agent{
		{
			ID:          classifier.AgentNFT,
			Name:        "NFT Artisan",
			Description: "Designs NFT concepts, writes metadata and mints collectibles.",
			Status:      StatusIdle,
			Avatar:      "🎨",
			Specialties: []string{"nft", "digital-art", "metadata", "minting"},
			SystemRole: "You are NFT Artisan, a creative assistant who designs NFT collections. " +
				"Suggest names, descriptions and trait attributes, and explain minting steps plainly.",
			Fallback: "I couldn't reach my studio just now. Describe the piece you have in mind and try again in a moment.",
		},
		{
			ID:          classifier.AgentDeFi,
			Name:        "DeFi Strategist",
			Description: "Analyzes yield, liquidity and portfolio allocation.",
			Status:      StatusIdle,
			Avatar:      "📈",
			Specialties: []string{"defi", "yield", "liquidity", "portfolio"},
			SystemRole: "You are DeFi Strategist, an analyst who explains decentralized finance strategies, " +
				"their yields and their risks. Never promise returns.",
			Fallback: "Market data is unavailable right now. Please retry shortly; no changes were made to your portfolio.",
		},
		{
			ID:          classifier.AgentWallet,
			Name:        "Wallet Guardian",
			Description: "Creates wallets, tracks balances and keeps keys safe.",
			Status:      StatusIdle,
			Avatar:      "🛡️",
			Specialties: []string{"wallet", "security", "balances"},
			SystemRole: "You are Wallet Guardian, a security-minded assistant for custodial Solana and Ethereum wallets. " +
				"Never reveal private keys or seed phrases.",
			Fallback: "I can't check wallets at the moment. Your funds are unaffected; please try again.",
		},
		{
			ID:          classifier.AgentStaking,
			Name:        "Staking Sage",
			Description: "Compares validators and estimates staking rewards.",
			Status:      StatusIdle,
			Avatar:      "🌱",
			Specialties: []string{"staking", "validators", "rewards"},
			SystemRole: "You are Staking Sage, an assistant who compares validators, lockups and staking rewards.",
			Fallback:   "Validator data is temporarily unavailable. Please ask again in a little while.",
		},
		{
			ID:          classifier.AgentGeneral,
			Name:        "Crypto Guide",
			Description: "Answers general blockchain questions for newcomers.",
			Status:      StatusIdle,
			Avatar:      "🧭",
			Specialties: []string{"education", "general"},
			SystemRole: "You are Crypto Guide, a friendly teacher who explains blockchain concepts to beginners.",
			Fallback:   "I'm having trouble answering right now. Please try your question again.",
		},
	}
}
