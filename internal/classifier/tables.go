package classifier

// Category groups related prompts and maps them onto agent personas.
type Category string

const (
	CategoryNFT     Category = "nft"
	CategoryDeFi    Category = "defi"
	CategoryWallet  Category = "wallet"
	CategoryStaking Category = "staking"
	CategoryGeneral Category = "general"
)

// Agent identifiers, one persona per category.
const (
	AgentNFT     = "nft-artisan"
	AgentDeFi    = "defi-strategist"
	AgentWallet  = "wallet-guardian"
	AgentStaking = "staking-sage"
	AgentGeneral = "crypto-guide"
)

// trigger is a lower-case keyword or phrase and the score it adds per
// occurrence.
type trigger struct {
	phrase string
	weight float64
}

// categoryRule binds a category to its triggers and personas.
type categoryRule struct {
	category Category
	label    string
	primary  string
	support  []string
	triggers []trigger
	actions  []string
}

// rules is scanned in this order; it is also the final tie-break.
var rules = []categoryRule{
	{
		category: CategoryNFT,
		label:    "NFT",
		primary:  AgentNFT,
		support:  []string{AgentWallet},
		triggers: []trigger{
			{"nft", 1.5},
			{"mint", 1.0},
			{"collectible", 1.0},
			{"artwork", 1.0},
			{"digital art", 1.0},
			{"metadata", 0.5},
			{"opensea", 1.0},
			{"generate an image", 1.0},
			{"token art", 1.0},
		},
		actions: []string{"Generate NFT artwork", "Draft NFT metadata", "Mint to primary wallet"},
	},
	{
		category: CategoryDeFi,
		label:    "DeFi",
		primary:  AgentDeFi,
		support:  []string{AgentStaking},
		triggers: []trigger{
			{"defi", 1.5},
			{"yield", 1.0},
			{"liquidity", 1.0},
			{"swap", 1.0},
			{"lending", 1.0},
			{"borrow", 1.0},
			{"farm", 0.5},
			{"apy", 1.0},
			{"invest", 1.0},
			{"portfolio", 1.0},
			{"rebalance", 1.0},
		},
		actions: []string{"Review portfolio allocation", "Compare yield opportunities", "Request investment advice"},
	},
	{
		category: CategoryWallet,
		label:    "Wallet",
		primary:  AgentWallet,
		triggers: []trigger{
			{"wallet", 1.5},
			{"balance", 1.0},
			{"address", 1.0},
			{"transfer", 1.0},
			{"send", 0.5},
			{"private key", 1.0},
			{"seed phrase", 1.0},
			{"mnemonic", 1.0},
			{"solana", 0.5},
			{"ethereum", 0.5},
		},
		actions: []string{"Create a wallet", "Sync wallet balances", "Set a primary wallet"},
	},
	{
		category: CategoryStaking,
		label:    "Staking",
		primary:  AgentStaking,
		support:  []string{AgentDeFi},
		triggers: []trigger{
			{"stake", 1.5},
			{"staking", 1.5},
			{"validator", 1.0},
			{"delegate", 1.0},
			{"rewards", 1.0},
			{"lockup", 1.0},
		},
		actions: []string{"Compare validators", "Estimate staking rewards"},
	},
	{
		category: CategoryGeneral,
		label:    "General",
		primary:  AgentGeneral,
		triggers: []trigger{
			{"help", 1.0},
			{"explain", 1.0},
			{"what is", 1.0},
			{"how does", 1.0},
			{"blockchain", 0.5},
			{"crypto", 0.5},
			{"learn", 1.0},
		},
		actions: []string{"Explain the concept", "Suggest next steps"},
	},
}

// Urgency phrases are checked independently of category scoring.
var (
	highUrgency   = []string{"urgent", "asap", "immediately", "right now", "emergency", "hacked", "compromised"}
	mediumUrgency = []string{"soon", "today", "quickly", "this week", "before", "deadline"}
)
