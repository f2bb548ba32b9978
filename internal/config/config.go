// Package config provides YAML-based configuration loading for AgentDesk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// cronParser accepts standard 5-field cron expressions (minute, hour, dom,
// month, dow) and @every/@daily descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a schedule expression as used by sync.balance_cron and
// telegraph.digest_cron.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("config: cron %q: %w", expr, err)
	}
	return sched, nil
}

// Config is the top-level AgentDesk configuration, loaded from agentdesk.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	GenAI     GenAIConfig     `yaml:"genai"`
	Chain     ChainConfig     `yaml:"chain"`
	Telegraph TelegraphConfig `yaml:"telegraph"`
	Sync      SyncConfig      `yaml:"sync"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig selects the record store backing users, wallets and NFTs.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" (default) or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds dashboard HTTP settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// GenAIConfig holds settings for the generative AI service.
type GenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
}

// ChainConfig holds settings for the blockchain API provider.
type ChainConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	TokenURL        string        `yaml:"token_url"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	SolanaNetwork   string        `yaml:"solana_network"`
	EthereumNetwork string        `yaml:"ethereum_network"`
	Timeout         time.Duration `yaml:"timeout"`
}

// TelegraphConfig controls relaying dashboard events to a chat platform.
type TelegraphConfig struct {
	Platform   string        `yaml:"platform"` // "", "slack" or "discord"
	DigestCron string        `yaml:"digest_cron"`
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SyncConfig schedules background balance refreshes.
type SyncConfig struct {
	BalanceCron string `yaml:"balance_cron"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied, used
// when no config file is present (local sqlite, offline collaborators).
func Default() *Config {
	var cfg Config
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return &cfg
}

// applyEnv overrides secrets from the environment so they need not live in
// the YAML file.
func (c *Config) applyEnv(getenv func(string) string) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"DESK_GENAI_API_KEY", &c.GenAI.APIKey},
		{"DESK_CHAIN_API_KEY", &c.Chain.APIKey},
		{"DESK_CHAIN_CLIENT_SECRET", &c.Chain.ClientSecret},
		{"DESK_SLACK_BOT_TOKEN", &c.Telegraph.Slack.BotToken},
		{"DESK_DISCORD_BOT_TOKEN", &c.Telegraph.Discord.BotToken},
		{"DESK_DB_PASSWORD", &c.Database.Password},
	}
	for _, o := range overrides {
		if v := getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "agentdesk.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "agentdesk"
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.GenAI.Model == "" {
		c.GenAI.Model = "gemini-2.5-flash"
	}
	if c.GenAI.ImageModel == "" {
		c.GenAI.ImageModel = "imagen-3.0-generate-002"
	}
	if c.Chain.SolanaNetwork == "" {
		c.Chain.SolanaNetwork = "devnet"
	}
	if c.Chain.EthereumNetwork == "" {
		c.Chain.EthereumNetwork = "sepolia"
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Chain.TokenURL != "" && c.Chain.ClientID == "" {
		errs = append(errs, "chain.client_id is required when chain.token_url is set")
	}
	switch c.Telegraph.Platform {
	case "":
	case "slack":
		if c.Telegraph.Slack.BotToken == "" {
			errs = append(errs, "telegraph.slack.bot_token is required")
		}
		if c.Telegraph.Slack.ChannelID == "" {
			errs = append(errs, "telegraph.slack.channel_id is required")
		}
	case "discord":
		if c.Telegraph.Discord.BotToken == "" {
			errs = append(errs, "telegraph.discord.bot_token is required")
		}
		if c.Telegraph.Discord.ChannelID == "" {
			errs = append(errs, "telegraph.discord.channel_id is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("telegraph.platform %q must be slack or discord", c.Telegraph.Platform))
	}
	crons := []struct{ key, expr string }{
		{"sync.balance_cron", c.Sync.BalanceCron},
		{"telegraph.digest_cron", c.Telegraph.DigestCron},
	}
	for _, cr := range crons {
		if cr.expr == "" {
			continue
		}
		if _, err := cronParser.Parse(cr.expr); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a valid cron expression", cr.key, cr.expr))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not a known level", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
