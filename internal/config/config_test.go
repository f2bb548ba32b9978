package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: desk_prod
  user: desk
  password: hunter2

server:
  port: 9090

genai:
  api_key: g-key
  model: gemini-2.0-pro

chain:
  base_url: https://api.chain.example/v1
  token_url: https://auth.chain.example/token
  client_id: desk
  client_secret: shh
  timeout: 10s

telegraph:
  platform: slack
  digest_cron: "0 9 * * *"
  slack:
    bot_token: xoxb-1
    channel_id: C123

sync:
  balance_cron: "*/15 * * * *"

log:
  level: debug
  development: true
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Host != "10.0.0.5" || cfg.Database.Port != 3307 {
		t.Errorf("Database host/port = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Name != "desk_prod" {
		t.Errorf("Database.Name = %q, want desk_prod", cfg.Database.Name)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.GenAI.Model != "gemini-2.0-pro" {
		t.Errorf("GenAI.Model = %q", cfg.GenAI.Model)
	}
	if cfg.GenAI.ImageModel == "" {
		t.Error("GenAI.ImageModel should default")
	}
	if cfg.Chain.Timeout != 10*time.Second {
		t.Errorf("Chain.Timeout = %v, want 10s", cfg.Chain.Timeout)
	}
	if cfg.Telegraph.Platform != "slack" || cfg.Telegraph.Slack.ChannelID != "C123" {
		t.Errorf("Telegraph = %+v", cfg.Telegraph)
	}
	if cfg.Sync.BalanceCron != "*/15 * * * *" {
		t.Errorf("Sync.BalanceCron = %q", cfg.Sync.BalanceCron)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestParse_EmptyAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "agentdesk.db" {
		t.Errorf("Database.Path = %q, want agentdesk.db", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Chain.SolanaNetwork != "devnet" || cfg.Chain.EthereumNetwork != "sepolia" {
		t.Errorf("Chain networks = %q/%q", cfg.Chain.SolanaNetwork, cfg.Chain.EthereumNetwork)
	}
	if cfg.Chain.Timeout != 30*time.Second {
		t.Errorf("Chain.Timeout = %v, want 30s", cfg.Chain.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 {
		t.Errorf("host/port = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Name != "agentdesk" || cfg.Database.User != "root" {
		t.Errorf("name/user = %s/%s", cfg.Database.Name, cfg.Database.User)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Path = %q, want empty for mysql", cfg.Database.Path)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: postgres\n", "database.driver"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"token url without client", "chain:\n  token_url: https://x\n", "chain.client_id"},
		{"slack without token", "telegraph:\n  platform: slack\n  slack:\n    channel_id: C1\n", "telegraph.slack.bot_token"},
		{"discord without channel", "telegraph:\n  platform: discord\n  discord:\n    bot_token: t\n", "telegraph.discord.channel_id"},
		{"unknown platform", "telegraph:\n  platform: irc\n", "telegraph.platform"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad balance cron", "sync:\n  balance_cron: \"every minute\"\n", "sync.balance_cron"},
		{"bad digest cron", "telegraph:\n  digest_cron: \"61 * * * *\"\n", "telegraph.digest_cron"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_MultipleErrorsJoined(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: x\nlog:\n  level: y\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("errors should be joined with '; ': %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestApplyEnv_OverridesSecrets(t *testing.T) {
	env := map[string]string{
		"DESK_GENAI_API_KEY":   "env-genai",
		"DESK_CHAIN_API_KEY":   "env-chain",
		"DESK_SLACK_BOT_TOKEN": "env-slack",
		"DESK_DB_PASSWORD":     "env-db",
	}
	cfg := Config{GenAI: GenAIConfig{APIKey: "file-key"}}
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.GenAI.APIKey != "env-genai" {
		t.Errorf("GenAI.APIKey = %q, want env-genai", cfg.GenAI.APIKey)
	}
	if cfg.Chain.APIKey != "env-chain" {
		t.Errorf("Chain.APIKey = %q", cfg.Chain.APIKey)
	}
	if cfg.Telegraph.Slack.BotToken != "env-slack" {
		t.Errorf("Slack.BotToken = %q", cfg.Telegraph.Slack.BotToken)
	}
	if cfg.Database.Password != "env-db" {
		t.Errorf("Database.Password = %q", cfg.Database.Password)
	}
	if cfg.Telegraph.Discord.BotToken != "" {
		t.Errorf("Discord.BotToken = %q, want untouched", cfg.Telegraph.Discord.BotToken)
	}
}

func TestApplyEnv_EmptyKeepsFileValue(t *testing.T) {
	cfg := Config{GenAI: GenAIConfig{APIKey: "file-key"}}
	cfg.applyEnv(func(string) string { return "" })
	if cfg.GenAI.APIKey != "file-key" {
		t.Errorf("GenAI.APIKey = %q, want file-key", cfg.GenAI.APIKey)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentdesk.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
}

func TestParseCron(t *testing.T) {
	for _, expr := range []string{"*/15 * * * *", "0 9 * * *", "@every 5m", "@daily"} {
		if _, err := ParseCron(expr); err != nil {
			t.Errorf("ParseCron(%q): %v", expr, err)
		}
	}
	sched, err := ParseCron("0 9 * * *")
	if err != nil {
		t.Fatal(err)
	}
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if next := sched.Next(from); !next.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Next = %v", next)
	}
	if _, err := ParseCron("* * * * * *"); err == nil {
		t.Error("six-field expression should be rejected")
	}
}
