package telegraph

import (
	"strings"
	"testing"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/wallet"
)

func testWallet() models.Wallet {
	return models.Wallet{
		ID:      "w-1",
		Name:    "Main",
		Kind:    "solana",
		Network: "devnet",
		Address: "So1anaAddressABCDEFGHIJKLMNOP",
		Primary: true,
	}
}

func TestSeverityColor(t *testing.T) {
	tests := map[string]string{
		"success": ColorSuccess,
		"info":    ColorInfo,
		"warning": ColorWarning,
		"error":   ColorError,
		"other":   ColorInfo,
	}
	for sev, want := range tests {
		if got := severityColor(sev); got != want {
			t.Errorf("severityColor(%q) = %q, want %q", sev, got, want)
		}
	}
}

func TestShortAddress(t *testing.T) {
	if got := shortAddress("0x1234"); got != "0x1234" {
		t.Errorf("short input changed: %q", got)
	}
	got := shortAddress("So1anaAddressABCDEFGHIJKLMNOP")
	if got != "So1ana…MNOP" {
		t.Errorf("shortAddress = %q", got)
	}
}

func TestFormatWalletEvent(t *testing.T) {
	ev := wallet.Event{UserID: "u-1", Wallet: testWallet()}

	tests := []struct {
		topic    bus.Topic
		title    string
		severity string
	}{
		{bus.TopicWalletCreated, "Wallet created", "success"},
		{bus.TopicWalletDeleted, "Wallet deleted", "warning"},
		{bus.TopicWalletPrimary, "Primary wallet changed", "info"},
	}
	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			fe, ok := FormatWalletEvent(tt.topic, ev)
			if !ok {
				t.Fatal("expected event to be formatted")
			}
			if fe.Title != tt.title || fe.Severity != tt.severity {
				t.Errorf("got %q/%q, want %q/%q", fe.Title, fe.Severity, tt.title, tt.severity)
			}
			if fe.Color != severityColor(tt.severity) {
				t.Errorf("color = %q", fe.Color)
			}
			if len(fe.Fields) != 3 {
				t.Errorf("fields = %d, want 3", len(fe.Fields))
			}
		})
	}
}

func TestFormatWalletEvent_CreatedPrimaryNote(t *testing.T) {
	fe, _ := FormatWalletEvent(bus.TopicWalletCreated, wallet.Event{Wallet: testWallet()})
	if !strings.Contains(fe.Body, "(primary)") {
		t.Errorf("body = %q, want primary note", fe.Body)
	}
}

func TestFormatWalletEvent_UnknownTopic(t *testing.T) {
	if _, ok := FormatWalletEvent(bus.TopicAgentStatus, wallet.Event{}); ok {
		t.Error("unexpected format for non-wallet topic")
	}
}

func TestFormatBalanceSynced(t *testing.T) {
	tests := []struct {
		name     string
		prev     float64
		bal      float64
		severity string
		body     string
	}{
		{"up", 1, 1.5, "success", "Balance up"},
		{"down", 2, 1, "warning", "Balance down"},
		{"flat", 1, 1, "info", "Balance unchanged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := FormatBalanceSynced(wallet.BalanceEvent{Address: "0xabc", Previous: tt.prev, Balance: tt.bal})
			if fe.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", fe.Severity, tt.severity)
			}
			if !strings.HasPrefix(fe.Body, tt.body) {
				t.Errorf("body = %q, want prefix %q", fe.Body, tt.body)
			}
		})
	}
}

func TestFormatNFTMinted(t *testing.T) {
	fe := FormatNFTMinted(nft.MintedEvent{NFT: models.NFT{
		Name:        "Dragon",
		Description: "fierce",
		TxID:        "tx-1",
		MintAddress: "mint-1",
	}})
	if fe.Title != "NFT minted: Dragon" {
		t.Errorf("title = %q", fe.Title)
	}
	if len(fe.Fields) != 2 {
		t.Errorf("fields = %+v, want Tx and Mint", fe.Fields)
	}
}

func TestFormatCoordination(t *testing.T) {
	tests := []struct {
		status   agent.CoordinationStatus
		severity string
	}{
		{agent.CoordinationPending, "info"},
		{agent.CoordinationCompleted, "success"},
		{agent.CoordinationFailed, "error"},
	}
	for _, tt := range tests {
		fe := FormatCoordination(agent.Coordination{From: "nova", To: "sage", Task: "review", Status: tt.status})
		if fe.Severity != tt.severity {
			t.Errorf("status %s: severity = %q, want %q", tt.status, fe.Severity, tt.severity)
		}
		if !strings.Contains(fe.Title, "nova → sage") {
			t.Errorf("title = %q", fe.Title)
		}
	}
}

func TestFormatFeedback_ClampsRating(t *testing.T) {
	fe := FormatFeedback(models.Feedback{Rating: 4, Body: "great"})
	if fe.Fields[0].Value != "★★★★☆" {
		t.Errorf("stars = %q", fe.Fields[0].Value)
	}
	fe = FormatFeedback(models.Feedback{Rating: 9})
	if fe.Fields[0].Value != "★★★★★" {
		t.Errorf("stars = %q", fe.Fields[0].Value)
	}
}

func TestFormat_Dispatch(t *testing.T) {
	if _, ok := Format(bus.Event{Topic: bus.TopicNFTMinted, Payload: nft.MintedEvent{}}); !ok {
		t.Error("nft.MintedEvent should format")
	}
	if _, ok := Format(bus.Event{Topic: bus.TopicFeedbackSubmitted, Payload: models.Feedback{Rating: 5}}); !ok {
		t.Error("feedback should format")
	}
	if _, ok := Format(bus.Event{Topic: bus.TopicAgentStatus, Payload: agent.StatusChange{}}); ok {
		t.Error("status changes should not be relayed")
	}
}
