package telegraph

import (
	"fmt"
	"strings"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/wallet"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

func event(title, body, severity string, fields ...Field) FormattedEvent {
	return FormattedEvent{
		Title:    title,
		Body:     body,
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// shortAddress abbreviates a wallet address for display.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// Format converts a bus event into a chat event. It reports false for
// events the relay does not post.
func Format(e bus.Event) (FormattedEvent, bool) {
	switch p := e.Payload.(type) {
	case wallet.Event:
		return FormatWalletEvent(e.Topic, p)
	case wallet.BalanceEvent:
		return FormatBalanceSynced(p), true
	case nft.MintedEvent:
		return FormatNFTMinted(p), true
	case agent.Coordination:
		return FormatCoordination(p), true
	case models.Feedback:
		return FormatFeedback(p), true
	}
	return FormattedEvent{}, false
}

// FormatWalletEvent formats wallet creation, deletion and primary changes.
func FormatWalletEvent(topic bus.Topic, ev wallet.Event) (FormattedEvent, bool) {
	w := ev.Wallet
	fields := []Field{
		{Name: "Wallet", Value: w.Name, Short: true},
		{Name: "Kind", Value: w.Kind, Short: true},
		{Name: "Address", Value: shortAddress(w.Address), Short: true},
	}
	switch topic {
	case bus.TopicWalletCreated:
		body := fmt.Sprintf("New %s wallet on %s", w.Kind, w.Network)
		if w.Primary {
			body += " (primary)"
		}
		return event("Wallet created", body, "success", fields...), true
	case bus.TopicWalletDeleted:
		return event("Wallet deleted", fmt.Sprintf("%s was removed", w.Name), "warning", fields...), true
	case bus.TopicWalletPrimary:
		body := fmt.Sprintf("%s is now the primary wallet", w.Name)
		return event("Primary wallet changed", body, "info", fields...), true
	}
	return FormattedEvent{}, false
}

// FormatBalanceSynced formats a balance refresh.
func FormatBalanceSynced(ev wallet.BalanceEvent) FormattedEvent {
	severity := "info"
	var body string
	switch {
	case ev.Balance > ev.Previous:
		severity = "success"
		body = fmt.Sprintf("Balance up %.4f", ev.Balance-ev.Previous)
	case ev.Balance < ev.Previous:
		severity = "warning"
		body = fmt.Sprintf("Balance down %.4f", ev.Previous-ev.Balance)
	default:
		body = "Balance unchanged"
	}
	return event("Balance synced", body, severity,
		Field{Name: "Address", Value: shortAddress(ev.Address), Short: true},
		Field{Name: "Balance", Value: fmt.Sprintf("%.4f", ev.Balance), Short: true},
	)
}

// FormatNFTMinted formats a completed mint.
func FormatNFTMinted(ev nft.MintedEvent) FormattedEvent {
	n := ev.NFT
	fields := []Field{{Name: "Tx", Value: n.TxID, Short: false}}
	if n.MintAddress != "" {
		fields = append(fields, Field{Name: "Mint", Value: n.MintAddress, Short: true})
	}
	if n.TokenID != "" {
		fields = append(fields, Field{Name: "Token", Value: n.TokenID, Short: true})
	}
	return event(fmt.Sprintf("NFT minted: %s", n.Name), n.Description, "success", fields...)
}

// FormatCoordination formats a hand-off between personas.
func FormatCoordination(c agent.Coordination) FormattedEvent {
	severity := "info"
	switch c.Status {
	case agent.CoordinationCompleted:
		severity = "success"
	case agent.CoordinationFailed:
		severity = "error"
	}
	var body []string
	if c.Task != "" {
		body = append(body, c.Task)
	}
	if c.Result != "" {
		body = append(body, c.Result)
	}
	return event(fmt.Sprintf("Hand-off %s → %s", c.From, c.To), strings.Join(body, "\n"), severity,
		Field{Name: "Status", Value: string(c.Status), Short: true})
}

// FormatFeedback formats a new testimonial.
func FormatFeedback(fb models.Feedback) FormattedEvent {
	rating := min(max(fb.Rating, 0), 5)
	stars := strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
	return event("New feedback", fb.Body, "info", Field{Name: "Rating", Value: stars, Short: true})
}
