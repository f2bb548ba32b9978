package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/zap"
)

// sseBuffer is the per-client event backlog. A client that falls further
// behind loses events rather than stalling the publisher.
const sseBuffer = 64

// visibleTo reports whether an event may be streamed to userID. Events owned
// by one user go only to that user. Persona status changes are shared.
func visibleTo(userID string, e bus.Event) bool {
	switch p := e.Payload.(type) {
	case wallet.Event:
		return p.UserID == userID
	case wallet.BalanceEvent:
		return p.UserID == userID
	case nft.MintedEvent:
		return p.UserID == userID
	case models.Feedback:
		return p.UserID == userID
	case agent.AnalysisRecord:
		return p.UserID == "" || p.UserID == userID
	case agent.Message:
		return p.UserID == "" || p.UserID == userID
	case agent.Coordination:
		return p.UserID == "" || p.UserID == userID
	}
	return true
}

// handleSSE streams bus events to the client until it disconnects.
func (a *api) handleSSE(c *gin.Context) {
	userID := currentUser(c).ID
	events := make(chan bus.Event, sseBuffer)
	unsubscribe := a.Bus.SubscribeMany(bus.AllTopics(), func(e bus.Event) error {
		if !visibleTo(userID, e) {
			return nil
		}
		select {
		case events <- e:
		default:
			a.Log.Warn("dashboard: sse client lagging, dropping event",
				zap.String("user", userID), zap.String("topic", string(e.Topic)))
		}
		return nil
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	heartbeat := time.NewTicker(a.Heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case e := <-events:
			writeSSE(c.Writer, string(e.Topic), e.Payload)
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
