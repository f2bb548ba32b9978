package messaging

import (
	"fmt"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Archive mirrors the in-memory message log and coordination trail into the
// database so history survives a restart.
type Archive struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewArchive creates an Archive.
func NewArchive(db *gorm.DB, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{db: db, log: log}
}

// Attach subscribes the archive to the agent topics. The returned function
// detaches it.
func (a *Archive) Attach(b *bus.Bus) (detach func()) {
	return b.SubscribeMany([]bus.Topic{bus.TopicAgentMessage, bus.TopicAgentCoordination}, a.handle)
}

func (a *Archive) handle(e bus.Event) error {
	switch p := e.Payload.(type) {
	case agent.Message:
		if _, err := Record(a.db, p); err != nil {
			return err
		}
	case agent.Coordination:
		if _, err := Handoff(a.db, p); err != nil {
			return err
		}
	default:
		return fmt.Errorf("messaging: archive: unexpected %T on %s", e.Payload, e.Topic)
	}
	return nil
}
