package agent

// MessageKind classifies an agent message.
type MessageKind string

const (
	KindTask       MessageKind = "task"
	KindCompletion MessageKind = "completion"
	KindError      MessageKind = "error"
	KindInfo       MessageKind = "info"
)

// Payload is the closed set of message payloads. The message kind is derived
// from the payload so the two cannot disagree.
type Payload interface {
	Kind() MessageKind
	isPayload()
}

// TaskPayload records a request handed to an agent.
type TaskPayload struct {
	Input    string  `json:"input"`
	UserID   string  `json:"user_id,omitempty"`
	Tier     string  `json:"tier,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Category string  `json:"category,omitempty"`
}

// CompletionPayload records a successful reply.
type CompletionPayload struct {
	Reply     string   `json:"reply"`
	Handoffs  []string `json:"handoffs,omitempty"`
	LatencyMs int64    `json:"latency_ms"`
}

// ErrorPayload records a failed external call.
type ErrorPayload struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
	Fallback  string `json:"fallback,omitempty"`
}

// InfoPayload carries informational notes (wallet created, NFT minted...).
type InfoPayload struct {
	Note string            `json:"note"`
	Refs map[string]string `json:"refs,omitempty"`
}

func (TaskPayload) Kind() MessageKind       { return KindTask }
func (CompletionPayload) Kind() MessageKind { return KindCompletion }
func (ErrorPayload) Kind() MessageKind      { return KindError }
func (InfoPayload) Kind() MessageKind       { return KindInfo }

func (TaskPayload) isPayload()       {}
func (CompletionPayload) isPayload() {}
func (ErrorPayload) isPayload()      {}
func (InfoPayload) isPayload()       {}
