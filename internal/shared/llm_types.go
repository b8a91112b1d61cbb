package shared

import (
	"time"
)

// TokenUsage is what a model call cost.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Billed reports whether the call reached a model at all.
func (u TokenUsage) Billed() bool {
	return u.PromptTokens > 0 || u.CompletionTokens > 0
}

// AgentMeta describes one analyzer execution: which analyzer ran, what it
// spent and how long it took.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
