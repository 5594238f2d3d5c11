package events

// Event types.
const (
	TypeGenerationProgress  = "generation:progress"
	TypeGenerationCompleted = "generation:completed"
	TypeGenerationFailed    = "generation:failed"
	TypeDeckDeleted         = "deck:deleted"
)

// GenerationProgressEvent is the payload for generation:progress events.
// Sent on every pipeline state transition.
type GenerationProgressEvent struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	Step      int    `json:"step"`      // 1-based position of State
	StepCount int    `json:"stepCount"` // Number of steps before DONE
	Message   string `json:"message,omitempty"`
}

// GenerationCompletedEvent is the payload for generation:completed events.
type GenerationCompletedEvent struct {
	RequestID  string   `json:"requestId"`
	DeckID     string   `json:"deckId"`
	Commanders []string `json:"commanders"`
	TotalCards int      `json:"totalCards"`
	Warnings   int      `json:"warnings"`
	DurationMS int64    `json:"durationMs"`
}

// GenerationFailedEvent is the payload for generation:failed events.
type GenerationFailedEvent struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// DeckDeletedEvent is the payload for deck:deleted events.
type DeckDeletedEvent struct {
	DeckID string `json:"deckId"`
}
