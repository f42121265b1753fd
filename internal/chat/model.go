package chat

import "labreport-backend/internal/llm"

// Message is one transcript entry. The transcript is append-only; only the
// trailing assistant placeholder is mutated, and only while its stream is
// in flight.
type Message struct {
	ID      string   `json:"id"`
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// State is the observable session state. A transient failure resolves back
// to idle in the same step that appends the fallback message, so it never
// shows up as a state of its own.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
)
