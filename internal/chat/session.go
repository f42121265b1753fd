package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
)

// DigestSource supplies the live context digest grounding each turn.
type DigestSource interface {
	ContextDigest() string
}

// Session owns the conversational state: the ordered transcript, the
// single-in-flight gate and the streamed accumulation of the assistant
// turn. State is only ever written by the session itself.
type Session struct {
	mu         sync.Mutex
	llm        llm.ChatStreamer
	digest     DigestSource
	transcript []Message
	state      State
	pending    bool
}

// NewSession constructs a session around an injected stream client and
// digest source.
func NewSession(streamer llm.ChatStreamer, digest DigestSource) *Session {
	return &Session{
		llm:    streamer,
		digest: digest,
		state:  StateIdle,
	}
}

// Submit starts one exchange. The text is trimmed first; empty input, or a
// submit while another send is in flight, is silently dropped (ok=false)
// with the transcript untouched — dropped input is not queued. On success
// the user message and an empty assistant placeholder are appended
// immediately, and the returned channel carries this exchange's text
// increments in delivery order, closing when the turn completes. Callers
// must drain the channel. Injected requests go through this same entry
// point and obey the same gate.
func (s *Session) Submit(ctx context.Context, text string) (<-chan string, bool) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.pending {
		s.mu.Unlock()
		return nil, false
	}
	s.pending = true
	s.state = StateSending

	history := make([]llm.Turn, 0, len(s.transcript))
	for _, m := range s.transcript {
		history = append(history, llm.Turn{Role: m.Role, Text: m.Content})
	}
	s.transcript = append(s.transcript,
		Message{ID: uuid.NewString(), Role: llm.RoleUser, Content: text},
		Message{ID: uuid.NewString(), Role: llm.RoleAssistant, Content: ""},
	)
	s.mu.Unlock()

	var digest string
	if s.digest != nil {
		digest = s.digest.ContextDigest()
	}
	req := llm.ChatRequest{
		System:  systemPrompt(digest),
		History: history,
		Message: text,
	}

	out := make(chan string)
	go s.run(ctx, req, out)
	return out, true
}

// Transcript returns a copy of the ordered transcript.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Pending reports whether a send is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// State returns the observable session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) run(ctx context.Context, req llm.ChatRequest, out chan<- string) {
	defer close(out)

	metrics.IncChatSendStarted()
	chunks, errs := s.llm.StreamChat(ctx, req)

	var acc strings.Builder
	for chunk := range chunks {
		if chunk.Kind != llm.ChunkText {
			continue
		}
		acc.WriteString(chunk.Text)
		// The placeholder's content is replaced with the full accumulator,
		// so observers see one message growing, never a message per chunk.
		s.setAssistantContent(acc.String(), StateStreaming)
		out <- chunk.Text
	}

	if err := <-errs; err != nil {
		telemetry.Error("chat.stream.failed", map[string]any{"err": err.Error()})
		metrics.IncChatSendFailed()
		s.setAssistantContent(fallbackMessage, StateIdle)
		s.finish()
		return
	}

	metrics.IncChatSendCompleted()
	s.finish()
}

func (s *Session) setAssistantContent(content string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.transcript); n > 0 && s.transcript[n-1].Role == llm.RoleAssistant {
		s.transcript[n-1].Content = content
	}
	s.state = state
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	s.state = StateIdle
}
