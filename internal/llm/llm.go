package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Analyzer abstracts LLM providers for single-shot document analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (json.RawMessage, error)
}

// ChatStreamer abstracts LLM providers for streamed conversational turns.
// Increments arrive on the chunk channel in delivery order; the channel is
// closed when the service ends the turn. A failure is reported once on the
// error channel, after which no further chunks are sent.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req ChatRequest) (<-chan Chunk, <-chan error)
}

// Part is one ordered piece of request content: either plain text or an
// inline binary attachment.
type Part struct {
	Text   string
	Inline *Inline
}

// Inline carries attachment bytes together with their media type.
type Inline struct {
	Data     []byte
	MIMEType string
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart builds an inline attachment part.
func InlinePart(data []byte, mimeType string) Part {
	return Part{Inline: &Inline{Data: data, MIMEType: mimeType}}
}

// AnalyzeRequest is a provider-neutral single-shot request. Schema, when
// set, constrains the response to a JSON document of that shape.
type AnalyzeRequest struct {
	System string
	Parts  []Part
	Schema *ResponseSchema
}

// ResponseSchema is a minimal JSON-schema tree the provider translates
// into its own structured-output representation.
type ResponseSchema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*ResponseSchema
	Required    []string
	Items       *ResponseSchema
	Enum        []string
}

// SchemaType enumerates the JSON value kinds used in response schemas.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one replayed history entry. The provider maps RoleAssistant to
// its own model-authored role vocabulary.
type Turn struct {
	Role Role
	Text string
}

// ChatRequest carries one conversational exchange: the grounding system
// instruction, the replayed history and the new outbound message. The
// service is given no memory beyond what is replayed here.
type ChatRequest struct {
	System  string
	History []Turn
	Message string
}

// ChunkKind tags a streamed increment.
type ChunkKind string

const (
	// ChunkText is a plain text increment.
	ChunkText ChunkKind = "text"
	// ChunkOther is a non-text payload surfaced raw; consumers may ignore it.
	ChunkOther ChunkKind = "other"
)

// Chunk is one streamed increment, resolved into a tagged union at the
// provider boundary so consumers never inspect provider payloads.
type Chunk struct {
	Kind ChunkKind
	Text string
	Raw  any
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Analyze returns ErrNotConfigured.
func (PlaceholderClient) Analyze(ctx context.Context, req AnalyzeRequest) (json.RawMessage, error) {
	_ = ctx
	_ = req
	return nil, ErrNotConfigured
}

// StreamChat reports ErrNotConfigured on the error channel.
func (PlaceholderClient) StreamChat(ctx context.Context, req ChatRequest) (<-chan Chunk, <-chan error) {
	_ = ctx
	_ = req
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	close(chunks)
	errs <- ErrNotConfigured
	close(errs)
	return chunks, errs
}

var (
	_ Analyzer     = PlaceholderClient{}
	_ ChatStreamer = PlaceholderClient{}
)
