package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Analyzer and llm.ChatStreamer on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client. The model falls back to a sensible
// default when empty; the API key is required.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Analyze runs a single-shot multimodal request and returns the raw JSON
// document produced under the structured-output schema.
func (c *Client) Analyze(ctx context.Context, req llm.AnalyzeRequest) (json.RawMessage, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, toGenaiPart(p))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini response empty content")
	}
	logUsage(c.model, resp.UsageMetadata)
	return json.RawMessage(text), nil
}

// StreamChat replays the history and streams the assistant turn. Each
// provider payload is resolved into a tagged llm.Chunk at this boundary.
func (c *Client) StreamChat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk)
	errs := make(chan error, 1)

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, genai.NewContentFromText(turn.Text, toGenaiRole(turn.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	go func() {
		defer close(chunks)
		defer close(errs)
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
			if err != nil {
				errs <- fmt.Errorf("gemini stream: %w", err)
				return
			}
			for _, chunk := range resolveChunks(resp) {
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return chunks, errs
}

// Close releases the underlying client. The genai SDK client holds no
// closable resources, so this is a no-op.
func (c *Client) Close() error {
	return nil
}

func resolveChunks(resp *genai.GenerateContentResponse) []llm.Chunk {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []llm.Chunk
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			out = append(out, llm.Chunk{Kind: llm.ChunkText, Text: part.Text})
			continue
		}
		out = append(out, llm.Chunk{Kind: llm.ChunkOther, Raw: part})
	}
	return out
}

func toGenaiPart(p llm.Part) *genai.Part {
	if p.Inline != nil {
		return genai.NewPartFromBytes(p.Inline.Data, p.Inline.MIMEType)
	}
	return genai.NewPartFromText(p.Text)
}

func toGenaiRole(role llm.Role) genai.Role {
	if role == llm.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func toGenaiSchema(s *llm.ResponseSchema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
		Enum:        append([]string(nil), s.Enum...),
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiType(t llm.SchemaType) genai.Type {
	switch t {
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func logUsage(model string, usage *genai.GenerateContentResponseUsageMetadata) {
	if usage == nil {
		telemetry.Info("llm.response", map[string]any{"model": model})
		return
	}
	telemetry.Info("llm.response", map[string]any{
		"model":             model,
		"prompt_tokens":     usage.PromptTokenCount,
		"completion_tokens": usage.CandidatesTokenCount,
		"total_tokens":      usage.TotalTokenCount,
	})
}

var (
	_ llm.Analyzer     = (*Client)(nil)
	_ llm.ChatStreamer = (*Client)(nil)
)
