package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"

	"labreport-backend/internal/llm"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "gemini-2.5-flash"); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := NewClient(context.Background(), "   ", ""); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}

func TestToGenaiRoleMapsAssistantToModel(t *testing.T) {
	if got := toGenaiRole(llm.RoleAssistant); got != genai.RoleModel {
		t.Fatalf("expected assistant mapped to model, got %q", got)
	}
	if got := toGenaiRole(llm.RoleUser); got != genai.RoleUser {
		t.Fatalf("expected user mapped to user, got %q", got)
	}
}

func TestToGenaiSchemaTranslatesTree(t *testing.T) {
	schema := &llm.ResponseSchema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.ResponseSchema{
			"status": {Type: llm.TypeString, Enum: []string{"normal", "high"}},
			"values": {Type: llm.TypeArray, Items: &llm.ResponseSchema{Type: llm.TypeNumber}},
			"flag":   {Type: llm.TypeBoolean},
		},
		Required: []string{"status"},
	}

	got := toGenaiSchema(schema)
	if got.Type != genai.TypeObject {
		t.Fatalf("expected object type, got %v", got.Type)
	}
	if len(got.Required) != 1 || got.Required[0] != "status" {
		t.Fatalf("expected required carried over, got %v", got.Required)
	}
	status := got.Properties["status"]
	if status == nil || status.Type != genai.TypeString || len(status.Enum) != 2 {
		t.Fatalf("expected string enum property, got %+v", status)
	}
	values := got.Properties["values"]
	if values == nil || values.Type != genai.TypeArray || values.Items == nil || values.Items.Type != genai.TypeNumber {
		t.Fatalf("expected array of numbers, got %+v", values)
	}
	if got.Properties["flag"].Type != genai.TypeBoolean {
		t.Fatalf("expected boolean property, got %v", got.Properties["flag"].Type)
	}

	if toGenaiSchema(nil) != nil {
		t.Fatalf("expected nil schema to stay nil")
	}
}

func TestToGenaiPart(t *testing.T) {
	text := toGenaiPart(llm.TextPart("hello"))
	if text.Text != "hello" {
		t.Fatalf("expected text part, got %+v", text)
	}

	inline := toGenaiPart(llm.InlinePart([]byte{1, 2, 3}, "application/pdf"))
	if inline.InlineData == nil || inline.InlineData.MIMEType != "application/pdf" {
		t.Fatalf("expected inline data part, got %+v", inline)
	}
	if len(inline.InlineData.Data) != 3 {
		t.Fatalf("expected inline bytes carried over, got %v", inline.InlineData.Data)
	}
}

func TestResolveChunks(t *testing.T) {
	if got := resolveChunks(nil); got != nil {
		t.Fatalf("expected nil for nil response, got %v", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "Hel"},
					{Text: "lo"},
					{InlineData: &genai.Blob{MIMEType: "image/png"}},
				},
			},
		}},
	}

	got := resolveChunks(resp)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if got[0].Kind != llm.ChunkText || got[0].Text != "Hel" {
		t.Fatalf("expected text chunk, got %+v", got[0])
	}
	if got[2].Kind != llm.ChunkOther || got[2].Raw == nil {
		t.Fatalf("expected non-text payload preserved as other, got %+v", got[2])
	}
}
