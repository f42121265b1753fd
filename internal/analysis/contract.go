package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"labreport-backend/internal/ingest"
	"labreport-backend/internal/llm"
)

// ErrContractViolation reports a service response missing required fields.
// It is only surfaced in strict mode; the default behavior tolerates a
// malformed document and falls back to an empty result.
var ErrContractViolation = errors.New("analysis response violates contract")

// Contract owns the structured request/response exchange with the analysis
// service. The client is injected so tests can substitute it.
type Contract struct {
	LLM llm.Analyzer
	// Strict promotes malformed or incomplete responses to
	// ErrContractViolation instead of the lenient empty-result fallback.
	Strict bool
}

// Analyze builds the request for the given reports, calls the service and
// parses the response into the domain result.
func (c *Contract) Analyze(ctx context.Context, latest ingest.CanonicalFile, previous *ingest.CanonicalFile) (Result, error) {
	if c.LLM == nil {
		return Result{}, errors.New("missing llm client")
	}
	req, err := BuildRequest(latest, previous)
	if err != nil {
		return Result{}, err
	}
	raw, err := c.LLM.Analyze(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("llm analyze: %w", err)
	}
	if c.Strict {
		return ParseResponseStrict(raw)
	}
	return ParseResponse(raw)
}

// BuildRequest assembles the service request: instruction text, the latest
// report inline, and, when present, a marker plus the previous report as a
// second inline attachment with trend language requested.
func BuildRequest(latest ingest.CanonicalFile, previous *ingest.CanonicalFile) (llm.AnalyzeRequest, error) {
	latestBytes, err := latest.Bytes()
	if err != nil {
		return llm.AnalyzeRequest{}, fmt.Errorf("decode latest report: %w", err)
	}
	if len(latestBytes) == 0 {
		return llm.AnalyzeRequest{}, errors.New("latest report is empty")
	}

	instruction := singleReportInstruction
	if previous != nil {
		instruction = compareReportsInstruction
	}
	parts := []llm.Part{
		llm.TextPart(instruction),
		llm.InlinePart(latestBytes, string(latest.MediaType)),
	}
	if previous != nil {
		prevBytes, err := previous.Bytes()
		if err != nil {
			return llm.AnalyzeRequest{}, fmt.Errorf("decode previous report: %w", err)
		}
		parts = append(parts,
			llm.TextPart(comparisonMarker),
			llm.InlinePart(prevBytes, string(previous.MediaType)),
		)
	}

	return llm.AnalyzeRequest{
		System: systemInstruction,
		Parts:  parts,
		Schema: responseSchema(),
	}, nil
}

// ParseResponse parses the raw service response leniently: a document that
// does not parse yields an empty result with no fields populated rather
// than an error, leaving the caller to decide how much it needs.
func ParseResponse(raw json.RawMessage) (Result, error) {
	var result Result
	if len(raw) == 0 {
		return Result{}, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, nil
	}
	return result, nil
}

// ParseResponseStrict parses the raw response and enforces the required
// fields of the contract.
func ParseResponseStrict(raw json.RawMessage) (Result, error) {
	var result Result
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrContractViolation)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if err := validate(result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func validate(result Result) error {
	var missing []string
	if strings.TrimSpace(result.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(result.BottomLine.Main) == "" {
		missing = append(missing, "bottomLine.main")
	}
	if strings.TrimSpace(result.ExecutiveSummary) == "" {
		missing = append(missing, "executiveSummary")
	}
	if strings.TrimSpace(result.Lifestyle.Diet) == "" && strings.TrimSpace(result.Lifestyle.Sleep) == "" && strings.TrimSpace(result.Lifestyle.Exercise) == "" {
		missing = append(missing, "lifestyle")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrContractViolation, strings.Join(missing, ", "))
	}
	for i, b := range result.Biomarkers {
		if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.Unit) == "" || strings.TrimSpace(b.Range) == "" {
			return fmt.Errorf("%w: biomarker %d incomplete", ErrContractViolation, i)
		}
		if !b.Status.Valid() {
			return fmt.Errorf("%w: biomarker %d has invalid status %q", ErrContractViolation, i, b.Status)
		}
	}
	for i, q := range result.DoctorQuestions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: doctorQuestion %d missing question", ErrContractViolation, i)
		}
	}
	return nil
}
