package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/chat"
	"labreport-backend/internal/ingest"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
)

// Slot names the two report positions.
type Slot string

const (
	SlotLatest   Slot = "latest"
	SlotPrevious Slot = "previous"
)

// Orchestrator composes the session: the two normalized reports, the last
// analysis result and the chat session. Files and result are owned here
// exclusively and replaced wholesale, never mutated.
type Orchestrator struct {
	mu         sync.Mutex
	latest     *ingest.CanonicalFile
	previous   *ingest.CanonicalFile
	result     *analysis.Result
	analysisID string
	analyzing  bool

	contract *analysis.Contract
	chat     *chat.Session
	exporter Exporter
}

// NewOrchestrator wires the contract, the chat stream client and the
// export capability together. The orchestrator itself grounds the chat
// session with the live result digest.
func NewOrchestrator(contract *analysis.Contract, streamer llm.ChatStreamer, exporter Exporter) *Orchestrator {
	o := &Orchestrator{
		contract: contract,
		exporter: exporter,
	}
	o.chat = chat.NewSession(streamer, o)
	return o
}

// SetReport stores a normalized report in the given slot, replacing any
// prior file there. The two slots are fully independent.
func (o *Orchestrator) SetReport(slot Slot, file ingest.CanonicalFile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch slot {
	case SlotPrevious:
		o.previous = &file
	default:
		o.latest = &file
	}
}

// ClearReport removes the report in the given slot.
func (o *Orchestrator) ClearReport(slot Slot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch slot {
	case SlotPrevious:
		o.previous = nil
	default:
		o.latest = nil
	}
}

// Report returns the file currently held in the given slot.
func (o *Orchestrator) Report(slot Slot) (ingest.CanonicalFile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var f *ingest.CanonicalFile
	if slot == SlotPrevious {
		f = o.previous
	} else {
		f = o.latest
	}
	if f == nil {
		return ingest.CanonicalFile{}, false
	}
	return *f, true
}

// StartAnalysis runs the analysis over the held reports. It fails fast
// without a latest report and while another run is in flight. On failure
// the previously stored result is left untouched.
func (o *Orchestrator) StartAnalysis(ctx context.Context) (analysis.Result, error) {
	o.mu.Lock()
	if o.latest == nil {
		o.mu.Unlock()
		return analysis.Result{}, ErrNoReport
	}
	if o.analyzing {
		o.mu.Unlock()
		return analysis.Result{}, ErrAnalysisInFlight
	}
	o.analyzing = true
	latest := *o.latest
	var previous *ingest.CanonicalFile
	if o.previous != nil {
		prev := *o.previous
		previous = &prev
	}
	o.mu.Unlock()

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"analysis_id": runID,
		"latest":      latest.Name,
		"compare":     previous != nil,
	})

	result, err := o.contract.Analyze(ctx, latest, previous)
	durationMs := float64(time.Since(startedAt).Microseconds()) / 1000.0

	o.mu.Lock()
	o.analyzing = false
	if err != nil {
		o.mu.Unlock()
		metrics.IncAnalysisFailed()
		metrics.ObserveAnalysisDurationMs(durationMs)
		telemetry.Error("analysis.failed", map[string]any{
			"analysis_id": runID,
			"err":         err.Error(),
			"duration_ms": durationMs,
		})
		return analysis.Result{}, fmt.Errorf("analysis: %w", err)
	}
	o.result = &result
	o.analysisID = runID
	o.mu.Unlock()

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs)
	telemetry.Info("analysis.completed", map[string]any{
		"analysis_id": runID,
		"biomarkers":  len(result.Biomarkers),
		"duration_ms": durationMs,
	})
	return result, nil
}

// Result returns the last stored analysis result.
func (o *Orchestrator) Result() (analysis.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return analysis.Result{}, false
	}
	return *o.result, true
}

// AnalysisID returns the identifier of the stored result.
func (o *Orchestrator) AnalysisID() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return "", false
	}
	return o.analysisID, true
}

// Reset clears both reports and the result in one step; no partial reset
// state is ever observable.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest = nil
	o.previous = nil
	o.result = nil
	o.analysisID = ""
}

// Chat exposes the session transcript and submit entry point.
func (o *Orchestrator) Chat() *chat.Session {
	return o.chat
}

// ExplainTerm routes an explain request from the result viewer through the
// regular chat submit gate, exactly as if the user had typed it. The
// increments are drained here since no caller is streaming them.
func (o *Orchestrator) ExplainTerm(ctx context.Context, term string) bool {
	question := fmt.Sprintf("Can you explain what %q means in my results, in simple terms?", term)
	// The stream outlives the HTTP request that injected it.
	increments, ok := o.chat.Submit(context.WithoutCancel(ctx), question)
	if !ok {
		return false
	}
	go func() {
		for range increments {
		}
	}()
	return true
}

// Export hands the current result to the injected exporter and returns the
// snapshot location.
func (o *Orchestrator) Export(ctx context.Context) (string, error) {
	o.mu.Lock()
	result := o.result
	runID := o.analysisID
	o.mu.Unlock()
	if result == nil {
		return "", ErrNoResult
	}
	if o.exporter == nil {
		return "", nil
	}
	return o.exporter.Export(ctx, runID, *result)
}

// ContextDigest implements chat.DigestSource with the live result.
func (o *Orchestrator) ContextDigest() string {
	o.mu.Lock()
	result := o.result
	o.mu.Unlock()
	if result == nil {
		return "No analysis has been run yet; the user has not had a report analyzed."
	}
	return chat.Digest(*result)
}

var _ chat.DigestSource = (*Orchestrator)(nil)
