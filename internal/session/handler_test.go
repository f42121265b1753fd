package session

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/llm"
)

func setupRouter(t *testing.T, analyzer llm.Analyzer, streamer llm.ChatStreamer, exporter Exporter) (*gin.Engine, *Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	contract := &analysis.Contract{LLM: analyzer}
	orch := NewOrchestrator(contract, streamer, exporter)
	handler := NewHandler(orch)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r, orch
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, fieldName, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + fieldName + `"; filename="` + fileName + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func uploadReport(t *testing.T, r *gin.Engine, slot string, fileName, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, bodyType := multipartBody(t, "file", fileName, contentType, data)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/reports/"+slot, body)
	req.Header.Set("Content-Type", bodyType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadReportStoresNormalizedFile(t *testing.T) {
	r, orch := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	resp := uploadReport(t, r, "latest", "report.png", "image/png", pngUpload(t))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Slot      string `json:"slot"`
		MediaType string `json:"mediaType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Slot != "latest" {
		t.Fatalf("expected slot latest, got %q", payload.Slot)
	}
	if payload.MediaType != "image/jpeg" {
		t.Fatalf("expected normalized image/jpeg, got %q", payload.MediaType)
	}

	file, ok := orch.Report(SlotLatest)
	if !ok {
		t.Fatalf("expected report stored in orchestrator")
	}
	if file.Name != "report.png" {
		t.Fatalf("expected file name kept, got %q", file.Name)
	}
}

func TestUploadReportRejectsUnsupportedType(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	resp := uploadReport(t, r, "latest", "notes.txt", "text/plain", []byte("plain text"))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", resp.Code)
	}
}

func TestUploadReportRejectsCorruptImage(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	resp := uploadReport(t, r, "latest", "broken.png", "image/png", []byte("not an image"))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
}

func TestUploadReportRejectsUnknownSlot(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	resp := uploadReport(t, r, "middle", "report.png", "image/png", pngUpload(t))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestRemoveReport(t *testing.T) {
	r, orch := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)
	orch.SetReport(SlotPrevious, testFile("old"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reports/previous", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if _, ok := orch.Report(SlotPrevious); ok {
		t.Fatalf("expected previous report removed")
	}
}

func TestStartAnalysisWithoutReport(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{raw: goodResponse()}, stubStreamer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestStartAnalysisSanitizesDisplayText(t *testing.T) {
	raw := json.RawMessage(`{
		"summary":"**Values look steady.**",
		"executiveSummary":"# Stable results.",
		"bottomLine":{"main":"\"Overall steady.\"","good":["*Glucose in range*"],"watch":[]},
		"lifestyle":{"diet":"More **fiber**.","sleep":"","exercise":""},
		"biomarkers":[{"name":"#Glucose","currentValue":95,"unit":"mg/dL","status":"normal","range":"70-99","analogy":"*Fuel*","explanation":"Blood sugar."}],
		"doctorQuestions":[{"question":"Should I **re-test**?","rationale":"Borderline."}]
	}`)
	r, orch := setupRouter(t, &stubAnalyzer{raw: raw}, stubStreamer{}, nil)
	orch.SetReport(SlotLatest, testFile("latest"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result analysis.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Summary != "Values look steady." {
		t.Fatalf("expected markdown stripped from summary, got %q", result.Summary)
	}
	if result.ExecutiveSummary != "Stable results." {
		t.Fatalf("expected heading marker stripped, got %q", result.ExecutiveSummary)
	}
	if result.BottomLine.Main != "Overall steady." {
		t.Fatalf("expected surrounding quotes stripped, got %q", result.BottomLine.Main)
	}
	if result.BottomLine.Good[0] != "Glucose in range" {
		t.Fatalf("expected emphasis stripped from list, got %q", result.BottomLine.Good[0])
	}
	if result.Biomarkers[0].Name != "Glucose" {
		t.Fatalf("expected marker stripped from biomarker name, got %q", result.Biomarkers[0].Name)
	}
	if result.DoctorQuestions[0].Question != "Should I re-test?" {
		t.Fatalf("expected emphasis stripped from question, got %q", result.DoctorQuestions[0].Question)
	}

	// The stored result keeps the raw text; sanitization is presentation only.
	stored, _ := orch.Result()
	if stored.Summary != "**Values look steady.**" {
		t.Fatalf("expected stored result unsanitized, got %q", stored.Summary)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestChatMessageStreamsSSE(t *testing.T) {
	streamer := &sseStreamer{chunks: []string{"Hel", "lo"}}
	r, _ := setupRouter(t, &stubAnalyzer{}, streamer, nil)

	body := bytes.NewBufferString(`{"text":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/messages", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", got)
	}

	out := resp.Body.String()
	if !strings.Contains(out, "event:delta") {
		t.Fatalf("expected delta events, got:\n%s", out)
	}
	if !strings.Contains(out, "event:done") {
		t.Fatalf("expected final done event, got:\n%s", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Fatalf("expected final content in done event, got:\n%s", out)
	}
}

func TestChatMessageRejectsEmptyText(t *testing.T) {
	r, _ := setupRouter(t, &stubAnalyzer{}, stubStreamer{}, nil)

	body := bytes.NewBufferString(`{"text":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/messages", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	streamer := &sseStreamer{chunks: []string{"answer"}}
	r, orch := setupRouter(t, &stubAnalyzer{}, streamer, nil)

	increments, ok := orch.Chat().Submit(context.Background(), "question")
	if !ok {
		t.Fatalf("expected submit accepted")
	}
	for range increments {
	}
	for orch.Chat().Pending() {
		time.Sleep(time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/transcript", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var payload struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Pending bool   `json:"pending"`
		State   string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(payload.Messages))
	}
	if payload.Messages[1].Content != "answer" {
		t.Fatalf("expected assistant answer, got %q", payload.Messages[1].Content)
	}
	if payload.Pending {
		t.Fatalf("expected pending false")
	}
}

func TestExplainEndpoint(t *testing.T) {
	streamer := &sseStreamer{chunks: []string{"LDL is a kind of cholesterol."}}
	r, orch := setupRouter(t, &stubAnalyzer{}, streamer, nil)

	body := bytes.NewBufferString(`{"term":"LDL"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/explain", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}

	for orch.Chat().Pending() {
		time.Sleep(time.Millisecond)
	}
	transcript := orch.Chat().Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected injected exchange, got %d messages", len(transcript))
	}
	if !strings.Contains(transcript[0].Content, `"LDL"`) {
		t.Fatalf("expected term in question, got %q", transcript[0].Content)
	}
}

func TestResetEndpoint(t *testing.T) {
	r, orch := setupRouter(t, &stubAnalyzer{raw: goodResponse()}, stubStreamer{}, nil)
	orch.SetReport(SlotLatest, testFile("latest"))
	if _, err := orch.StartAnalysis(context.Background()); err != nil {
		t.Fatalf("start analysis: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/reset", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if _, ok := orch.Result(); ok {
		t.Fatalf("expected result cleared")
	}
	if _, ok := orch.Report(SlotLatest); ok {
		t.Fatalf("expected report cleared")
	}
}

func TestExportEndpoint(t *testing.T) {
	exporter := &recordingExporter{}
	r, orch := setupRouter(t, &stubAnalyzer{raw: goodResponse()}, stubStreamer{}, exporter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/export", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 without result, got %d", resp.Code)
	}

	orch.SetReport(SlotLatest, testFile("latest"))
	if _, err := orch.StartAnalysis(context.Background()); err != nil {
		t.Fatalf("start analysis: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analysis/export", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(payload.Location, "snapshots/") {
		t.Fatalf("expected snapshot location, got %q", payload.Location)
	}
}

// sseStreamer emits text chunks for SSE tests.
type sseStreamer struct {
	chunks []string
}

func (s *sseStreamer) StreamChat(ctx context.Context, req llm.ChatRequest) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		for _, text := range s.chunks {
			chunks <- llm.Chunk{Kind: llm.ChunkText, Text: text}
		}
		errs <- nil
	}()
	return chunks, errs
}
