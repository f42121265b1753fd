package session

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/ingest"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/server/respond"
	"labreport-backend/internal/shared/util"
)

// maxUploadBytes caps the multipart transport; the PDF policy ceiling is
// enforced separately inside the normalizer.
const maxUploadBytes = 64 << 20

// Handler wires HTTP handlers to the session orchestrator.
type Handler struct {
	Orch *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{Orch: orch}
}

// RegisterRoutes attaches the session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/reports/:slot", h.uploadReport)
	rg.DELETE("/reports/:slot", h.removeReport)
	rg.POST("/analysis", h.startAnalysis)
	rg.GET("/analysis", h.getAnalysis)
	rg.POST("/analysis/export", h.exportAnalysis)
	rg.GET("/chat/transcript", h.getTranscript)
	rg.POST("/chat/messages", h.postChatMessage)
	rg.POST("/chat/explain", h.explainTerm)
	rg.POST("/session/reset", h.resetSession)
}

func parseSlot(raw string) (Slot, bool) {
	switch raw {
	case "latest":
		return SlotLatest, true
	case "previous":
		return SlotPrevious, true
	}
	return "", false
}

func (h *Handler) uploadReport(c *gin.Context) {
	slot, ok := parseSlot(c.Param("slot"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "slot must be latest or previous", nil)
		return
	}
	c.Set("reportSlot", string(slot))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		metrics.IncReportRejected()
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "The file is too large to upload.", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}

	canonical, err := ingest.Normalize(c.Request.Context(), ingest.Upload{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		metrics.IncReportRejected()
		switch {
		case errors.Is(err, ingest.ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "Please choose an image or a PDF lab report.", nil)
		case errors.Is(err, ingest.ErrFileTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "PDF reports can be at most 35 MB. Please choose a smaller file.", nil)
		case errors.Is(err, ingest.ErrDecodeFailure):
			respond.Error(c, http.StatusUnprocessableEntity, "decode_failure", "That file could not be read. Please choose a different file.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
		}
		return
	}

	metrics.IncReportNormalized()
	h.Orch.SetReport(slot, canonical)
	respond.JSON(c, http.StatusOK, gin.H{
		"slot":      slot,
		"name":      canonical.Name,
		"mediaType": canonical.MediaType,
		"sizeBytes": canonical.SizeBytes,
	})
}

func (h *Handler) removeReport(c *gin.Context) {
	slot, ok := parseSlot(c.Param("slot"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "slot must be latest or previous", nil)
		return
	}
	h.Orch.ClearReport(slot)
	c.Status(http.StatusNoContent)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	result, err := h.Orch.StartAnalysis(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoReport):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Upload a lab report before starting an analysis.", nil)
		case errors.Is(err, ErrAnalysisInFlight):
			respond.Error(c, http.StatusConflict, "analysis_in_flight", "An analysis is already running.", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "analysis_failed", "The analysis could not be completed. Please try again.", nil)
		}
		return
	}
	if id, ok := h.Orch.AnalysisID(); ok {
		c.Set("analysisId", id)
	}
	respond.JSON(c, http.StatusOK, displayResult(result))
}

func (h *Handler) getAnalysis(c *gin.Context) {
	result, ok := h.Orch.Result()
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "no analysis available", nil)
		return
	}
	respond.JSON(c, http.StatusOK, displayResult(result))
}

func (h *Handler) exportAnalysis(c *gin.Context) {
	location, err := h.Orch.Export(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			respond.Error(c, http.StatusNotFound, "not_found", "no analysis available", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export snapshot", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"location": location})
}

func (h *Handler) getTranscript(c *gin.Context) {
	session := h.Orch.Chat()
	respond.JSON(c, http.StatusOK, gin.H{
		"messages": session.Transcript(),
		"pending":  session.Pending(),
		"state":    session.State(),
	})
}

type chatMessageRequest struct {
	Text string `json:"text"`
}

// postChatMessage submits one chat turn and streams the assistant
// increments back as server-sent events, closing with a "done" event
// carrying the final message content.
func (h *Handler) postChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	increments, ok := h.Orch.Chat().Submit(c.Request.Context(), req.Text)
	if !ok {
		respond.Error(c, http.StatusConflict, "chat_busy", "An answer is already being written.", nil)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	// The channel must be drained even if the client goes away; the
	// exchange itself is owned by the session, not this request.
	for inc := range increments {
		c.SSEvent("delta", inc)
		c.Writer.Flush()
	}

	final := ""
	if messages := h.Orch.Chat().Transcript(); len(messages) > 0 {
		final = messages[len(messages)-1].Content
	}
	c.SSEvent("done", final)
	c.Writer.Flush()
}

type explainRequest struct {
	Term string `json:"term"`
}

func (h *Handler) explainTerm(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "term is required", nil)
		return
	}
	if !h.Orch.ExplainTerm(c.Request.Context(), req.Term) {
		respond.Error(c, http.StatusConflict, "chat_busy", "An answer is already being written.", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"accepted": true})
}

func (h *Handler) resetSession(c *gin.Context) {
	h.Orch.Reset()
	c.Status(http.StatusNoContent)
}

// displayResult applies the presentation sanitizer to every free-text
// field of the result.
func displayResult(result analysis.Result) analysis.Result {
	clean := util.CleanDisplayText

	out := result
	out.Patient = analysis.PatientInfo{
		Name:           clean(result.Patient.Name),
		Age:            clean(result.Patient.Age),
		Gender:         clean(result.Patient.Gender),
		CollectionDate: clean(result.Patient.CollectionDate),
		LabID:          clean(result.Patient.LabID),
		Facility:       clean(result.Patient.Facility),
		Clinician:      clean(result.Patient.Clinician),
	}
	out.Summary = clean(result.Summary)
	out.ExecutiveSummary = clean(result.ExecutiveSummary)
	out.BottomLine = analysis.BottomLine{
		Main:  clean(result.BottomLine.Main),
		Good:  cleanAll(result.BottomLine.Good),
		Watch: cleanAll(result.BottomLine.Watch),
	}
	out.Lifestyle = analysis.Lifestyle{
		Diet:     clean(result.Lifestyle.Diet),
		Sleep:    clean(result.Lifestyle.Sleep),
		Exercise: clean(result.Lifestyle.Exercise),
	}

	out.Biomarkers = make([]analysis.Biomarker, len(result.Biomarkers))
	for i, b := range result.Biomarkers {
		b.Name = clean(b.Name)
		b.Unit = clean(b.Unit)
		b.Range = clean(b.Range)
		b.Analogy = clean(b.Analogy)
		b.Explanation = clean(b.Explanation)
		out.Biomarkers[i] = b
	}
	out.DoctorQuestions = make([]analysis.DoctorQuestion, len(result.DoctorQuestions))
	for i, q := range result.DoctorQuestions {
		q.Question = clean(q.Question)
		q.Rationale = clean(q.Rationale)
		out.DoctorQuestions[i] = q
	}
	return out
}

func cleanAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = util.CleanDisplayText(v)
	}
	return out
}
