package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/llm/gemini"
	"labreport-backend/internal/session"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
	localstore "labreport-backend/internal/shared/storage/object/local"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	var analyzer llm.Analyzer = llm.PlaceholderClient{}
	var streamer llm.ChatStreamer = llm.PlaceholderClient{}
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			log.Printf("failed to build gemini client, falling back to placeholder: %v", err)
		} else {
			analyzer = client
			streamer = client
		}
	}
	contract := &analysis.Contract{LLM: analyzer, Strict: cfg.StrictContract}
	store := localstore.New(cfg.LocalStoreDir)
	exporter := &session.SnapshotExporter{Store: store}
	orch := session.NewOrchestrator(contract, streamer, exporter)
	sessionHandler := session.NewHandler(orch)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	sessionHandler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
