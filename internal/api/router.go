package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/vidigest/backend/internal/errors"
	"github.com/vidigest/backend/internal/health"
	"github.com/vidigest/backend/internal/metrics"
	"github.com/vidigest/backend/internal/validators"
	"github.com/vidigest/backend/internal/websocket"
)

type Router struct {
	mux               *http.ServeMux
	queueHandlers     *QueueHandlers
	videoHandlers     *VideoHandlers
	validatorHandlers *validators.Handlers
	wsHandler         *websocket.Handler
	healthHandler     *health.Handler
	metrics           *metrics.Metrics
}

func NewRouter(
	queueHandlers *QueueHandlers,
	videoHandlers *VideoHandlers,
	validatorHandlers *validators.Handlers,
	wsHandler *websocket.Handler,
	healthHandler *health.Handler,
	m *metrics.Metrics,
) *Router {
	r := &Router{
		mux:               http.NewServeMux(),
		queueHandlers:     queueHandlers,
		videoHandlers:     videoHandlers,
		validatorHandlers: validatorHandlers,
		wsHandler:         wsHandler,
		healthHandler:     healthHandler,
		metrics:           m,
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	// Health and metrics
	if r.healthHandler != nil {
		r.mux.HandleFunc("GET /health", r.healthHandler.HealthHandler)
		r.mux.HandleFunc("GET /health/live", r.healthHandler.LivenessHandler)
		r.mux.HandleFunc("GET /health/ready", r.healthHandler.ReadinessHandler)
	} else {
		r.mux.HandleFunc("GET /health", healthHandler)
	}
	if r.metrics != nil {
		r.mux.HandleFunc("GET /metrics", r.metrics.Handler())
	}

	// Queue management
	r.mux.HandleFunc("POST /api/v1/queue/items", apperrors.HandleFunc(r.queueHandlers.AddItem))
	r.mux.HandleFunc("GET /api/v1/queue", apperrors.HandleFunc(r.queueHandlers.GetQueue))
	r.mux.HandleFunc("DELETE /api/v1/queue/items/{id}", apperrors.HandleFunc(r.queueHandlers.RemoveItem))
	r.mux.HandleFunc("POST /api/v1/queue/items/{id}/requeue", apperrors.HandleFunc(r.queueHandlers.RequeueItem))
	r.mux.HandleFunc("POST /api/v1/queue/clear", apperrors.HandleFunc(r.queueHandlers.ClearQueue))
	r.mux.HandleFunc("POST /api/v1/queue/start", apperrors.HandleFunc(r.queueHandlers.Start))
	r.mux.HandleFunc("POST /api/v1/queue/stop", apperrors.HandleFunc(r.queueHandlers.Stop))
	r.mux.HandleFunc("GET /api/v1/queue/status", apperrors.HandleFunc(r.queueHandlers.GetStatus))

	// Video processing and retrieval
	r.mux.HandleFunc("POST /api/v1/videos/process", apperrors.HandleFunc(r.videoHandlers.ProcessVideo))
	r.mux.HandleFunc("GET /api/v1/videos", apperrors.HandleFunc(r.videoHandlers.ListVideos))
	r.mux.HandleFunc("GET /api/v1/videos/{id}", apperrors.HandleFunc(r.videoHandlers.GetVideo))
	r.mux.HandleFunc("GET /api/v1/videos/{id}/transcript", apperrors.HandleFunc(r.videoHandlers.GetVideoTranscript))
	r.mux.HandleFunc("GET /api/v1/videos/{id}/audio", apperrors.HandleFunc(r.videoHandlers.GetVideoAudio))
	r.mux.HandleFunc("DELETE /api/v1/videos/{id}", apperrors.HandleFunc(r.videoHandlers.DeleteVideo))

	// URL validation
	r.mux.HandleFunc("POST /api/v1/validate/url", r.validatorHandlers.ValidateURL)
	r.mux.HandleFunc("GET /api/v1/validate/url", r.validatorHandlers.ValidateURLQuery)
	r.mux.HandleFunc("GET /api/v1/validate/sources", r.validatorHandlers.GetSupportedSources)

	// WebSocket queue events
	if r.wsHandler != nil {
		r.mux.HandleFunc("GET /ws/queue", r.wsHandler.ServeWS)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
