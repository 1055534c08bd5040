package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "github.com/vidigest/backend/internal/errors"
	"github.com/vidigest/backend/internal/logger"
	"github.com/vidigest/backend/internal/metrics"
	"github.com/vidigest/backend/internal/queue"
	"github.com/vidigest/backend/internal/validators"
	"github.com/vidigest/backend/internal/websocket"
)

// QueueHandlers contains handlers for queue management endpoints
type QueueHandlers struct {
	queue       *queue.Queue
	processor   *queue.Processor
	stages      queue.Stages
	registry    *validators.Registry
	broadcaster *websocket.Broadcaster
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// NewQueueHandlers creates a new QueueHandlers instance. stages is used only
// for the add-time metadata prefetch and may be nil to disable it.
func NewQueueHandlers(q *queue.Queue, p *queue.Processor, stages queue.Stages, registry *validators.Registry, broadcaster *websocket.Broadcaster, m *metrics.Metrics) *QueueHandlers {
	return &QueueHandlers{
		queue:       q,
		processor:   p,
		stages:      stages,
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     m,
		log:         logger.Default().WithComponent("api"),
	}
}

// AddItemRequest is the request body for adding a queue item
type AddItemRequest struct {
	URL string `json:"url"`
}

// StartResponse is returned when a processing run is accepted
type StartResponse struct {
	Started bool                 `json:"started"`
	Status  queue.StatusSnapshot `json:"status"`
}

// AddItem handles POST /api/v1/queue/items
func (h *QueueHandlers) AddItem(w http.ResponseWriter, r *http.Request) error {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid JSON body")
	}
	if req.URL == "" {
		return apperrors.ValidationError("url field is required")
	}

	result := h.registry.Validate(req.URL)
	if !result.Valid {
		return apperrors.UnsupportedSource(req.URL).WithDetails(map[string]any{
			"reason": result.Error,
		})
	}

	item := h.queue.Add(req.URL)
	h.syncGauges()
	h.broadcastState()

	if h.stages != nil {
		go h.prefetchMetadata(item)
	}

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusCreated, item.Snapshot())
	return nil
}

// prefetchMetadata fills in title and duration right after an item is added
// so the UI shows them before a run starts. Failures are ignored; stage 0
// fetches metadata again during processing.
func (h *QueueHandlers) prefetchMetadata(item *queue.Item) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	meta, err := h.stages.FetchMetadata(ctx, item.URL())
	if err != nil {
		h.log.Debug(ctx, "metadata prefetch failed", map[string]interface{}{
			"url":   item.URL(),
			"error": err.Error(),
		})
		return
	}

	item.SetMetadata(meta.Title, meta.Duration)
	if h.broadcaster != nil {
		h.broadcaster.ItemUpdate(item.Snapshot())
	}
}

// GetQueue handles GET /api/v1/queue
func (h *QueueHandlers) GetQueue(w http.ResponseWriter, r *http.Request) error {
	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, h.queue.Snapshot())
	return nil
}

// RemoveItem handles DELETE /api/v1/queue/items/{id}
func (h *QueueHandlers) RemoveItem(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	if id == "" {
		return apperrors.ValidationError("item id is required")
	}

	// A run holds references to every item in its snapshot, pending ones
	// included, so no removal is allowed while one is in flight.
	if h.processor.IsRunning() {
		return apperrors.QueueBusy()
	}
	if !h.queue.Remove(id) {
		return apperrors.ItemNotFound()
	}
	h.syncGauges()
	h.broadcastState()

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// ClearQueue handles POST /api/v1/queue/clear
func (h *QueueHandlers) ClearQueue(w http.ResponseWriter, r *http.Request) error {
	if h.processor.IsRunning() {
		return apperrors.QueueBusy()
	}

	h.queue.Clear()
	h.syncGauges()
	h.broadcastState()

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// RequeueItem handles POST /api/v1/queue/items/{id}/requeue
func (h *QueueHandlers) RequeueItem(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	if id == "" {
		return apperrors.ValidationError("item id is required")
	}

	item, ok := h.queue.GetByID(id)
	if !ok {
		return apperrors.ItemNotFound()
	}
	if !h.queue.Requeue(id) {
		return apperrors.Conflict("only completed or failed items can be requeued")
	}
	h.syncGauges()
	h.broadcastState()

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, item.Snapshot())
	return nil
}

// StartRequest is the optional request body for starting a run
type StartRequest struct {
	WorkerCount int `json:"worker_count"`
}

// Start handles POST /api/v1/queue/start. The run itself happens in the
// background; only the preconditions are checked synchronously.
func (h *QueueHandlers) Start(w http.ResponseWriter, r *http.Request) error {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return apperrors.BadRequest("invalid JSON body")
	}

	if h.processor.IsRunning() {
		return apperrors.QueueBusy()
	}
	if len(h.queue.PendingItems()) == 0 {
		return apperrors.QueueEmpty()
	}
	if req.WorkerCount != 0 {
		if err := h.processor.SetWorkerLimit(req.WorkerCount); err != nil {
			if errors.Is(err, queue.ErrAlreadyProcessing) {
				return apperrors.QueueBusy()
			}
			return apperrors.ValidationError("worker_count must be at least 1")
		}
	}

	go h.runProcessor()

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusAccepted, StartResponse{
		Started: true,
		Status:  h.processor.Status(),
	})
	return nil
}

// runProcessor drives a full processing run and reports its outcome
func (h *QueueHandlers) runProcessor() {
	ctx := apperrors.WithRequestID(context.Background(), apperrors.GenerateRequestID())

	if h.broadcaster != nil {
		h.broadcaster.RunStarted(h.processor.Status())
	}

	start := time.Now()
	tally, err := h.processor.ProcessPending(ctx)
	h.syncGauges()

	if err != nil {
		// Preconditions were checked before launch; hitting one here means
		// another run won the race, which is fine.
		h.log.Warn(ctx, "processing run not started", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	h.log.Info(ctx, "processing run finished", map[string]interface{}{
		"completed":   tally.Completed,
		"failed":      tally.Failed,
		"skipped":     tally.Skipped,
		"total":       tally.Total,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if h.metrics != nil {
		for i := 0; i < tally.Completed; i++ {
			h.metrics.IncCounter("items_completed")
		}
		for i := 0; i < tally.Failed; i++ {
			h.metrics.IncCounter("items_failed")
		}
	}

	if h.broadcaster != nil {
		h.broadcaster.RunFinished(tally)
		h.broadcaster.QueueState(h.queue.Snapshot())
	}
}

// Stop handles POST /api/v1/queue/stop
func (h *QueueHandlers) Stop(w http.ResponseWriter, r *http.Request) error {
	h.processor.Stop()

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, h.processor.Status())
	return nil
}

// GetStatus handles GET /api/v1/queue/status
func (h *QueueHandlers) GetStatus(w http.ResponseWriter, r *http.Request) error {
	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, h.processor.Status())
	return nil
}

// broadcastState pushes a fresh queue snapshot to websocket clients
func (h *QueueHandlers) broadcastState() {
	if h.broadcaster != nil {
		h.broadcaster.QueueState(h.queue.Snapshot())
	}
}

// syncGauges refreshes the queue gauges from current queue state
func (h *QueueHandlers) syncGauges() {
	if h.metrics == nil {
		return
	}
	counts := h.queue.Counts()
	h.metrics.SetQueueDepth(int64(counts.Pending))
	h.metrics.SetActiveWorkers(int64(h.queue.ActiveWorkers()))
}
