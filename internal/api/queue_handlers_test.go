package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidigest/backend/internal/metrics"
	"github.com/vidigest/backend/internal/queue"
	"github.com/vidigest/backend/internal/validators"
)

// stubStages completes every stage instantly so runs finish fast in tests.
type stubStages struct {
	downloadErr error
}

func (s *stubStages) FetchMetadata(ctx context.Context, url string) (queue.Metadata, error) {
	return queue.Metadata{Title: "Test Video", Duration: 120}, nil
}

func (s *stubStages) Download(ctx context.Context, url string) (string, error) {
	if s.downloadErr != nil {
		return "", s.downloadErr
	}
	return "video_test", nil
}

func (s *stubStages) Transcribe(ctx context.Context, handle string) (string, error) {
	return "a transcript", nil
}

func (s *stubStages) Summarize(ctx context.Context, transcript, url string) (string, error) {
	return "a summary", nil
}

func (s *stubStages) Persist(ctx context.Context, url, transcription, summary string) error {
	return nil
}

type testEnv struct {
	router    *Router
	queue     *queue.Queue
	processor *queue.Processor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	q := queue.New()
	stages := &stubStages{}
	p := queue.NewProcessor(q, stages, 2, nil)
	registry := validators.DefaultRegistry()
	m := metrics.New()

	queueHandlers := NewQueueHandlers(q, p, nil, registry, nil, m)
	videoHandlers := NewVideoHandlers(nil, stages, registry, nil)
	validatorHandlers := validators.NewHandlers(registry)

	router := NewRouter(queueHandlers, videoHandlers, validatorHandlers, nil, nil, m)

	return &testEnv{router: router, queue: q, processor: p}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return body
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestAddItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/items", map[string]string{"url": testURL})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var item queue.Update
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.ID == "" {
		t.Error("expected item ID to be set")
	}
	if item.URL != testURL {
		t.Errorf("expected URL %q, got %q", testURL, item.URL)
	}
	if item.Status != queue.StatusPending {
		t.Errorf("expected status pending, got %q", item.Status)
	}
	if item.CurrentStep != queue.DefaultStep {
		t.Errorf("expected default step, got %q", item.CurrentStep)
	}
}

func TestAddItem_PrefetchesMetadata(t *testing.T) {
	q := queue.New()
	stages := &stubStages{}
	p := queue.NewProcessor(q, stages, 2, nil)
	registry := validators.DefaultRegistry()
	handlers := NewQueueHandlers(q, p, stages, registry, nil, metrics.New())

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]string{"url": testURL})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/items", &buf)
	rec := httptest.NewRecorder()
	if err := handlers.AddItem(rec, req); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	items := q.PendingItems()
	if len(items) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(items))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if items[0].Title() == "Test Video" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("prefetch never set title, got %q", items[0].Title())
}

func TestStart_InvalidWorkerCount(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Add(testURL)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/start", map[string]int{"worker_count": -3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddItem_UnsupportedSource(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/items", map[string]string{"url": "https://example.com/video"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	body := decodeError(t, rec)
	if body.Error.Code != "UNSUPPORTED_SOURCE" {
		t.Errorf("expected UNSUPPORTED_SOURCE, got %q", body.Error.Code)
	}
}

func TestAddItem_MissingURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/items", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetQueue(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Add(testURL)
	env.queue.Add("https://youtu.be/xxxxxxxxxxx")

	rec := env.do(t, http.MethodGet, "/api/v1/queue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state queue.State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(state.Items))
	}
	if state.Stats.Total != 2 {
		t.Errorf("expected total 2, got %d", state.Stats.Total)
	}
}

func TestRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	item := env.queue.Add(testURL)

	rec := env.do(t, http.MethodDelete, "/api/v1/queue/items/"+item.ID(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if _, ok := env.queue.GetByID(item.ID()); ok {
		t.Error("expected item to be removed")
	}
}

// blockingStages parks the first download until released so a test can
// observe queue state mid-run.
type blockingStages struct {
	stubStages
	started chan struct{}
	release chan struct{}
}

func (s *blockingStages) Download(ctx context.Context, url string) (string, error) {
	s.started <- struct{}{}
	<-s.release
	return "video_test", nil
}

func TestRemoveItem_RejectedWhileProcessing(t *testing.T) {
	q := queue.New()
	stages := &blockingStages{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	p := queue.NewProcessor(q, stages, 1, nil)
	registry := validators.DefaultRegistry()
	queueHandlers := NewQueueHandlers(q, p, nil, registry, nil, metrics.New())
	videoHandlers := NewVideoHandlers(nil, stages, registry, nil)
	router := NewRouter(queueHandlers, videoHandlers, validators.NewHandlers(registry), nil, nil, nil)
	env := &testEnv{router: router, queue: q, processor: p}

	first := env.queue.Add(testURL)
	second := env.queue.Add("https://youtu.be/xxxxxxxxxxx")

	rec := env.do(t, http.MethodPost, "/api/v1/queue/start", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// Wait until the single worker is inside the first item's download; the
	// second item is still pending but already captured by the run.
	select {
	case <-stages.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the download stage")
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/queue/items/"+second.ID(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while processing, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != "QUEUE_BUSY" {
		t.Errorf("expected QUEUE_BUSY, got %q", body.Error.Code)
	}
	if _, ok := env.queue.GetByID(second.ID()); !ok {
		t.Error("pending item must survive a rejected removal")
	}

	close(stages.release)
	waitForStatus(t, first, queue.StatusCompleted)
	waitForStatus(t, second, queue.StatusCompleted)

	// With the run over, removal is allowed again.
	rec = env.do(t, http.MethodDelete, "/api/v1/queue/items/"+second.ID(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after the run, got %d", rec.Code)
	}
}

func TestRemoveItem_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/queue/items/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	body := decodeError(t, rec)
	if body.Error.Code != "ITEM_NOT_FOUND" {
		t.Errorf("expected ITEM_NOT_FOUND, got %q", body.Error.Code)
	}
}

func TestClearQueue(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Add(testURL)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/clear", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if env.queue.Counts().Total != 0 {
		t.Error("expected queue to be empty")
	}
}

func TestRequeueItem_PendingConflict(t *testing.T) {
	env := newTestEnv(t)
	item := env.queue.Add(testURL)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/items/"+item.ID()+"/requeue", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestStart_EmptyQueue(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/start", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	body := decodeError(t, rec)
	if body.Error.Code != "QUEUE_EMPTY" {
		t.Errorf("expected QUEUE_EMPTY, got %q", body.Error.Code)
	}
}

func TestStart_ProcessesQueue(t *testing.T) {
	env := newTestEnv(t)
	item := env.queue.Add(testURL)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/start", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp StartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Started {
		t.Error("expected started=true")
	}

	waitForStatus(t, item, queue.StatusCompleted)

	if item.Progress() != 100 {
		t.Errorf("expected progress 100, got %d", item.Progress())
	}
}

func TestStop(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/queue/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status queue.StatusSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.IsProcessing {
		t.Error("expected is_processing=false")
	}
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/queue/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthFallback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestValidateSources(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/validate/sources", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func waitForStatus(t *testing.T, item *queue.Item, want queue.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if item.Status() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("item never reached status %q, last was %q", want, item.Status())
}
