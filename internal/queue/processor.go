package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vidigest/backend/internal/logger"
)

// Metadata is the result of the best-effort metadata fetch stage.
type Metadata struct {
	Title    string
	Duration int // seconds
}

// Stages is the set of external operations the processor drives each item
// through. Implementations may block; the processor calls them from worker
// goroutines and never interrupts an in-flight call.
type Stages interface {
	// FetchMetadata looks up title and duration without downloading.
	FetchMetadata(ctx context.Context, url string) (Metadata, error)

	// Download fetches the media and returns an opaque handle by which the
	// transcriber can locate the audio.
	Download(ctx context.Context, url string) (string, error)

	// Transcribe converts downloaded audio into text.
	Transcribe(ctx context.Context, handle string) (string, error)

	// Summarize produces a summary of the transcript.
	Summarize(ctx context.Context, transcript, url string) (string, error)

	// Persist stores the transcription and summary, upserting by URL.
	Persist(ctx context.Context, url, transcription, summary string) error
}

// Tally is the aggregate result of one processing run.
type Tally struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// OnProgress receives best-effort item updates. Delivery never blocks the
// pipeline: panics are recovered and logged.
type OnProgress func(Update)

// StatusSnapshot is a point-in-time view of processor and queue state.
type StatusSnapshot struct {
	IsProcessing   bool `json:"is_processing"`
	ActiveWorkers  int  `json:"active_workers"`
	PendingCount   int  `json:"pending_count"`
	ActiveCount    int  `json:"active_count"`
	CompletedCount int  `json:"completed_count"`
	FailedCount    int  `json:"failed_count"`
	TotalCount     int  `json:"total_count"`
}

var (
	// ErrInvalidWorkerLimit is returned when the worker limit is below 1.
	ErrInvalidWorkerLimit = errors.New("worker limit must be at least 1")

	// ErrNoPendingItems is returned when a run is started with nothing to do.
	ErrNoPendingItems = errors.New("no pending items in queue")

	// ErrAlreadyProcessing is returned on re-entrant run starts.
	ErrAlreadyProcessing = errors.New("queue is already processing")
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Processor executes the five-stage pipeline for every pending item with
// bounded parallelism. One item's failure never aborts the others; the run
// always drains its full snapshot unless stopped cooperatively.
type Processor struct {
	queue       *Queue
	stages      Stages
	workerLimit int
	onProgress  OnProgress
	log         *logger.Logger

	mu      sync.Mutex
	running bool
	stop    atomic.Bool
}

// NewProcessor creates a processor over the given queue and stage
// collaborators. onProgress may be nil.
func NewProcessor(q *Queue, stages Stages, workerLimit int, onProgress OnProgress) *Processor {
	return &Processor{
		queue:       q,
		stages:      stages,
		workerLimit: workerLimit,
		onProgress:  onProgress,
		log:         logger.Default().WithComponent("queue"),
	}
}

// SetWorkerLimit adjusts the parallelism for subsequent runs. The limit
// cannot change while a run is in flight.
func (p *Processor) SetWorkerLimit(n int) error {
	if n < 1 {
		return ErrInvalidWorkerLimit
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyProcessing
	}
	p.workerLimit = n
	return nil
}

// ProcessPending runs the pipeline over a snapshot of the queue's pending
// items, taken once at start. Items added afterwards are not picked up by
// this run. It blocks until every dispatched item finishes or is skipped
// via Stop, then returns the tally.
func (p *Processor) ProcessPending(ctx context.Context) (Tally, error) {
	p.mu.Lock()
	if p.workerLimit < 1 {
		p.mu.Unlock()
		return Tally{}, ErrInvalidWorkerLimit
	}
	if p.running {
		p.mu.Unlock()
		return Tally{}, ErrAlreadyProcessing
	}
	pending := p.queue.PendingItems()
	if len(pending) == 0 {
		p.mu.Unlock()
		return Tally{}, ErrNoPendingItems
	}
	limit := p.workerLimit
	p.running = true
	p.stop.Store(false)
	p.mu.Unlock()

	p.queue.startRun()
	defer func() {
		p.queue.finishRun()
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	workers := limit
	if workers > len(pending) {
		workers = len(pending)
	}

	p.log.Info(ctx, "starting queue processing", map[string]interface{}{
		"pending": len(pending),
		"workers": workers,
	})

	jobs := make(chan *Item)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				p.queue.workerStarted()
				res := p.processItem(ctx, item)
				p.queue.workerFinished()
				results <- res
			}
		}()
	}

	// Feed items in insertion order; workers pick them up as they free.
	go func() {
		for _, item := range pending {
			jobs <- item
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Drain completions as they arrive, in whatever order pipelines finish.
	tally := Tally{Total: len(pending)}
	for res := range results {
		switch res {
		case outcomeCompleted:
			tally.Completed++
		case outcomeFailed:
			tally.Failed++
		case outcomeSkipped:
			tally.Skipped++
		}
	}

	p.log.Info(ctx, "queue processing complete", map[string]interface{}{
		"completed": tally.Completed,
		"failed":    tally.Failed,
		"skipped":   tally.Skipped,
		"total":     tally.Total,
	})

	return tally, nil
}

// processItem drives a single item through the pipeline. Stage failures are
// converted to item state and never escape.
func (p *Processor) processItem(ctx context.Context, item *Item) outcome {
	p.log.Info(ctx, "processing item", map[string]interface{}{
		"id":  item.ID(),
		"url": item.URL(),
	})

	// Stage 0: metadata fetch. Failure is non-fatal; the item proceeds with
	// whatever title and duration it already has.
	p.update(item, 1, "Fetching video info...")
	if md, err := p.stages.FetchMetadata(ctx, item.URL()); err != nil {
		p.log.Warn(ctx, "metadata fetch failed", map[string]interface{}{
			"url":   item.URL(),
			"error": err.Error(),
		})
	} else {
		item.setMetadata(md.Title, md.Duration)
		p.update(item, 3, "Found: "+md.Title)
	}

	if p.stop.Load() {
		return p.skip(item)
	}

	// Stage 1: download.
	item.setStatus(StatusDownloading)
	p.update(item, 5, "Starting download...")
	handle, err := p.stages.Download(ctx, item.URL())
	if err != nil {
		return p.fail(ctx, item, err)
	}
	if item.Title() == "" {
		// Fall back to the download handle as a display title.
		item.setMetadata(handle, 0)
	}
	p.update(item, 25, "Download complete")

	if p.stop.Load() {
		return p.skip(item)
	}

	// Stage 2: transcribe.
	item.setStatus(StatusTranscribing)
	p.update(item, 30, "Starting transcription...")
	transcript, err := p.stages.Transcribe(ctx, handle)
	if err != nil {
		return p.fail(ctx, item, err)
	}
	p.update(item, 75, "Transcription complete")

	if p.stop.Load() {
		return p.skip(item)
	}

	// Stage 3: summarize.
	item.setStatus(StatusSummarizing)
	p.update(item, 80, "Generating summary...")
	summary, err := p.stages.Summarize(ctx, transcript, item.URL())
	if err != nil {
		return p.fail(ctx, item, err)
	}
	p.update(item, 95, "Summary complete")

	// Stage 4: persist.
	p.update(item, 98, "Saving to database...")
	if err := p.stages.Persist(ctx, item.URL(), transcript, summary); err != nil {
		return p.fail(ctx, item, err)
	}

	item.complete()
	p.notify(item)

	p.log.Info(ctx, "item completed", map[string]interface{}{
		"id":    item.ID(),
		"title": item.Title(),
	})
	return outcomeCompleted
}

func (p *Processor) fail(ctx context.Context, item *Item, err error) outcome {
	item.fail(err.Error())
	p.notify(item)
	p.log.Error(ctx, "item failed", err, map[string]interface{}{
		"id":  item.ID(),
		"url": item.URL(),
	})
	return outcomeFailed
}

func (p *Processor) skip(item *Item) outcome {
	item.revertToPending()
	p.notify(item)
	return outcomeSkipped
}

// update records a progress milestone and notifies the observer.
func (p *Processor) update(item *Item, progress int, step string) {
	item.setProgress(progress, step)
	p.notify(item)
}

// notify delivers a snapshot to the observer. Observer panics are recovered
// and logged; they never interrupt the pipeline.
func (p *Processor) notify(item *Item) {
	if p.onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error(context.Background(), "progress callback panicked", nil, map[string]interface{}{
				"id":    item.ID(),
				"panic": r,
			})
		}
	}()
	p.onProgress(item.Snapshot())
}

// Stop requests a cooperative stop. In-flight stage calls are never
// interrupted; items observing the flag before their next stage revert to
// pending and count as skipped. Terminal items are unaffected.
func (p *Processor) Stop() {
	p.stop.Store(true)
	p.log.Info(context.Background(), "stop requested")
}

// IsRunning reports whether a run is currently in flight.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns a point-in-time snapshot of processor and queue state.
func (p *Processor) Status() StatusSnapshot {
	counts := p.queue.Counts()
	return StatusSnapshot{
		IsProcessing:   p.queue.IsProcessing(),
		ActiveWorkers:  p.queue.ActiveWorkers(),
		PendingCount:   counts.Pending,
		ActiveCount:    counts.Active,
		CompletedCount: counts.Completed,
		FailedCount:    counts.Failed,
		TotalCount:     counts.Total,
	}
}
