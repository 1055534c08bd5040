package queue

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status represents where an item is in its processing lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusSummarizing  Status = "summarizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive returns true if the status indicates an item mid-pipeline.
func (s Status) IsActive() bool {
	return s == StatusDownloading || s == StatusTranscribing || s == StatusSummarizing
}

// DefaultStep is the current-step text an item carries before processing begins.
const DefaultStep = "Waiting in queue..."

// maxStepErrorLen bounds the error text shown in the current-step field.
const maxStepErrorLen = 50

// Item is a single video in the processing queue. ID, URL, and AddedAt are
// immutable after creation. The remaining fields are written by the worker
// that owns the item during a run and read concurrently by HTTP pollers, so
// access goes through the item's mutex.
type Item struct {
	id      string
	url     string
	addedAt time.Time

	mu          sync.Mutex
	status      Status
	progress    int
	currentStep string
	errMsg      string
	title       string
	duration    int
}

func newItem(url string) *Item {
	return &Item{
		id:          uuid.New().String(),
		url:         url,
		addedAt:     time.Now(),
		status:      StatusPending,
		currentStep: DefaultStep,
	}
}

// ID returns the item's unique identifier.
func (i *Item) ID() string { return i.id }

// URL returns the source URL the item was created with.
func (i *Item) URL() string { return i.url }

// AddedAt returns the time the item was added to the queue.
func (i *Item) AddedAt() time.Time { return i.addedAt }

// Status returns the item's current status.
func (i *Item) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Progress returns the item's current progress percentage.
func (i *Item) Progress() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.progress
}

// Title returns the video title, or "" if metadata has not been fetched.
func (i *Item) Title() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.title
}

// Err returns the failure message, or "" unless the item has failed.
func (i *Item) Err() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errMsg
}

// setStatus moves the item into a non-terminal pipeline state.
func (i *Item) setStatus(s Status) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = s
}

// setProgress records a progress milestone and its step description.
// Progress is monotonically non-decreasing within an attempt; a lower
// value is clamped to the current one.
func (i *Item) setProgress(progress int, step string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if progress > i.progress {
		i.progress = progress
	}
	i.currentStep = step
}

// SetMetadata records title and duration fetched ahead of processing,
// e.g. by an add-time prefetch. Empty values never overwrite values
// already present.
func (i *Item) SetMetadata(title string, duration int) {
	i.setMetadata(title, duration)
}

// setMetadata records title and duration fetched from the source.
// Empty values never overwrite values already present.
func (i *Item) setMetadata(title string, duration int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if title != "" {
		i.title = title
	}
	if duration > 0 {
		i.duration = duration
	}
}

// fail marks the item as terminally failed, recording the message verbatim.
func (i *Item) fail(msg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = StatusFailed
	i.errMsg = msg
	i.currentStep = "Failed: " + truncateOnRuneBoundary(msg, maxStepErrorLen)
}

// truncateOnRuneBoundary caps s at limit bytes without splitting a UTF-8
// sequence.
func truncateOnRuneBoundary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// complete marks the item as successfully finished.
func (i *Item) complete() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = StatusCompleted
	i.progress = 100
	i.currentStep = "Complete!"
	i.errMsg = ""
}

// revertToPending returns a stopped item to the pending state so a later run
// can pick it up. Progress and any metadata fetched so far are retained.
func (i *Item) revertToPending() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = StatusPending
	i.currentStep = DefaultStep
}

// resetAttempt prepares a requeued item for a fresh processing attempt.
func (i *Item) resetAttempt() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = StatusPending
	i.progress = 0
	i.currentStep = DefaultStep
	i.errMsg = ""
}

// Update is the serialized form of an item, used both for progress
// notifications and queue snapshots.
type Update struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"current_step"`
	Error       string    `json:"error,omitempty"`
	Title       string    `json:"title,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Snapshot returns a point-in-time copy of the item's state.
func (i *Item) Snapshot() Update {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Update{
		ID:          i.id,
		URL:         i.url,
		Status:      i.status,
		Progress:    i.progress,
		CurrentStep: i.currentStep,
		Error:       i.errMsg,
		Title:       i.title,
		Duration:    i.duration,
		AddedAt:     i.addedAt,
	}
}
