package queue

import "sync"

// Counts are the derived aggregate statistics for a queue, recomputed on
// every read rather than cached.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Active    int `json:"active"`
}

// State is the full serializable snapshot of a queue, polled by the UI layer.
type State struct {
	Items         []Update `json:"items"`
	IsProcessing  bool     `json:"is_processing"`
	ActiveWorkers int      `json:"active_workers"`
	Stats         Counts   `json:"stats"`
}

// Queue is an in-memory, insertion-ordered collection of video items plus
// aggregate bookkeeping. It owns no I/O; processing is driven by a Processor
// holding references to the queue's items. Queue state does not survive a
// process restart.
type Queue struct {
	mu            sync.RWMutex
	items         []*Item
	processing    bool
	activeWorkers int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{items: make([]*Item, 0)}
}

// Add constructs a new pending item for the URL and appends it.
// URL validation is the caller's responsibility.
func (q *Queue) Add(url string) *Item {
	item := newItem(url)
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	return item
}

// Remove deletes the item with the given id. It returns false if no such
// item exists. Must not be called while a run is processing the item.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for idx, item := range q.items {
		if item.id == id {
			q.items = append(q.items[:idx], q.items[idx+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all items unconditionally.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = q.items[:0]
	q.mu.Unlock()
}

// GetByID returns the item with the given id, or false if absent.
func (q *Queue) GetByID(id string) (*Item, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, item := range q.items {
		if item.id == id {
			return item, true
		}
	}
	return nil, false
}

// Requeue resets a terminal item back to pending for a fresh attempt.
// It returns false if the item is absent or not in a terminal state.
func (q *Queue) Requeue(id string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, item := range q.items {
		if item.id == id {
			if !item.Status().IsTerminal() {
				return false
			}
			item.resetAttempt()
			return true
		}
	}
	return false
}

// PendingItems returns all pending items in insertion order. This ordering
// is the processing-order contract for a run.
func (q *Queue) PendingItems() []*Item {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var pending []*Item
	for _, item := range q.items {
		if item.Status() == StatusPending {
			pending = append(pending, item)
		}
	}
	return pending
}

// ActiveItems returns items currently mid-pipeline.
func (q *Queue) ActiveItems() []*Item {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var active []*Item
	for _, item := range q.items {
		if item.Status().IsActive() {
			active = append(active, item)
		}
	}
	return active
}

// Counts recomputes the aggregate statistics from current item states.
func (q *Queue) Counts() Counts {
	q.mu.RLock()
	defer q.mu.RUnlock()
	c := Counts{Total: len(q.items)}
	for _, item := range q.items {
		switch s := item.Status(); {
		case s == StatusCompleted:
			c.Completed++
		case s == StatusFailed:
			c.Failed++
		case s == StatusPending:
			c.Pending++
		case s.IsActive():
			c.Active++
		}
	}
	return c
}

// IsProcessing reports whether a processing run is in flight.
func (q *Queue) IsProcessing() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.processing
}

// ActiveWorkers returns the number of in-flight item dispatches.
func (q *Queue) ActiveWorkers() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.activeWorkers
}

// Snapshot returns the full queue state for serialization.
func (q *Queue) Snapshot() State {
	q.mu.RLock()
	items := make([]Update, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, item.Snapshot())
	}
	processing := q.processing
	workers := q.activeWorkers
	q.mu.RUnlock()

	return State{
		Items:         items,
		IsProcessing:  processing,
		ActiveWorkers: workers,
		Stats:         q.Counts(),
	}
}

// startRun marks the queue as processing. Called by the Processor once the
// pending snapshot is known to be non-empty.
func (q *Queue) startRun() {
	q.mu.Lock()
	q.processing = true
	q.activeWorkers = 0
	q.mu.Unlock()
}

// finishRun clears the processing flag and worker count after a run drains.
func (q *Queue) finishRun() {
	q.mu.Lock()
	q.processing = false
	q.activeWorkers = 0
	q.mu.Unlock()
}

// workerStarted increments the in-flight dispatch count. Incrementing and
// decrementing under the queue mutex avoids lost updates when workers
// finish concurrently.
func (q *Queue) workerStarted() {
	q.mu.Lock()
	q.activeWorkers++
	q.mu.Unlock()
}

// workerFinished decrements the in-flight dispatch count.
func (q *Queue) workerFinished() {
	q.mu.Lock()
	if q.activeWorkers > 0 {
		q.activeWorkers--
	}
	q.mu.Unlock()
}
