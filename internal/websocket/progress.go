package websocket

import "github.com/vidigest/backend/internal/queue"

// Broadcaster pushes queue events to connected clients.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a broadcaster on top of the hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ItemUpdate sends a per-item progress event. It has the OnProgress shape
// the queue processor expects.
func (b *Broadcaster) ItemUpdate(update queue.Update) {
	b.hub.Broadcast(&Message{
		Type:    TypeItemUpdate,
		Payload: update,
	})
}

// QueueState sends a full queue snapshot, used after structural changes
// (add, remove, clear) where per-item deltas don't tell the whole story.
func (b *Broadcaster) QueueState(state queue.State) {
	b.hub.Broadcast(&Message{
		Type:    TypeQueueState,
		Payload: state,
	})
}

// RunStarted announces that a processing run began.
func (b *Broadcaster) RunStarted(status queue.StatusSnapshot) {
	b.hub.Broadcast(&Message{
		Type:    TypeRunStarted,
		Payload: status,
	})
}

// RunFinished announces the outcome of a processing run.
func (b *Broadcaster) RunFinished(tally queue.Tally) {
	b.hub.Broadcast(&Message{
		Type:    TypeRunFinished,
		Payload: tally,
	})
}

// HasClients reports whether anyone is listening.
func (b *Broadcaster) HasClients() bool {
	return b.hub.TotalClients() > 0
}
