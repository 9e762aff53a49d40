package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/reedboard/internal/board"
)

// NotificationKind tags a Notification.
type NotificationKind string

const (
	// NotifyScan carries every successful grid read.
	NotifyScan NotificationKind = "scan"
	// NotifyMove carries an accepted move.
	NotifyMove NotificationKind = "move"
	// NotifyState carries a sync state change.
	NotifyState NotificationKind = "state"
)

// MoveEvent describes an accepted move.
type MoveEvent struct {
	Move     board.Move  `json:"move"`
	SAN      string      `json:"san"`
	Mover    board.Piece `json:"mover"`
	Captured board.Piece `json:"captured"`
	Turn     board.Color `json:"turn"`
	GameOver bool        `json:"game_over"`
	Result   string      `json:"result,omitempty"`
}

// Notification is what subscribers receive. Exactly one of the payload fields matches Kind.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Seq     int64            `json:"seq"`
	Session string           `json:"session,omitempty"`

	Snapshot board.Snapshot `json:"snapshot"`
	Move     *MoveEvent     `json:"move,omitempty"`
	State    SyncState      `json:"state"`
	Reason   string         `json:"reason,omitempty"`
}

// broadcaster fans notifications out to subscribers without ever blocking the event loop:
// a subscriber whose buffer is full misses the notification and the drop is counted.
type broadcaster struct {
	mu      sync.Mutex
	next    int
	subs    map[int]chan Notification
	closed  bool
	dropped atomic.Int64
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Notification)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Notification, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			total := b.dropped.Add(1)
			slog.Warn("subscriber too slow, notification dropped",
				"kind", n.Kind,
				"seq", n.Seq,
				"dropped_total", total,
			)
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
