package engine

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(Event{Type: EventTypeScan, Source: "edge"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventTypeScan, got.Type)
	assert.Equal(t, "edge", got.Source)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(Event{Type: EventTypeScan, Source: "edge"})
	q.Enqueue(Event{Type: EventTypeNewGame, Source: "api"})
	q.Enqueue(Event{Type: EventTypeScan, Source: "poll"})

	var sources []string
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		sources = append(sources, e.Source)
	}
	assert.Equal(t, []string{"edge", "api", "poll"}, sources)
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_BurstCoalescesSignal(t *testing.T) {
	q := newEventQueue()

	for i := 0; i < 5; i++ {
		q.Enqueue(Event{Type: EventTypeScan})
	}

	// One wake-up token, five events.
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a wake-up signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("burst should coalesce into one signal")
	default:
	}
	assert.Equal(t, 5, q.Len())
}

func TestEventQueue_Close_WakesWaiter(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter not woken by close")
	}
	assert.True(t, q.isClosed())
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(Event{Type: EventTypeScan})
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(Event{Type: EventTypeScan})
	q.Enqueue(Event{Type: EventTypeScan})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(Event{Type: EventTypeScan, Source: strconv.Itoa(id)})
			}
		}(p)
	}
	wg.Wait()

	perProducer := make(map[string]int)
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		perProducer[e.Source]++
	}

	require.Len(t, perProducer, producers)
	for src, n := range perProducer {
		assert.Equal(t, eventsPerProducer, n, "producer %s", src)
	}
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "scan", EventTypeScan.String())
	assert.Equal(t, "new_game", EventTypeNewGame.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
