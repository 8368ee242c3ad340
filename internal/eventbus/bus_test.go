package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_SyncDeliversInline(t *testing.T) {
	t.Parallel()
	bus := New(zerolog.Nop(), quartz.NewReal())
	var got model.DetectionEvent
	bus.Subscribe(model.EventPot, func(e model.DetectionEvent) { got = e }, SubscribeOptions{})

	bus.Publish(model.DetectionEvent{EventKind: model.EventPot, CorrelationID: "c1"})
	assert.Equal(t, "c1", got.CorrelationID)
}

func TestPublish_FIFOPerSubscriber(t *testing.T) {
	t.Parallel()
	bus := New(zerolog.Nop(), quartz.NewReal())
	var mu sync.Mutex
	var order []string
	bus.Subscribe(model.EventPot, func(e model.DetectionEvent) {
		mu.Lock()
		order = append(order, e.CorrelationID)
		mu.Unlock()
	}, SubscribeOptions{})

	for _, id := range []string{"a", "b", "c"} {
		bus.Publish(model.DetectionEvent{EventKind: model.EventPot, CorrelationID: id})
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	t.Parallel()
	bus := New(zerolog.Nop(), quartz.NewReal())
	calls := 0
	token := bus.Subscribe(model.EventPot, func(model.DetectionEvent) { calls++ }, SubscribeOptions{})
	bus.Unsubscribe(token)
	bus.Publish(model.DetectionEvent{EventKind: model.EventPot})
	assert.Equal(t, 0, calls)
}

func TestPublish_AsyncOverflowEmitsBackpressure(t *testing.T) {
	t.Parallel()
	bus := New(zerolog.Nop(), quartz.NewReal())

	block := make(chan struct{})
	bus.Subscribe(model.EventPot, func(model.DetectionEvent) { <-block }, SubscribeOptions{Async: true, QueueSize: 1})

	backpressure := make(chan model.DetectionEvent, 8)
	bus.Subscribe(model.EventBackpressure, func(e model.DetectionEvent) { backpressure <- e }, SubscribeOptions{})

	for i := 0; i < 10; i++ {
		bus.Publish(model.DetectionEvent{EventKind: model.EventPot})
	}
	close(block)

	select {
	case e := <-backpressure:
		assert.Equal(t, model.EventBackpressure, e.EventKind)
	case <-time.After(time.Second):
		t.Fatal("expected a backpressure event")
	}
}

func TestPublish_UnknownKindNoSubscribersNoPanic(t *testing.T) {
	t.Parallel()
	bus := New(zerolog.Nop(), quartz.NewReal())
	require.NotPanics(t, func() {
		bus.Publish(model.DetectionEvent{EventKind: model.EventCritical})
	})
}
