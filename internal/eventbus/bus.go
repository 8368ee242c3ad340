// Package eventbus implements a typed publish/subscribe fan-out for
// DetectionEvents, with synchronous inline delivery and bounded
// asynchronous queues per subscriber.
package eventbus

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/model"
	"github.com/rs/zerolog"
)

// Token identifies a subscription for later Unsubscribe calls.
type Token uint64

// Handler receives published events. It must not block for long when
// subscribed synchronously, since Publish delivers to sync subscribers
// inline on the publisher's goroutine.
type Handler func(model.DetectionEvent)

// SubscribeOptions configures one subscription.
type SubscribeOptions struct {
	Async     bool
	QueueSize int // default 1024, only used when Async
}

type subscriber struct {
	token   Token
	kind    model.EventKind
	handler Handler
	async   bool
	queue   chan model.DetectionEvent
	done    chan struct{}
}

// Bus is a typed pub/sub fan-out. Delivery to synchronous subscribers
// happens inline within Publish; async subscribers have their own
// bounded queue and worker goroutine.
type Bus struct {
	log   zerolog.Logger
	clock quartz.Clock

	mu          sync.RWMutex
	subscribers map[model.EventKind][]*subscriber
	nextToken   Token

	dropMu          sync.Mutex
	droppedSinceLog int
	lastDropLog     time.Time
}

// New builds an event Bus.
func New(log zerolog.Logger, clock quartz.Clock) *Bus {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Bus{
		log:         log,
		clock:       clock,
		subscribers: make(map[model.EventKind][]*subscriber),
	}
}

// Subscribe registers handler for the given event kind and returns a
// Token usable with Unsubscribe.
func (b *Bus) Subscribe(kind model.EventKind, handler Handler, opts SubscribeOptions) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextToken++
	sub := &subscriber{token: b.nextToken, kind: kind, handler: handler, async: opts.Async}
	if opts.Async {
		size := opts.QueueSize
		if size <= 0 {
			size = 1024
		}
		sub.queue = make(chan model.DetectionEvent, size)
		sub.done = make(chan struct{})
		go b.drain(sub)
	}
	b.subscribers[kind] = append(b.subscribers[kind], sub)
	return sub.token
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (b *Bus) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, subs := range b.subscribers {
		for i, s := range subs {
			if s.token == token {
				b.subscribers[kind] = append(subs[:i], subs[i+1:]...)
				if s.done != nil {
					close(s.done)
				}
				return
			}
		}
	}
}

// Publish delivers event to every subscriber of event.EventKind. FIFO
// order is preserved per subscriber.
func (b *Bus) Publish(event model.DetectionEvent) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subscribers[event.EventKind]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.async {
			s.handler(event)
			continue
		}
		select {
		case s.queue <- event:
		default:
			b.recordDrop()
		}
	}
}

func (b *Bus) drain(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.queue:
			s.handler(event)
		}
	}
}

// recordDrop increments the overflow counter and emits at most one
// backpressure event per second.
func (b *Bus) recordDrop() {
	b.dropMu.Lock()
	b.droppedSinceLog++
	now := b.clock.Now()
	if now.Sub(b.lastDropLog) < time.Second {
		b.dropMu.Unlock()
		return
	}
	b.lastDropLog = now
	dropped := b.droppedSinceLog
	b.droppedSinceLog = 0
	b.dropMu.Unlock()

	b.log.Warn().Int("dropped", dropped).Msg("eventbus: async subscriber queue overflow")
	b.Publish(model.DetectionEvent{
		EventKind: model.EventBackpressure,
		TMonoNS:   now.UnixNano(),
		Data:      map[string]any{"dropped": dropped},
	})
}
