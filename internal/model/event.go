package model

// EventKind identifies the kind of DetectionEvent emitted by the
// dispatcher.
type EventKind string

const (
	EventPot         EventKind = "pot"
	EventCard        EventKind = "card"
	EventHeroCards   EventKind = "hero_cards"
	EventPlayer      EventKind = "player"
	EventAction      EventKind = "action"
	EventStreet      EventKind = "street"
	EventHandStart   EventKind = "hand_start"
	EventHandEnd     EventKind = "hand_end"
	EventPerformance EventKind = "performance"
	EventError       EventKind = "error"
	EventCritical    EventKind = "critical"
	EventBackpressure EventKind = "backpressure"
)

// DetectionEvent is one typed event published to the event bus and,
// optionally, to the diagnostic NDJSON log.
type DetectionEvent struct {
	EventKind     EventKind
	CorrelationID string
	TMonoNS       int64
	Previous      any
	Current       any
	Confidence    float64
	Data          map[string]any
}
