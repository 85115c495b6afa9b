// Package events carries suite lifecycle notifications between components.
package events

import (
	"sync"
	"time"
)

// Event types published during a run.
const (
	ScenarioStarted  = "scenario.started"
	ScenarioFinished = "scenario.finished"
	CalendarAdvanced = "calendar.advanced"
	PageLoaded       = "page.loaded"
	BackendFailure   = "booking.backend_failure"
)

// Event is a lightweight notification.
type Event struct {
	Type     string
	RunID    string
	Scenario string
	Outcome  string
	Duration time.Duration
	Count    int
	Err      error

	CreatedAt time.Time
}

// Publisher accepts events.
type Publisher interface {
	Publish(event Event)
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	all         []Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously on the publishing goroutine.
	for _, handler := range handlers {
		handler(event)
	}
}

// Scoped stamps run and scenario names onto events before forwarding them.
func Scoped(next Publisher, runID, scenario string) Publisher {
	return scoped{next: next, runID: runID, scenario: scenario}
}

type scoped struct {
	next     Publisher
	runID    string
	scenario string
}

func (s scoped) Publish(event Event) {
	if event.RunID == "" {
		event.RunID = s.runID
	}
	if event.Scenario == "" {
		event.Scenario = s.scenario
	}
	s.next.Publish(event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
