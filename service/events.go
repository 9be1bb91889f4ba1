package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/usorama/tutorkit/health"
)

// EventType identifies a lifecycle event. The set is closed; there is no
// dynamic event naming.
type EventType int

// Lifecycle event types
const (
	EventInitialized EventType = iota
	EventStarted
	EventStopped
	EventErrored
	EventHealthChecked
)

// String returns the string representation of EventType
func (t EventType) String() string {
	switch t {
	case EventInitialized:
		return "initialized"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventErrored:
		return "error"
	case EventHealthChecked:
		return "health_check"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification emitted by a supervisor. Err is set
// only for EventErrored; Status only for EventHealthChecked.
type Event struct {
	Type    EventType
	Service string
	Time    time.Time
	Err     error
	Status  health.Status
}

// Listener receives matching events until unsubscribed
type Listener func(Event)

// dispatcher delivers events synchronously to subscribed listeners.
// A panicking listener is isolated: it is logged and the remaining
// listeners still run.
type dispatcher struct {
	mu        sync.Mutex
	nextID    int
	listeners map[EventType]map[int]Listener
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		listeners: make(map[EventType]map[int]Listener),
	}
}

// subscribe registers a listener for one event type and returns its id
func (d *dispatcher) subscribe(t EventType, fn Listener) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	if d.listeners[t] == nil {
		d.listeners[t] = make(map[int]Listener)
	}
	d.listeners[t][d.nextID] = fn
	return d.nextID
}

// unsubscribe removes a listener; unknown ids are a no-op
func (d *dispatcher) unsubscribe(t EventType, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.listeners[t], id)
}

// emit delivers the event to every listener of its type, in subscription
// order, outside the dispatcher lock.
func (d *dispatcher) emit(ev Event, logger *slog.Logger) {
	d.mu.Lock()
	ids := make([]int, 0, len(d.listeners[ev.Type]))
	for id := range d.listeners[ev.Type] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.listeners[ev.Type][id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event listener panicked",
						"event", ev.Type.String(),
						"panic", r)
				}
			}()
			fn(ev)
		}()
	}
}

// clear drops every listener
func (d *dispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = make(map[EventType]map[int]Listener)
}
