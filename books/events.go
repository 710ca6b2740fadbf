package books

import (
	"sync"
	"time"
)

// EventKind classifies a published Event.
type EventKind string

const (
	// EventMutation follows every committed write. Views re-query on it.
	EventMutation EventKind = "mutation"

	// EventStockClamped reports an Adjust whose result would have gone
	// below zero and was forced to 0.
	EventStockClamped EventKind = "stock_clamped"
)

// Event describes one committed change.
type Event struct {
	Kind    EventKind
	At      time.Time
	Action  string
	Product ProductName

	// Set on EventStockClamped only.
	Requested int // quantity the delta asked for (negative)
	Applied   int // quantity actually stored (0)
}

// Events fans out notifications to subscribers after the store lock is
// released, so listeners may read the books.
type Events struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(Event)
}

func NewEvents() *Events {
	return &Events{listeners: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function removing it.
func (e *Events) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Events) publish(ev Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	fns := make([]func(Event), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
