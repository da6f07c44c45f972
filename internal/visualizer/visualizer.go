// Package visualizer defines the one-way notification surface the evolution
// engine uses to keep an external avatar renderer consistent. Notifications
// are fire-and-forget: no return value is consulted and no delivery is
// retried by the engine.
package visualizer

import "sync"

type EventKind string

const (
	EventCreate  EventKind = "create"
	EventUpdate  EventKind = "update"
	EventDestroy EventKind = "destroy"
)

// Event describes one organism transition.
type Event struct {
	Kind       EventKind `json:"kind"`
	OrganismID string    `json:"organism_id"`
	Generation int       `json:"generation"`
	Fitness    *float64  `json:"fitness,omitempty"`
}

// Visualizer receives avatar lifecycle notifications.
type Visualizer interface {
	CreateAvatar(event Event)
	UpdateAvatar(event Event)
	DestroyAvatar(event Event)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) CreateAvatar(Event)  {}
func (Noop) UpdateAvatar(Event)  {}
func (Noop) DestroyAvatar(Event) {}

// Recorder captures notifications in order, for tests and audits.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) CreateAvatar(event Event) {
	r.record(EventCreate, event)
}

func (r *Recorder) UpdateAvatar(event Event) {
	r.record(EventUpdate, event)
}

func (r *Recorder) DestroyAvatar(event Event) {
	r.record(EventDestroy, event)
}

func (r *Recorder) record(kind EventKind, event Event) {
	event.Kind = kind
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Kind == kind {
			n++
		}
	}
	return n
}
