// Package livetail delivers freshly classified events to live subscribers.
// Events published while nobody is listening are kept in a bounded
// per-class FIFO and flushed, oldest first, once a subscriber is back.
package livetail

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

const (
	// DefaultCapacity is the per-class FIFO ceiling
	DefaultCapacity = 5000

	subscriberBuffer = 1024
)

// Broadcaster fans events out to the subscribers of a log class
type Broadcaster struct {
	capacity int

	mu      sync.Mutex
	classes map[string]*classState
}

// classState is guarded by its own mutex so classes never contend
type classState struct {
	mu      sync.Mutex
	subs    map[uuid.UUID]*Subscription
	fifo    *ring
	dropped uint64 // evicted from the FIFO
	missed  uint64 // skipped for a full subscriber
}

// Subscription receives the events of one log class
type Subscription struct {
	ID     uuid.UUID
	class  string
	ch     chan domain.TypedEvent
	accept func(domain.TypedEvent) bool
	state  *classState
	once   sync.Once
}

// NewBroadcaster creates a Broadcaster. capacity <= 0 means DefaultCapacity.
func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		capacity: capacity,
		classes:  make(map[string]*classState),
	}
}

func (b *Broadcaster) state(class string) *classState {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.classes[class]
	if !ok {
		cs = &classState{
			subs: make(map[uuid.UUID]*Subscription),
			fifo: newRing(b.capacity),
		}
		b.classes[class] = cs
	}
	return cs
}

// Subscribe registers a subscriber for class. accept, when non-nil, filters
// what the subscriber sees; a filtered event still counts as received.
func (b *Broadcaster) Subscribe(class string, accept func(domain.TypedEvent) bool) *Subscription {
	cs := b.state(class)
	sub := &Subscription{
		ID:     uuid.New(),
		class:  class,
		ch:     make(chan domain.TypedEvent, subscriberBuffer),
		accept: accept,
		state:  cs,
	}

	cs.mu.Lock()
	cs.subs[sub.ID] = sub
	n := len(cs.subs)
	cs.mu.Unlock()

	log.Debug().
		Str("log_class", class).
		Str("subscription", sub.ID.String()).
		Int("subscribers", n).
		Msg("Live subscriber added")
	return sub
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan domain.TypedEvent {
	return s.ch
}

// Class returns the subscribed log class
func (s *Subscription) Class() string {
	return s.class
}

// Close unsubscribes and closes the delivery channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.state.mu.Lock()
		delete(s.state.subs, s.ID)
		// sends only happen under the class mutex
		close(s.ch)
		s.state.mu.Unlock()

		log.Debug().
			Str("log_class", s.class).
			Str("subscription", s.ID.String()).
			Msg("Live subscriber removed")
	})
}

// Publish delivers ev to the current subscribers of class. It reports
// whether at least one subscriber took it; otherwise ev is buffered.
// Buffered events are flushed first so per-class order is kept.
func (b *Broadcaster) Publish(class string, ev domain.TypedEvent) bool {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(cs.subs) == 0 {
		cs.push(ev)
		return false
	}

	for cs.fifo.len() > 0 {
		if !cs.deliver(cs.fifo.front()) {
			break
		}
		cs.fifo.popFront()
	}
	if cs.fifo.len() > 0 {
		cs.push(ev)
		return false
	}
	if !cs.deliver(ev) {
		cs.push(ev)
		return false
	}
	return true
}

// deliver offers ev to every subscriber without blocking.
// Caller holds cs.mu.
func (cs *classState) deliver(ev domain.TypedEvent) bool {
	accepted := false
	for _, sub := range cs.subs {
		if sub.accept != nil && !sub.accept(ev) {
			accepted = true
			continue
		}
		select {
		case sub.ch <- ev:
			accepted = true
		default:
			cs.missed++
			if cs.missed%1000 == 1 {
				log.Warn().
					Str("log_class", sub.class).
					Str("subscription", sub.ID.String()).
					Uint64("missed", cs.missed).
					Msg("Live subscriber is not keeping up")
			}
		}
	}
	return accepted
}

func (cs *classState) push(ev domain.TypedEvent) {
	if cs.fifo.push(ev) {
		cs.dropped++
		if cs.dropped%1000 == 1 {
			log.Warn().
				Str("log_class", ev.LogClass).
				Uint64("dropped", cs.dropped).
				Msg("Live buffer full, dropping oldest events")
		}
	}
}

// Buffered returns the number of events waiting in the class FIFO
func (b *Broadcaster) Buffered(class string) int {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.fifo.len()
}

// Dropped returns the number of events evicted from the class FIFO
func (b *Broadcaster) Dropped(class string) uint64 {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.dropped
}

// Missed returns how many times a full subscriber channel held an event back
func (b *Broadcaster) Missed(class string) uint64 {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.missed
}

// Subscribers returns the number of live subscribers of class
func (b *Broadcaster) Subscribers(class string) int {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.subs)
}

// Snapshot returns the buffered events of class, oldest first
func (b *Broadcaster) Snapshot(class string) []domain.TypedEvent {
	cs := b.state(class)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.fifo.items()
}
