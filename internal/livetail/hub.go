package livetail

import (
	"context"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

// Starter makes sure the producer of a log class is running
type Starter interface {
	Ensure(logClass string) error
}

// Hub is the subscriber-facing side of live tailing
type Hub struct {
	registry    *registry.Registry
	broadcaster *Broadcaster
	starter     Starter
}

// NewHub creates a Hub. starter may be nil when producers are started elsewhere.
func NewHub(reg *registry.Registry, b *Broadcaster, starter Starter) *Hub {
	return &Hub{registry: reg, broadcaster: b, starter: starter}
}

// Broadcaster returns the underlying broadcaster
func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// SubscribeLive streams the live events of a log class that pass the event
// type and keyword filters. The channel is closed when ctx ends.
func (h *Hub) SubscribeLive(ctx context.Context, logClass, keyword string, eventTypes []string) (<-chan domain.TypedEvent, error) {
	class, err := h.registry.Get(logClass)
	if err != nil {
		return nil, err
	}

	allowed := class.Table.Expand(eventTypes)
	accept := func(ev domain.TypedEvent) bool {
		if allowed != nil {
			if _, ok := allowed[ev.Rule]; !ok {
				return false
			}
		}
		return classify.MatchesKeyword(ev.Raw, keyword)
	}

	sub := h.broadcaster.Subscribe(class.Name, accept)
	if h.starter != nil {
		if err := h.starter.Ensure(class.Name); err != nil {
			sub.Close()
			return nil, err
		}
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub.Events(), nil
}
