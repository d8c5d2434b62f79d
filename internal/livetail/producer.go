package livetail

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
)

const (
	// CheckpointEvery is the number of consumed records between checkpoint writes
	CheckpointEvery = 100

	// DefaultPollInterval is the flat-file poll fallback when no change notification arrives
	DefaultPollInterval = 500 * time.Millisecond

	journalWait = time.Second
)

// Producer reads one log class from its live edge and publishes what it
// classifies. Run blocks until ctx ends.
type Producer interface {
	Run(ctx context.Context, publish func(domain.TypedEvent)) error
}

// checkpointer persists the position of the last consumed record
type checkpointer struct {
	store   offset.CheckpointStore
	class   string
	every   int
	pending int
	last    domain.Cursor
}

func newCheckpointer(store offset.CheckpointStore, class string) *checkpointer {
	if store == nil {
		store = offset.NopStore{}
	}
	return &checkpointer{store: store, class: class, every: CheckpointEvery}
}

func (c *checkpointer) load(ctx context.Context) domain.Cursor {
	cur, err := c.store.Get(ctx, c.class)
	if err != nil {
		log.Warn().Err(err).Str("log_class", c.class).Msg("Failed to load checkpoint, starting from the live edge")
		return nil
	}
	return cur
}

func (c *checkpointer) advance(ctx context.Context, cur domain.Cursor) {
	c.last = cur
	c.pending++
	if c.pending >= c.every {
		c.save(ctx)
	}
}

func (c *checkpointer) save(ctx context.Context) {
	if c.pending == 0 || c.last == nil {
		return
	}
	if err := c.store.Set(ctx, c.class, c.last); err != nil {
		log.Warn().Err(err).Str("log_class", c.class).Msg("Failed to save checkpoint")
		return
	}
	c.pending = 0
}

// flush saves on shutdown, when ctx is already cancelled
func (c *checkpointer) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	c.save(ctx)
}
