package livetail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

// JournalFollower follows a journal-backed log class
type JournalFollower struct {
	class *registry.LogClassConfig
	open  logreader.JournalOpener
	store offset.CheckpointStore
	wait  time.Duration
}

// NewJournalFollower creates a follower. store may be nil.
func NewJournalFollower(class *registry.LogClassConfig, open logreader.JournalOpener, store offset.CheckpointStore) *JournalFollower {
	return &JournalFollower{class: class, open: open, store: store, wait: journalWait}
}

// Run follows the journal from the stored checkpoint, or from now
func (f *JournalFollower) Run(ctx context.Context, publish func(domain.TypedEvent)) error {
	if f.open == nil {
		return domain.ErrJournalUnavailable
	}
	j, err := f.open()
	if err != nil {
		return fmt.Errorf("failed to open journal for %s: %w", f.class.Name, err)
	}
	defer j.Close()

	if err := logreader.ApplyMatches(j, f.class.Matches); err != nil {
		return fmt.Errorf("failed to add journal matches for %s: %w", f.class.Name, err)
	}

	cp := newCheckpointer(f.store, f.class.Name)
	defer cp.flush(ctx)
	if err := f.position(ctx, j, cp); err != nil {
		return err
	}

	classifier := classify.New(f.class.Name, f.class.Table, nil)
	log.Info().Str("log_class", f.class.Name).Msg("Journal follower started")

	for {
		if ctx.Err() != nil {
			return nil
		}
		ok, err := j.Next()
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if !ok {
			if err := j.Wait(ctx, f.wait); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to wait for journal: %w", err)
			}
			continue
		}

		fields, err := j.Entry()
		if err != nil {
			return fmt.Errorf("failed to read journal entry: %w", err)
		}
		cursor, err := j.Cursor()
		if err != nil {
			return fmt.Errorf("failed to get journal cursor: %w", err)
		}
		if ev, ok := classifier.Classify(domain.Structured(fields)); ok {
			publish(ev)
		}
		cp.advance(ctx, domain.JournalCursor{Token: cursor})
	}
}

func (f *JournalFollower) position(ctx context.Context, j logreader.Journal, cp *checkpointer) error {
	if jc, ok := cp.load(ctx).(domain.JournalCursor); ok {
		err := j.SeekCursor(jc.Token)
		if err == nil {
			// land on the checkpointed record, it was already consumed
			var landed bool
			landed, err = j.Next()
			if err == nil && !landed {
				err = errors.New("checkpoint record is gone")
			}
		}
		if err == nil {
			log.Info().Str("log_class", f.class.Name).Msg("Resuming journal from checkpoint")
			return nil
		}
		log.Warn().Err(err).Str("log_class", f.class.Name).Msg("Checkpoint unusable, following from now")
	}

	if err := j.SeekRealtime(time.Now()); err != nil {
		return fmt.Errorf("failed to seek journal to now: %w", err)
	}
	return nil
}
