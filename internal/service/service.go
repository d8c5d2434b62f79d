package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

const restartDelay = 5 * time.Second

// TailService runs one live producer per log class. Producers start on the
// first subscription and run until Stop.
type TailService struct {
	registry    *registry.Registry
	broadcaster *livetail.Broadcaster
	openJournal logreader.JournalOpener
	store       offset.CheckpointStore
	poll        time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running map[string]bool
	wg      sync.WaitGroup
}

// Options configures a TailService
type Options struct {
	OpenJournal  logreader.JournalOpener
	Checkpoints  offset.CheckpointStore
	PollInterval time.Duration
}

// NewTailService creates a tail service
func NewTailService(reg *registry.Registry, b *livetail.Broadcaster, opts Options) (*TailService, error) {
	if reg == nil || b == nil {
		return nil, fmt.Errorf("registry and broadcaster are required")
	}
	if opts.Checkpoints == nil {
		opts.Checkpoints = offset.NopStore{}
	}
	return &TailService{
		registry:    reg,
		broadcaster: b,
		openJournal: opts.OpenJournal,
		store:       opts.Checkpoints,
		poll:        opts.PollInterval,
		running:     make(map[string]bool),
	}, nil
}

// Start binds producers to ctx. With eager set every class is started now.
func (s *TailService) Start(ctx context.Context, eager bool) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return fmt.Errorf("tail service already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	log.Info().Bool("eager", eager).Msg("Tail service starting...")
	if eager {
		for _, name := range s.registry.Names() {
			if err := s.Ensure(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ensure starts the producer of logClass unless it is already running
func (s *TailService) Ensure(logClass string) error {
	class, err := s.registry.Get(logClass)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return fmt.Errorf("tail service not started")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("tail service stopped")
	}
	if s.running[class.Name] {
		return nil
	}

	p, err := s.producer(class)
	if err != nil {
		return err
	}
	s.running[class.Name] = true
	s.wg.Add(1)
	go s.run(s.ctx, class.Name, p)
	return nil
}

func (s *TailService) producer(class *registry.LogClassConfig) (livetail.Producer, error) {
	switch class.Backend {
	case registry.BackendJournal:
		if s.openJournal == nil {
			return nil, domain.ErrJournalUnavailable
		}
		return livetail.NewJournalFollower(class, s.openJournal, s.store), nil
	case registry.BackendFlatFile:
		return livetail.NewFileFollower(class, s.store, s.poll), nil
	default:
		return nil, fmt.Errorf("log class %s has unsupported backend %v", class.Name, class.Backend)
	}
}

// run keeps a producer alive for the life of ctx
func (s *TailService) run(ctx context.Context, class string, p livetail.Producer) {
	defer s.wg.Done()
	publish := func(ev domain.TypedEvent) {
		s.broadcaster.Publish(class, ev)
	}

	for {
		err := p.Run(ctx, publish)
		if ctx.Err() != nil {
			log.Info().Str("log_class", class).Msg("Producer stopped")
			return
		}
		log.Error().
			Err(err).
			Str("log_class", class).
			Dur("restart_in", restartDelay).
			Msg("Producer failed, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// Running returns the classes whose producer is running
func (s *TailService) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.running))
	for _, name := range s.registry.Names() {
		if s.running[name] {
			out = append(out, name)
		}
	}
	return out
}

// Stop stops all producers; each one saves its checkpoint before returning
func (s *TailService) Stop() error {
	log.Info().Msg("Tail service stopping...")
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}
