// Package pagination serves resumable pages of classified events from a log
// class backend. Journal classes resume through the journal's own cursors,
// flat-file classes through byte offsets verified against a line fingerprint.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/observability"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

const (
	tracerName = "hostlog-checker/pagination"

	// BatchSize is the number of records pulled and classified at once
	BatchSize = 100

	// DefaultMaxLimit caps the page size when no other limit is configured
	DefaultMaxLimit = 100000
)

// Mode selects the read direction
type Mode int

const (
	// Initial reads from the oldest record
	Initial Mode = iota
	// Older resumes forward after the cursor record
	Older
	// Previous reads backward, starting with the cursor record itself
	Previous
)

func (m Mode) String() string {
	switch m {
	case Initial:
		return "initial"
	case Older:
		return "older"
	case Previous:
		return "previous"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "initial":
		return Initial, nil
	case "older":
		return Older, nil
	case "previous":
		return Previous, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidRequest, s)
	}
}

// Request describes one page
type Request struct {
	LogClass   string
	Cursor     domain.Cursor // required for Older and Previous
	Mode       Mode
	Limit      int
	Keyword    string   // case-insensitive, searched over the raw record
	EventTypes []string // event names, expanded per rule table
}

// Page is a delivered page. Cursor is nil only for an Initial read that
// consumed no record.
type Page struct {
	Events []domain.TypedEvent
	Cursor domain.Cursor
}

// Options tunes a Paginator
type Options struct {
	MaxLimit int // 0 means DefaultMaxLimit
	Workers  int // classification parallelism, 0 means GOMAXPROCS
}

// Paginator serves pages for the classes of a registry
type Paginator struct {
	registry    *registry.Registry
	openJournal logreader.JournalOpener
	maxLimit    int
	workers     int
}

// New creates a Paginator. openJournal may be nil when no class is journal-backed.
func New(reg *registry.Registry, openJournal logreader.JournalOpener, opts Options) *Paginator {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	return &Paginator{
		registry:    reg,
		openJournal: openJournal,
		maxLimit:    opts.MaxLimit,
		workers:     opts.Workers,
	}
}

// Paginate reads one page into memory
func (p *Paginator) Paginate(ctx context.Context, req Request) (*Page, error) {
	page := &Page{}
	cursor, err := p.run(ctx, req, func(ev domain.TypedEvent) bool {
		page.Events = append(page.Events, ev)
		return true
	})
	if err != nil {
		return nil, err
	}
	page.Cursor = cursor
	return page, nil
}

// PaginateTo streams a page into out. Sends never block: an event that does
// not fit is logged and dropped and does not count toward the limit.
func (p *Paginator) PaginateTo(ctx context.Context, req Request, out chan<- domain.TypedEvent) (domain.Cursor, error) {
	return p.run(ctx, req, func(ev domain.TypedEvent) bool {
		select {
		case out <- ev:
			return true
		default:
			log.Warn().Str("log_class", ev.LogClass).Str("rule", ev.Rule).Msg("Event dropped, receiver is full")
			return false
		}
	})
}

func (p *Paginator) validate(req Request) error {
	if req.Limit <= 0 || req.Limit > p.maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrInvalidRequest, p.maxLimit, req.Limit)
	}
	switch req.Mode {
	case Initial:
	case Older, Previous:
		if req.Cursor == nil {
			return fmt.Errorf("%w: mode %s requires a cursor", domain.ErrInvalidRequest, req.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", domain.ErrInvalidRequest, int(req.Mode))
	}
	return nil
}

func (p *Paginator) run(ctx context.Context, req Request, emit func(domain.TypedEvent) bool) (cursor domain.Cursor, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "pagination.Paginate",
		attribute.String("log_class", req.LogClass),
		attribute.String("mode", req.Mode.String()),
		attribute.Int("limit", req.Limit),
	)
	delivered := 0
	defer func() {
		span.SetAttributes(attribute.Int("delivered", delivered))
		observability.EndSpan(span, err, "paginate")
	}()

	if err := p.validate(req); err != nil {
		return nil, err
	}
	class, err := p.registry.Get(req.LogClass)
	if err != nil {
		return nil, err
	}

	var src source
	switch class.Backend {
	case registry.BackendJournal:
		src, err = p.journalSource(class, req)
	case registry.BackendFlatFile:
		src, err = newFileSource(class, req)
	default:
		err = fmt.Errorf("log class %s has unsupported backend %v", class.Name, class.Backend)
	}
	if err != nil {
		return nil, err
	}
	defer src.close()

	classifier := classify.New(class.Name, class.Table, req.EventTypes)

	var last domain.Cursor
	consumed := false
	for delivered < req.Limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := src.next(BatchSize)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		recs := make([]domain.RawRecord, len(items))
		for i, it := range items {
			recs[i] = it.rec
		}
		results, err := classifier.Batch(ctx, recs, p.workers)
		if err != nil {
			return nil, err
		}

		for i, it := range items {
			last, consumed = it.cursor, true
			r := results[i]
			if !r.OK || !classify.MatchesKeyword(it.rec, req.Keyword) {
				continue
			}
			if emit(r.Event) {
				delivered++
				if delivered == req.Limit {
					break
				}
			}
		}
	}

	log.Debug().
		Str("log_class", class.Name).
		Str("mode", req.Mode.String()).
		Int("limit", req.Limit).
		Int("delivered", delivered).
		Msg("Page served")

	if !consumed {
		if req.Mode == Initial {
			return nil, nil
		}
		return req.Cursor, nil
	}
	return last, nil
}

// item is one consumed record and the cursor that resumes right after it
type item struct {
	rec    domain.RawRecord
	cursor domain.Cursor
}

// source yields records in delivery order; an empty batch means exhausted
type source interface {
	next(n int) ([]item, error)
	close()
}

// IsClientError reports whether err is caused by the request rather than the backend
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrInvalidCursor) ||
		errors.Is(err, domain.ErrCursorMismatch) ||
		errors.Is(err, domain.ErrUnknownLogClass)
}
