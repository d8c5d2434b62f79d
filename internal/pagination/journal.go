package pagination

import (
	"fmt"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

type journalSource struct {
	j    logreader.Journal
	step func() (bool, error)
	done bool
}

func (p *Paginator) journalSource(class *registry.LogClassConfig, req Request) (source, error) {
	var token string
	if req.Mode != Initial {
		jc, ok := req.Cursor.(domain.JournalCursor)
		if !ok {
			return nil, fmt.Errorf("%w: log class %s expects a journal cursor", domain.ErrInvalidCursor, class.Name)
		}
		token = jc.Token
	}
	if p.openJournal == nil {
		return nil, domain.ErrJournalUnavailable
	}

	j, err := p.openJournal()
	if err != nil {
		return nil, err
	}
	src := &journalSource{j: j, step: j.Next}
	if err := src.position(class, req.Mode, token); err != nil {
		j.Close()
		return nil, err
	}
	return src, nil
}

func (s *journalSource) position(class *registry.LogClassConfig, mode Mode, token string) error {
	if err := logreader.ApplyMatches(s.j, class.Matches); err != nil {
		return fmt.Errorf("failed to add journal matches for %s: %w", class.Name, err)
	}

	switch mode {
	case Initial:
		if err := s.j.SeekHead(); err != nil {
			return fmt.Errorf("failed to seek journal head: %w", err)
		}
	case Older:
		if err := s.j.SeekCursor(token); err != nil {
			return fmt.Errorf("%w: failed to seek journal cursor: %v", domain.ErrInvalidCursor, err)
		}
		// land on the already delivered record and skip it
		ok, err := s.j.Next()
		if err != nil {
			return fmt.Errorf("failed to advance journal: %w", err)
		}
		s.done = !ok
	case Previous:
		if err := s.j.SeekCursor(token); err != nil {
			return fmt.Errorf("%w: failed to seek journal cursor: %v", domain.ErrInvalidCursor, err)
		}
		s.step = s.j.Previous
	}
	return nil
}

func (s *journalSource) next(n int) ([]item, error) {
	if s.done {
		return nil, nil
	}
	items := make([]item, 0, n)
	for len(items) < n {
		ok, err := s.step()
		if err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		if !ok {
			s.done = true
			break
		}
		fields, err := s.j.Entry()
		if err != nil {
			return nil, fmt.Errorf("failed to read journal entry: %w", err)
		}
		c, err := s.j.Cursor()
		if err != nil {
			return nil, fmt.Errorf("failed to get journal cursor: %w", err)
		}
		items = append(items, item{
			rec:    domain.Structured(fields),
			cursor: domain.JournalCursor{Token: c},
		})
	}
	return items, nil
}

func (s *journalSource) close() {
	s.j.Close()
}
