//go:build linux && cgo

package logreader

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
)

// systemdJournal adapts sdjournal to the Journal interface
type systemdJournal struct {
	j *sdjournal.Journal
}

// NewSystemdOpener returns an opener for the local system journal,
// or for the journal files under dir when dir is set
func NewSystemdOpener(dir string) JournalOpener {
	return func() (Journal, error) {
		var (
			j   *sdjournal.Journal
			err error
		)
		if dir != "" {
			j, err = sdjournal.NewJournalFromDir(dir)
		} else {
			j, err = sdjournal.NewJournal()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		return &systemdJournal{j: j}, nil
	}
}

func (s *systemdJournal) AddMatch(field, value string) error {
	return s.j.AddMatch(field + "=" + value)
}

func (s *systemdJournal) AddDisjunction() error {
	return s.j.AddDisjunction()
}

func (s *systemdJournal) SeekHead() error {
	return s.j.SeekHead()
}

func (s *systemdJournal) SeekTail() error {
	return s.j.SeekTail()
}

func (s *systemdJournal) SeekCursor(cursor string) error {
	return s.j.SeekCursor(cursor)
}

func (s *systemdJournal) SeekRealtime(t time.Time) error {
	return s.j.SeekRealtimeUsec(uint64(t.UnixMicro()))
}

func (s *systemdJournal) Next() (bool, error) {
	n, err := s.j.Next()
	return n > 0, err
}

func (s *systemdJournal) Previous() (bool, error) {
	n, err := s.j.Previous()
	return n > 0, err
}

func (s *systemdJournal) Entry() (map[string]string, error) {
	e, err := s.j.GetEntry()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	if _, ok := fields[sdjournal.SD_JOURNAL_FIELD_REALTIME_TIMESTAMP]; !ok {
		fields[sdjournal.SD_JOURNAL_FIELD_REALTIME_TIMESTAMP] = fmt.Sprint(e.RealtimeTimestamp)
	}
	return fields, nil
}

func (s *systemdJournal) Cursor() (string, error) {
	return s.j.GetCursor()
}

// Wait blocks in sd_journal_wait, which cannot be interrupted. ctx is only
// checked before and after, so cancellation takes effect within timeout.
func (s *systemdJournal) Wait(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.j.Wait(timeout)
	return ctx.Err()
}

func (s *systemdJournal) Close() error {
	return s.j.Close()
}
