package logreader

import (
	"context"
	"time"
)

// Journal is a positioned handle on an indexed log journal.
// A handle is owned by a single goroutine; open one per request.
type Journal interface {
	// AddMatch restricts iteration to entries where field == value
	AddMatch(field, value string) error

	// AddDisjunction ORs the matches added so far with the ones added next
	AddDisjunction() error

	// SeekHead positions before the oldest entry
	SeekHead() error

	// SeekTail positions after the newest entry
	SeekTail() error

	// SeekCursor positions at the entry identified by cursor.
	// The following Next or Previous lands on that entry.
	SeekCursor(cursor string) error

	// SeekRealtime positions before the first entry written at or after t
	SeekRealtime(t time.Time) error

	// Next advances one matching entry; false at the end
	Next() (bool, error)

	// Previous steps back one matching entry; false at the start
	Previous() (bool, error)

	// Entry returns the fields of the current entry
	Entry() (map[string]string, error)

	// Cursor returns the opaque cursor of the current entry
	Cursor() (string, error)

	// Wait blocks until new entries may be available or the timeout expires.
	// It returns ctx.Err() once ctx is done, at the latest after timeout.
	Wait(ctx context.Context, timeout time.Duration) error

	// Close releases the handle
	Close() error
}

// JournalOpener opens a fresh, unfiltered journal handle
type JournalOpener func() (Journal, error)

// Match is one journal field filter
type Match struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// ApplyMatches adds matches OR-combined
func ApplyMatches(j Journal, matches []Match) error {
	for _, m := range matches {
		if err := j.AddMatch(m.Field, m.Value); err != nil {
			return err
		}
		if err := j.AddDisjunction(); err != nil {
			return err
		}
	}
	return nil
}
