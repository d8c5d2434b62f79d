package livetail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
	"github.com/SteelMorgan/hostlog-checker/internal/retry"
)

// FileFollower follows a flat-file log class. It wakes on change
// notifications for the file's directory and polls as a fallback.
// Only newline-terminated lines are published.
type FileFollower struct {
	class  *registry.LogClassConfig
	store  offset.CheckpointStore
	poll   time.Duration
	reopen retry.Config
	fp     *classify.Classifier
}

// NewFileFollower creates a follower. store may be nil, poll <= 0 means DefaultPollInterval.
func NewFileFollower(class *registry.LogClassConfig, store offset.CheckpointStore, poll time.Duration) *FileFollower {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &FileFollower{
		class:  class,
		store:  store,
		poll:   poll,
		reopen: retry.ReopenConfig(),
		fp:     classify.New(class.Name, class.Table, nil),
	}
}

// Run follows the file until ctx ends
func (f *FileFollower) Run(ctx context.Context, publish func(domain.TypedEvent)) error {
	cp := newCheckpointer(f.store, f.class.Name)
	defer cp.flush(ctx)

	r, err := f.openInitial(ctx, cp)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() { r.Close() }()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Str("log_class", f.class.Name).Msg("File notifications unavailable, polling only")
	} else {
		defer watcher.Close()
		dir := filepath.Dir(r.Path())
		if err := watcher.Add(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory, polling only")
		} else {
			events, errs = watcher.Events, watcher.Errors
		}
	}

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	log.Info().
		Str("log_class", f.class.Name).
		Str("path", r.Path()).
		Int64("offset", r.Offset()).
		Msg("File follower started")

	for {
		if err := f.drain(ctx, r, cp, publish); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.Path()) {
				continue
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Str("log_class", f.class.Name).Msg("File watcher error")
		case <-ticker.C:
		}

		// finish the current handle before looking for rotation
		if err := f.drain(ctx, r, cp, publish); err != nil {
			return err
		}
		next, err := f.check(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("log_class", f.class.Name).Msg("Failed to reopen rotated file, will retry")
			continue
		}
		if next != r {
			r.Close()
			r = next
		}
	}
}

// openInitial waits for the file, then positions at the checkpoint when its
// fingerprint still verifies, else at end of file
func (f *FileFollower) openInitial(ctx context.Context, cp *checkpointer) (*logreader.FileReader, error) {
	path, err := f.waitForFile(ctx)
	if err != nil {
		return nil, err
	}

	start := int64(-1)
	if mc, ok := cp.load(ctx).(domain.ManualCursor); ok {
		if _, err := pagination.VerifyManualCursor(path, f.fp, mc); err != nil {
			log.Warn().Err(err).Str("log_class", f.class.Name).Msg("Checkpoint no longer matches the file, following from end")
		} else {
			start = int64(mc.Offset)
			log.Info().Str("log_class", f.class.Name).Int64("offset", start).Msg("Resuming file from checkpoint")
		}
	}
	if start < 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		start = info.Size()
	}
	return logreader.OpenFile(path, start)
}

func (f *FileFollower) waitForFile(ctx context.Context) (string, error) {
	logged := false
	for {
		path, err := logreader.ResolveFlatFile(f.class.Path)
		if err == nil {
			if _, err = os.Stat(path); err == nil {
				return path, nil
			}
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if !logged {
			log.Info().Str("log_class", f.class.Name).Str("path", f.class.Path).Msg("Waiting for log file to appear")
			logged = true
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.poll):
		}
	}
}

// drain publishes every complete line past the reader offset. A trailing
// partial line is left unread.
func (f *FileFollower) drain(ctx context.Context, r *logreader.FileReader, cp *checkpointer, publish func(domain.TypedEvent)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !line.Complete {
			return r.Seek(line.Start)
		}

		ev, ok := f.fp.Classify(domain.Plain(line.Text))
		if ok {
			publish(ev)
		}
		cp.advance(ctx, domain.NewManualCursor(ev.Timestamp, line.Text, uint64(line.End)))
	}
}

// check handles truncation in place and reopens the path after rotation.
// It returns r itself when the handle is still current.
func (f *FileFollower) check(ctx context.Context, r *logreader.FileReader) (*logreader.FileReader, error) {
	cur, err := r.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat open file: %w", err)
	}
	path, err := logreader.ResolveFlatFile(f.class.Path)
	var info os.FileInfo
	if err == nil {
		info, err = os.Stat(path)
	}

	if err == nil && os.SameFile(cur, info) {
		if info.Size() < r.Offset() {
			log.Info().
				Str("log_class", f.class.Name).
				Int64("size", info.Size()).
				Int64("offset", r.Offset()).
				Msg("Log file truncated, restarting from the beginning")
			if err := r.Seek(0); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	log.Info().Str("log_class", f.class.Name).Str("path", f.class.Path).Msg("Log file rotated, reopening")
	return retry.DoWithResult(ctx, f.reopen, func() (*logreader.FileReader, error) {
		p, err := logreader.ResolveFlatFile(f.class.Path)
		if err != nil {
			return nil, err
		}
		return logreader.OpenFile(p, 0)
	})
}
