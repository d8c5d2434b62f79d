package pagination

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

// lineReader is satisfied by both forward and backward line readers
type lineReader interface {
	Next() (logreader.Line, error)
}

type fileSource struct {
	lines   lineReader
	fp      *classify.Classifier
	closers []io.Closer
	// a forward read stops at an unterminated last line: it may still be growing
	forward bool
	pending *logreader.Line
	done    bool
}

func newFileSource(class *registry.LogClassConfig, req Request) (source, error) {
	var mc domain.ManualCursor
	if req.Mode != Initial {
		c, ok := req.Cursor.(domain.ManualCursor)
		if !ok {
			return nil, fmt.Errorf("%w: log class %s expects a manual cursor", domain.ErrInvalidCursor, class.Name)
		}
		mc = c
	}

	src := &fileSource{fp: classify.New(class.Name, class.Table, nil)}
	path, err := logreader.ResolveFlatFile(class.Path)
	if errors.Is(err, os.ErrNotExist) {
		if req.Mode == Initial {
			src.done = true
			return src, nil
		}
		return nil, mismatch(class.Path, mc, "file is missing", "")
	}
	if err != nil {
		return nil, err
	}

	if req.Mode == Initial {
		r, err := logreader.OpenFile(path, 0)
		if errors.Is(err, os.ErrNotExist) {
			src.done = true
			return src, nil
		}
		if err != nil {
			return nil, err
		}
		src.lines, src.forward = r, true
		src.closers = append(src.closers, r)
		return src, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, mismatch(path, mc, "file is missing", "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	src.closers = append(src.closers, f)

	pivot, err := verify(f, path, mc, src.fp)
	if err != nil {
		src.close()
		return nil, err
	}

	if req.Mode == Older {
		r, err := logreader.OpenFile(path, pivot.End)
		if err != nil {
			src.close()
			return nil, err
		}
		src.lines, src.forward = r, true
		src.closers = append(src.closers, r)
		return src, nil
	}

	bs := logreader.NewBackwardScanner(f, pivot.Start, logreader.DefaultChunkSize)
	first, err := bs.Next()
	if err != nil {
		src.close()
		return nil, fmt.Errorf("failed to scan %s backward: %w", path, err)
	}
	if domain.Fingerprint(first.Text) != mc.Data {
		src.close()
		return nil, mismatch(path, mc, "pivot line differs", first.Text)
	}
	src.lines = bs
	src.pending = &first
	return src, nil
}

// VerifyManualCursor checks that the line of path ending at the cursor offset
// still carries the cursor fingerprint and returns that line. fp must be an
// unfiltered classifier of the file's log class.
func VerifyManualCursor(path string, fp *classify.Classifier, mc domain.ManualCursor) (logreader.Line, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return logreader.Line{}, mismatch(path, mc, "file is missing", "")
	}
	if err != nil {
		return logreader.Line{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return verify(f, path, mc, fp)
}

func verify(f *os.File, path string, mc domain.ManualCursor, fp *classify.Classifier) (logreader.Line, error) {
	info, err := f.Stat()
	if err != nil {
		return logreader.Line{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if mc.Offset > uint64(info.Size()) {
		return logreader.Line{}, mismatch(path, mc, "offset past end of file", "")
	}
	line, ok, err := logreader.LineEndingAt(f, info.Size(), int64(mc.Offset))
	if err != nil {
		return logreader.Line{}, err
	}
	if !ok {
		return logreader.Line{}, mismatch(path, mc, "offset is not at a line boundary", "")
	}
	if domain.Fingerprint(line.Text) != mc.Data {
		return logreader.Line{}, mismatch(path, mc, "line text differs", line.Text)
	}
	if ts := domain.Fingerprint(Timestamp(fp, line.Text)); ts != mc.Timestamp {
		return logreader.Line{}, &domain.CursorMismatchError{
			Path: path, Offset: mc.Offset, Reason: "timestamp differs",
			Expected: mc.Timestamp, Actual: ts,
		}
	}
	return line, nil
}

func mismatch(path string, mc domain.ManualCursor, reason, actual string) error {
	return &domain.CursorMismatchError{
		Path:     path,
		Offset:   mc.Offset,
		Reason:   reason,
		Expected: mc.Data,
		Actual:   actual,
	}
}

// Timestamp is the fingerprint timestamp of a line: what the unfiltered
// classifier extracts, so it does not depend on a request's event filter
func Timestamp(fp *classify.Classifier, text string) string {
	ev, ok := fp.Classify(domain.Plain(text))
	if !ok {
		return ""
	}
	return ev.Timestamp
}

func (s *fileSource) next(n int) ([]item, error) {
	if s.done {
		return nil, nil
	}
	items := make([]item, 0, n)
	for len(items) < n {
		var line logreader.Line
		if s.pending != nil {
			line, s.pending = *s.pending, nil
		} else {
			l, err := s.lines.Next()
			if errors.Is(err, io.EOF) {
				s.done = true
				break
			}
			if err != nil {
				return nil, err
			}
			line = l
		}
		if s.forward && !line.Complete {
			s.done = true
			break
		}
		items = append(items, item{
			rec: domain.Plain(line.Text),
			cursor: domain.NewManualCursor(Timestamp(s.fp, line.Text), line.Text, uint64(line.End)),
		})
	}
	return items, nil
}

func (s *fileSource) close() {
	for _, c := range s.closers {
		c.Close()
	}
}
