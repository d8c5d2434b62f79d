package logreader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// DefaultChunkSize is the block size of backward reads
const DefaultChunkSize = 8 * 1024

// BackwardScanner yields the lines of a file most-recent-first, starting with
// the pivot line that begins at the start offset and ending with the line at
// byte 0. Chunks are read toward the head of the file on demand; the partial
// line at the front of each chunk is carried into the next read.
type BackwardScanner struct {
	r         io.ReaderAt
	chunkSize int64
	start     int64

	pivotDone bool
	pos       int64  // bytes before pos are unread
	carry     []byte // leading fragment of the last chunk, starts at pos
	queue     []Line // ready lines, most recent first
	first     bool
	done      bool
}

// NewBackwardScanner creates a scanner whose pivot line starts at start
func NewBackwardScanner(r io.ReaderAt, start int64, chunkSize int) *BackwardScanner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &BackwardScanner{
		r:         r,
		chunkSize: int64(chunkSize),
		start:     start,
		pos:       start,
		first:     true,
	}
}

// Next returns the next older line, or io.EOF once byte 0 has been emitted
func (s *BackwardScanner) Next() (Line, error) {
	if !s.pivotDone {
		s.pivotDone = true
		return s.pivot()
	}
	for len(s.queue) == 0 {
		if s.done {
			return Line{}, io.EOF
		}
		if err := s.fill(); err != nil {
			return Line{}, err
		}
	}
	l := s.queue[0]
	s.queue = s.queue[1:]
	return l, nil
}

// pivot reads the line at start forward
func (s *BackwardScanner) pivot() (Line, error) {
	br := bufio.NewReader(io.NewSectionReader(s.r, s.start, math.MaxInt64-s.start))
	text, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Line{}, fmt.Errorf("failed to read pivot line at %d: %w", s.start, err)
	}
	l := Line{Start: s.start, End: s.start + int64(len(text))}
	if strings.HasSuffix(text, "\n") {
		l.Text = text[:len(text)-1]
		l.Complete = true
	} else {
		l.Text = text
	}
	if s.start == 0 {
		s.done = true
	}
	return l, nil
}

// fill reads one chunk before pos and queues the complete lines it closes
func (s *BackwardScanner) fill() error {
	if s.pos == 0 {
		if !s.first || len(s.carry) > 0 {
			s.queue = append(s.queue, Line{
				Text:     string(s.carry),
				Start:    0,
				End:      int64(len(s.carry)) + 1,
				Complete: true,
			})
		}
		s.carry = nil
		s.done = true
		return nil
	}

	from := s.pos - s.chunkSize
	if from < 0 {
		from = 0
	}
	chunk := make([]byte, s.pos-from, s.pos-from+int64(len(s.carry)))
	if _, err := s.r.ReadAt(chunk, from); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read chunk at %d: %w", from, err)
	}
	data := append(chunk, s.carry...)
	end := s.pos + int64(len(s.carry))

	// the region before a line start always ends with the separating newline
	if s.first {
		s.first = false
		if len(data) > 0 && data[len(data)-1] == '\n' {
			data = data[:len(data)-1]
			end--
		}
	}

	// split from the back: everything after the first newline is complete
	for {
		i := lastIndexByte(data, '\n')
		if i < 0 {
			break
		}
		text := data[i+1:]
		lineStart := from + int64(i) + 1
		s.queue = append(s.queue, Line{
			Text:     string(text),
			Start:    lineStart,
			End:      end + 1,
			Complete: true,
		})
		end = from + int64(i)
		data = data[:i]
	}
	s.carry = append([]byte(nil), data...)
	s.pos = from
	return nil
}

func lastIndexByte(b []byte, c byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// ScanBackwardFile collects every line from the pivot at start back to byte 0
func ScanBackwardFile(r io.ReaderAt, start int64, chunkSize int) ([]string, error) {
	s := NewBackwardScanner(r, start, chunkSize)
	var lines []string
	for {
		l, err := s.Next()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, l.Text)
	}
}

// ScanBackward reads path most-recent-first from the line starting at start
func ScanBackward(path string, start int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()
	return ScanBackwardFile(f, start, DefaultChunkSize)
}
