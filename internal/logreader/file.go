package logreader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Line is one line of a flat file. End is the offset just past the line,
// including its newline when present.
type Line struct {
	Text     string
	Start    int64
	End      int64
	Complete bool // false when the line is not (yet) newline-terminated
}

// FileReader reads a flat file forward, line by line, tracking byte offsets
type FileReader struct {
	path   string
	file   *os.File
	reader *bufio.Reader
	offset int64
}

// OpenFile opens path positioned at offset
func OpenFile(path string, offset int64) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	r := &FileReader{path: path, file: f}
	if err := r.Seek(offset); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Seek repositions the reader, discarding buffered data
func (r *FileReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek %s to %d: %w", r.path, offset, err)
	}
	r.offset = offset
	r.reader = bufio.NewReaderSize(r.file, 64*1024)
	return nil
}

// Next returns the next line. A trailing fragment without a newline is
// returned once with Complete == false; after that Next returns io.EOF.
func (r *FileReader) Next() (Line, error) {
	s, err := r.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Line{}, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	if s == "" {
		return Line{}, io.EOF
	}

	line := Line{Start: r.offset, End: r.offset + int64(len(s))}
	r.offset = line.End
	if strings.HasSuffix(s, "\n") {
		line.Text = s[:len(s)-1]
		line.Complete = true
	} else {
		line.Text = s
	}
	return line, nil
}

// Offset returns the offset of the next unread byte
func (r *FileReader) Offset() int64 {
	return r.offset
}

// Path returns the file path
func (r *FileReader) Path() string {
	return r.path
}

// Stat returns the current file info of the open handle
func (r *FileReader) Stat() (os.FileInfo, error) {
	return r.file.Stat()
}

// Close releases the file
func (r *FileReader) Close() error {
	return r.file.Close()
}

// LineEndingAt returns the line that ends exactly at offset end: just past
// its newline, or at end of file for a final unterminated line.
// It returns false when end is not a line boundary of the file.
func LineEndingAt(r io.ReaderAt, size, end int64) (Line, bool, error) {
	if end <= 0 || end > size {
		return Line{}, false, nil
	}
	b := make([]byte, 1)
	if _, err := r.ReadAt(b, end-1); err != nil {
		return Line{}, false, fmt.Errorf("failed to read at %d: %w", end-1, err)
	}
	textEnd := end
	complete := b[0] == '\n'
	if complete {
		textEnd = end - 1
	} else if end != size {
		return Line{}, false, nil
	}

	// walk back to the previous newline
	var (
		parts [][]byte
		start = textEnd
		chunk = make([]byte, DefaultChunkSize)
	)
	for start > 0 {
		from := start - int64(len(chunk))
		if from < 0 {
			from = 0
		}
		buf := chunk[:start-from]
		if _, err := r.ReadAt(buf, from); err != nil && !errors.Is(err, io.EOF) {
			return Line{}, false, fmt.Errorf("failed to read at %d: %w", from, err)
		}
		if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
			parts = append(parts, append([]byte(nil), buf[i+1:]...))
			start = from + int64(i) + 1
			break
		}
		parts = append(parts, append([]byte(nil), buf...))
		start = from
	}

	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.Write(parts[i])
	}
	return Line{Text: sb.String(), Start: start, End: end, Complete: complete}, true, nil
}
