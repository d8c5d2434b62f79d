package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	journalCursorPrefix = "Journal:"
	manualCursorPrefix  = "Manual:"
)

// Cursor is a resumable position in a log class stream.
// Either a JournalCursor or a ManualCursor, never both.
type Cursor interface {
	isCursor()
}

// JournalCursor is an opaque token produced by the journal backend
type JournalCursor struct {
	Token string
}

// ManualCursor addresses a flat file. Offset points just past the last
// consumed line; Data and Timestamp fingerprint that line.
type ManualCursor struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
	Offset    uint64 `json:"offset"`
}

func (JournalCursor) isCursor() {}
func (ManualCursor) isCursor()  {}

// NewManualCursor builds the cursor of a flat-file line ending at offset.
// The fingerprint fields are stored in their Fingerprint form.
func NewManualCursor(timestamp, line string, offset uint64) ManualCursor {
	return ManualCursor{
		Timestamp: Fingerprint(timestamp),
		Data:      Fingerprint(line),
		Offset:    offset,
	}
}

// Fingerprint returns text with invalid UTF-8 replaced by U+FFFD, the only
// form a JSON token can carry unchanged
func Fingerprint(text string) string {
	return strings.ToValidUTF8(text, "\uFFFD")
}

// RenderCursor encodes a cursor into its wire token
func RenderCursor(c Cursor) (string, error) {
	switch cur := c.(type) {
	case JournalCursor:
		if cur.Token == "" {
			return "", fmt.Errorf("%w: empty journal token", ErrInvalidCursor)
		}
		return journalCursorPrefix + cur.Token, nil
	case ManualCursor:
		if !utf8.ValidString(cur.Timestamp) || !utf8.ValidString(cur.Data) {
			return "", fmt.Errorf("%w: manual cursor holds invalid UTF-8", ErrInvalidCursor)
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(cur); err != nil {
			return "", fmt.Errorf("failed to encode manual cursor: %w", err)
		}
		return manualCursorPrefix + strings.TrimSuffix(buf.String(), "\n"), nil
	case nil:
		return "", fmt.Errorf("%w: nil cursor", ErrInvalidCursor)
	default:
		return "", fmt.Errorf("%w: unsupported cursor type %T", ErrInvalidCursor, c)
	}
}

// ParseCursor decodes a wire token produced by RenderCursor
func ParseCursor(token string) (Cursor, error) {
	switch {
	case strings.HasPrefix(token, journalCursorPrefix):
		t := strings.TrimPrefix(token, journalCursorPrefix)
		if t == "" {
			return nil, fmt.Errorf("%w: empty journal token", ErrInvalidCursor)
		}
		return JournalCursor{Token: t}, nil

	case strings.HasPrefix(token, manualCursorPrefix):
		var aux struct {
			Timestamp *string `json:"timestamp"`
			Data      *string `json:"data"`
			Offset    *uint64 `json:"offset"`
		}
		dec := json.NewDecoder(strings.NewReader(strings.TrimPrefix(token, manualCursorPrefix)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&aux); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: trailing data after manual cursor", ErrInvalidCursor)
		}
		if aux.Timestamp == nil || aux.Data == nil || aux.Offset == nil {
			return nil, fmt.Errorf("%w: manual cursor requires timestamp, data and offset", ErrInvalidCursor)
		}
		return ManualCursor{Timestamp: *aux.Timestamp, Data: *aux.Data, Offset: *aux.Offset}, nil

	default:
		return nil, fmt.Errorf("%w: unknown cursor prefix", ErrInvalidCursor)
	}
}
