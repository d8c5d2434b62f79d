package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MessageField is the journal field carrying the log message
const MessageField = "MESSAGE"

// RawRecord is one unit of log data before classification.
// A structured record is a journal entry (field name -> value),
// a plain record is one flat-file line without its trailing newline.
type RawRecord struct {
	fields map[string]string
	line   string
	plain  bool
}

// Structured wraps a journal entry
func Structured(fields map[string]string) RawRecord {
	return RawRecord{fields: fields}
}

// Plain wraps a single flat-file line
func Plain(line string) RawRecord {
	return RawRecord{line: line, plain: true}
}

// IsPlain reports whether the record came from a flat file
func (r RawRecord) IsPlain() bool {
	return r.plain
}

// Line returns the plain line (empty for structured records)
func (r RawRecord) Line() string {
	return r.line
}

// Field returns a structured field value
func (r RawRecord) Field(name string) (string, bool) {
	if r.plain {
		return "", false
	}
	v, ok := r.fields[name]
	return v, ok
}

// Fields returns the structured fields. The map must not be modified.
func (r RawRecord) Fields() map[string]string {
	return r.fields
}

// Message returns the text rules are matched against.
// Structured records without a MESSAGE field have no message.
func (r RawRecord) Message() (string, bool) {
	if r.plain {
		return r.line, true
	}
	return r.Field(MessageField)
}

// ContainsFold reports whether keyword occurs (case-insensitively) in the plain
// line or in any structured field value. The whole record is searched, not only
// the fields a rule extracted.
func (r RawRecord) ContainsFold(keyword string) bool {
	if keyword == "" {
		return true
	}
	needle := strings.ToLower(keyword)
	if r.plain {
		return strings.Contains(strings.ToLower(r.line), needle)
	}
	for _, v := range r.fields {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

type rawRecordJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the record as {"type": "Structured"|"Plain", "value": ...}
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var (
		value []byte
		err   error
		kind  = "Structured"
	)
	if r.plain {
		kind = "Plain"
		value, err = json.Marshal(r.line)
	} else {
		fields := r.fields
		if fields == nil {
			fields = map[string]string{}
		}
		value, err = json.Marshal(fields)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawRecordJSON{Type: kind, Value: value})
}

// UnmarshalJSON decodes the form produced by MarshalJSON
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var aux rawRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch aux.Type {
	case "Plain":
		var line string
		if err := json.Unmarshal(aux.Value, &line); err != nil {
			return fmt.Errorf("failed to decode plain record: %w", err)
		}
		*r = Plain(line)
	case "Structured":
		var fields map[string]string
		if err := json.Unmarshal(aux.Value, &fields); err != nil {
			return fmt.Errorf("failed to decode structured record: %w", err)
		}
		*r = Structured(fields)
	default:
		return fmt.Errorf("unknown record type %q", aux.Type)
	}
	return nil
}

// String renders the record for terminal output
func (r RawRecord) String() string {
	if r.plain {
		return r.line
	}
	if msg, ok := r.fields[MessageField]; ok {
		return msg
	}
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.fields[k])
	}
	return strings.Join(parts, " ")
}
