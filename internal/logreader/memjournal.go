package logreader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemJournal is an in-memory journal store. Each Open returns an independent
// handle, so it can stand in for the system journal in tests and fixtures.
type MemJournal struct {
	mu      sync.RWMutex
	entries []map[string]string
	notify  chan struct{}
	id      string
}

// NewMemJournal creates an empty store
func NewMemJournal() *MemJournal {
	return &MemJournal{
		notify: make(chan struct{}),
		id:     strconv.FormatInt(time.Now().UnixNano(), 36),
	}
}

// Append adds an entry. __REALTIME_TIMESTAMP is filled in when missing.
func (m *MemJournal) Append(fields map[string]string) {
	e := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		e[k] = v
	}
	if _, ok := e["__REALTIME_TIMESTAMP"]; !ok {
		e["__REALTIME_TIMESTAMP"] = strconv.FormatInt(time.Now().UnixMicro(), 10)
	}

	m.mu.Lock()
	m.entries = append(m.entries, e)
	close(m.notify)
	m.notify = make(chan struct{})
	m.mu.Unlock()
}

// Len returns the number of stored entries
func (m *MemJournal) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Opener returns a JournalOpener over this store
func (m *MemJournal) Opener() JournalOpener {
	return func() (Journal, error) {
		return &memHandle{store: m, pos: -1}, nil
	}
}

type memTerm struct {
	field, value string
}

// memHandle mimics sd-journal positioning: pos is the current entry,
// and after a seek landing holds the index the next step arrives at.
type memHandle struct {
	store   *MemJournal
	groups  [][]memTerm
	pending []memTerm
	pos     int
	landing int
	seeking bool
	closed  bool
}

func (h *memHandle) cursorFor(i int) string {
	return fmt.Sprintf("s=%s;i=%x", h.store.id, i)
}

func (h *memHandle) parseCursor(c string) (int, error) {
	prefix := "s=" + h.store.id + ";i="
	if !strings.HasPrefix(c, prefix) {
		return 0, fmt.Errorf("cursor %q does not belong to this journal", c)
	}
	i, err := strconv.ParseInt(strings.TrimPrefix(c, prefix), 16, 64)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("malformed cursor %q", c)
	}
	return int(i), nil
}

func (h *memHandle) AddMatch(field, value string) error {
	if field == "" {
		return fmt.Errorf("empty match field")
	}
	h.pending = append(h.pending, memTerm{field: field, value: value})
	return nil
}

func (h *memHandle) AddDisjunction() error {
	if len(h.pending) > 0 {
		h.groups = append(h.groups, h.pending)
		h.pending = nil
	}
	return nil
}

// matches applies sd-journal filter semantics: within a group, terms on the
// same field are ORed and different fields are ANDed; groups are ORed.
func (h *memHandle) matches(e map[string]string) bool {
	groups := h.groups
	if len(h.pending) > 0 {
		groups = append(groups[:len(groups):len(groups)], h.pending)
	}
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		byField := make(map[string]bool)
		for _, t := range g {
			if _, seen := byField[t.field]; !seen {
				byField[t.field] = false
			}
			if e[t.field] == t.value {
				byField[t.field] = true
			}
		}
		ok := true
		for _, hit := range byField {
			ok = ok && hit
		}
		if ok {
			return true
		}
	}
	return false
}

func (h *memHandle) SeekHead() error {
	h.pos, h.seeking = -1, false
	return nil
}

func (h *memHandle) SeekTail() error {
	h.store.mu.RLock()
	h.pos, h.seeking = len(h.store.entries), false
	h.store.mu.RUnlock()
	return nil
}

func (h *memHandle) SeekCursor(cursor string) error {
	i, err := h.parseCursor(cursor)
	if err != nil {
		return err
	}
	h.landing, h.seeking = i, true
	return nil
}

func (h *memHandle) SeekRealtime(t time.Time) error {
	usec := t.UnixMicro()
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	h.pos, h.seeking = len(h.store.entries)-1, false
	for i, e := range h.store.entries {
		ts, _ := strconv.ParseInt(e["__REALTIME_TIMESTAMP"], 10, 64)
		if ts >= usec {
			h.pos = i - 1
			break
		}
	}
	return nil
}

func (h *memHandle) Next() (bool, error) {
	if h.closed {
		return false, fmt.Errorf("journal closed")
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	start := h.pos + 1
	if h.seeking {
		start = h.landing
	}
	for i := start; i < len(h.store.entries); i++ {
		if h.matches(h.store.entries[i]) {
			h.pos, h.seeking = i, false
			return true, nil
		}
	}
	if h.seeking {
		h.pos, h.seeking = start-1, false
	}
	return false, nil
}

func (h *memHandle) Previous() (bool, error) {
	if h.closed {
		return false, fmt.Errorf("journal closed")
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	start := h.pos - 1
	if h.seeking {
		start = h.landing
	}
	if start >= len(h.store.entries) {
		start = len(h.store.entries) - 1
	}
	for i := start; i >= 0; i-- {
		if h.matches(h.store.entries[i]) {
			h.pos, h.seeking = i, false
			return true, nil
		}
	}
	if h.seeking {
		h.pos, h.seeking = start+1, false
	}
	return false, nil
}

func (h *memHandle) current() (map[string]string, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	if h.seeking || h.pos < 0 || h.pos >= len(h.store.entries) {
		return nil, fmt.Errorf("no current entry")
	}
	return h.store.entries[h.pos], nil
}

func (h *memHandle) Entry() (map[string]string, error) {
	e, err := h.current()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out, nil
}

func (h *memHandle) Cursor() (string, error) {
	if _, err := h.current(); err != nil {
		return "", err
	}
	return h.cursorFor(h.pos), nil
}

func (h *memHandle) Wait(ctx context.Context, timeout time.Duration) error {
	h.store.mu.RLock()
	ch := h.store.notify
	h.store.mu.RUnlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
	case <-timer.C:
	}
	return nil
}

func (h *memHandle) Close() error {
	h.closed = true
	return nil
}
