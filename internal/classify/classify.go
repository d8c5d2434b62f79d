// Package classify turns raw records into typed events by walking a rule table.
package classify

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

// Journal timestamp fields, in order of preference
const (
	SyslogTimestampField   = "SYSLOG_TIMESTAMP"
	SourceRealtimeField    = "_SOURCE_REALTIME_TIMESTAMP"
	RealtimeTimestampField = "__REALTIME_TIMESTAMP"
)

// TimeLayout is the display format for epoch journal timestamps
const TimeLayout = "2006-01-02 15:04:05"

// Classifier applies a (possibly pre-filtered) rule table for one log class.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	class string
	table *rules.Table
	rules []rules.Rule
}

// New builds a classifier for class. requested narrows the table to the rules
// selected by those event names; an empty request keeps the whole table.
func New(class string, table *rules.Table, requested []string) *Classifier {
	return &Classifier{
		class: class,
		table: table,
		rules: table.Select(table.Expand(requested)),
	}
}

// Classify is a one-shot helper around New(...).Classify
func Classify(class string, table *rules.Table, rec domain.RawRecord, requested []string) (domain.TypedEvent, bool) {
	return New(class, table, requested).Classify(rec)
}

// Class returns the log class name events are stamped with
func (c *Classifier) Class() string {
	return c.class
}

// Classify returns the event produced by the first matching rule.
// It yields nothing when the record has no message or no selected rule matches.
func (c *Classifier) Classify(rec domain.RawRecord) (domain.TypedEvent, bool) {
	msg, ok := rec.Message()
	if !ok {
		return domain.TypedEvent{}, false
	}
	if c.table.TrimMessage {
		msg = strings.TrimSpace(msg)
	}

	for _, r := range c.rules {
		loc := r.Pattern.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}

		fields := make(map[string]string, len(r.Fields))
		for _, f := range r.Fields {
			if v, ok := group(msg, loc, f.Index); ok {
				fields[f.Name] = v
			}
		}

		var ts string
		if rec.IsPlain() {
			if r.TimestampGroup > 0 {
				ts, _ = group(msg, loc, r.TimestampGroup)
			}
		} else {
			ts = JournalTimestamp(rec)
		}

		return domain.TypedEvent{
			Timestamp: ts,
			LogClass:  c.class,
			Kind:      r.Kind,
			Rule:      r.Name,
			Fields:    fields,
			Raw:       rec,
		}, true
	}
	return domain.TypedEvent{}, false
}

// group returns capture i when it took part in the match
func group(s string, loc []int, i int) (string, bool) {
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return "", false
	}
	return s[loc[2*i]:loc[2*i+1]], true
}

// JournalTimestamp picks the display timestamp of a structured record:
// the syslog timestamp when present, otherwise an epoch field rendered in local time.
func JournalTimestamp(rec domain.RawRecord) string {
	if v, ok := rec.Field(SyslogTimestampField); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	for _, name := range []string{SourceRealtimeField, RealtimeTimestampField} {
		v, ok := rec.Field(name)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		return FormatEpoch(n)
	}
	return ""
}

// FormatEpoch renders an epoch value whose unit is inferred from its magnitude
// (microseconds, milliseconds or seconds)
func FormatEpoch(n int64) string {
	var t time.Time
	switch {
	case n >= 1e15:
		t = time.UnixMicro(n)
	case n >= 1e12:
		t = time.UnixMilli(n)
	default:
		t = time.Unix(n, 0)
	}
	return t.Local().Format(TimeLayout)
}

// MatchesKeyword reports whether the raw record contains keyword, ignoring case.
// An empty keyword matches everything.
func MatchesKeyword(rec domain.RawRecord, keyword string) bool {
	return rec.ContainsFold(keyword)
}

// Result is the outcome for one record of a batch
type Result struct {
	Event domain.TypedEvent
	OK    bool
}

// Batch classifies records in parallel and returns results in input order.
// workers <= 0 means GOMAXPROCS.
func (c *Classifier) Batch(ctx context.Context, recs []domain.RawRecord, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Result, len(recs))
	if len(recs) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, ok := c.Classify(recs[i])
			out[i] = Result{Event: ev, OK: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
