package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

const pkgClass = "pkgmanager.events"

type frame struct {
	event string
	data  string
}

type wireEvent struct {
	EventType string            `json:"event_type"`
	Rule      string            `json:"rule"`
	Data      map[string]string `json:"data"`
}

func pkgLine(i int) string {
	return fmt.Sprintf("[2025-02-0%dT08:30:00+0000] [ALPM] installed tool%d (2.%d-1)", i%9+1, i, i)
}

func newTestServer(t *testing.T, lines int) (*httptest.Server, *livetail.Broadcaster, string) {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= lines; i++ {
		sb.WriteString(pkgLine(i))
		sb.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "pacman.log")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.New(
		registry.LogClassConfig{Name: pkgClass, Table: rules.Pkg, Backend: registry.BackendFlatFile, Path: path},
		registry.LogClassConfig{
			Name:    "sshd.events",
			Table:   rules.SSHD,
			Backend: registry.BackendJournal,
			Matches: []logreader.Match{{Field: "_COMM", Value: "sshd"}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	mem := logreader.NewMemJournal()
	b := livetail.NewBroadcaster(100)
	srv, err := NewServer(0, reg, pagination.New(reg, mem.Opener(), pagination.Options{MaxLimit: 500}), livetail.NewHub(reg, b, nil))
	if err != nil {
		t.Fatal(err)
	}
	srv.keepAlive = 50 * time.Millisecond

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, b, path
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var out []frame
	for _, block := range strings.Split(body, "\n\n") {
		if block == "" {
			continue
		}
		var f frame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
		if f.event != "" {
			out = append(out, f)
		}
	}
	return out
}

// drain fetches one page and returns its cursor token and package names
func drain(t *testing.T, ts *httptest.Server, endpoint string, params url.Values) (*string, []string) {
	t.Helper()
	resp, err := http.Get(ts.URL + endpoint + "?" + params.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s status = %d: %s", endpoint, resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	frames := parseFrames(t, string(body))
	if len(frames) == 0 || frames[0].event != "cursor" {
		t.Fatalf("first frame must be the cursor, got %+v", frames)
	}
	var c struct {
		Cursor *string `json:"cursor"`
	}
	if err := json.Unmarshal([]byte(frames[0].data), &c); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range frames[1:] {
		if f.event != "log" {
			t.Fatalf("unexpected frame %q", f.event)
		}
		var ev wireEvent
		if err := json.Unmarshal([]byte(f.data), &ev); err != nil {
			t.Fatal(err)
		}
		names = append(names, ev.Data["pkg_name"])
	}
	return c.Cursor, names
}

func TestDrainEndpoints(t *testing.T) {
	ts, _, _ := newTestServer(t, 6)

	cursor, names := drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}, "limit": {"2"}})
	if strings.Join(names, ",") != "tool1,tool2" {
		t.Fatalf("drain = %v", names)
	}
	if cursor == nil {
		t.Fatal("drain returned no cursor")
	}

	cursor, names = drain(t, ts, "/drain_older", url.Values{"event_name": {pkgClass}, "limit": {"3"}, "cursor": {*cursor}})
	if strings.Join(names, ",") != "tool3,tool4,tool5" {
		t.Fatalf("drain_older = %v", names)
	}

	_, names = drain(t, ts, "/drain_previous", url.Values{"event_name": {pkgClass}, "limit": {"2"}, "cursor": {*cursor}})
	if strings.Join(names, ",") != "tool5,tool4" {
		t.Fatalf("drain_previous = %v", names)
	}
}

func TestDrainFilters(t *testing.T) {
	ts, _, _ := newTestServer(t, 12)

	_, names := drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}, "limit": {"50"}, "query": {"TOOL1"}})
	if strings.Join(names, ",") != "tool1,tool10,tool11,tool12" {
		t.Errorf("keyword drain = %v", names)
	}

	_, names = drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}, "limit": {"50"}, "event_type": {"PkgRemoved"}})
	if len(names) != 0 {
		t.Errorf("event_type drain = %v, want nothing", names)
	}
}

func TestDrainEmptyClass(t *testing.T) {
	ts, _, _ := newTestServer(t, 0)

	cursor, names := drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}})
	if cursor != nil || len(names) != 0 {
		t.Errorf("empty drain = %v %v", cursor, names)
	}
}

func TestErrorStatus(t *testing.T) {
	ts, _, path := newTestServer(t, 3)

	stale, err := domain.RenderCursor(domain.ManualCursor{Offset: 5, Data: "nothing like this"})
	if err != nil {
		t.Fatal(err)
	}
	journalCursor, err := domain.RenderCursor(domain.JournalCursor{Token: "s=1"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing class", "/drain", http.StatusBadRequest},
		{"unknown class", "/drain?event_name=nope.events", http.StatusNotFound},
		{"bad limit", "/drain?event_name=" + pkgClass + "&limit=many", http.StatusBadRequest},
		{"zero limit", "/drain?event_name=" + pkgClass + "&limit=0", http.StatusBadRequest},
		{"older without cursor", "/drain_older?event_name=" + pkgClass, http.StatusBadRequest},
		{"garbage cursor", "/drain_older?event_name=" + pkgClass + "&cursor=%25%25", http.StatusBadRequest},
		{"wrong backend cursor", "/drain_older?event_name=" + pkgClass + "&cursor=" + url.QueryEscape(journalCursor), http.StatusBadRequest},
		{"stale cursor", "/drain_older?event_name=" + pkgClass + "&cursor=" + url.QueryEscape(stale), http.StatusConflict},
		{"live unknown class", "/live?event_name=nope.events", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body["error"] == "" {
				t.Error("error message missing")
			}
		})
	}

	// a vanished file reads as empty, but a cursor into it no longer holds
	first, _ := drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}, "limit": {"1"}})
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	cursor, names := drain(t, ts, "/drain", url.Values{"event_name": {pkgClass}})
	if cursor != nil || len(names) != 0 {
		t.Errorf("drain of a missing file = %v %v", cursor, names)
	}
	resp, err := http.Get(ts.URL + "/drain_older?event_name=" + pkgClass + "&cursor=" + url.QueryEscape(*first))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("cursor into a missing file: status = %d, want 409", resp.StatusCode)
	}
}

func liveEvent(name string) domain.TypedEvent {
	return domain.TypedEvent{
		LogClass: pkgClass,
		Kind:     domain.PkgInstalled,
		Rule:     "INSTALLED",
		Fields:   map[string]string{"pkg_name": name},
		Raw:      domain.Plain("installed " + name),
	}
}

func TestLiveSSE(t *testing.T) {
	ts, b, _ := newTestServer(t, 0)

	// buffered before anyone listens
	b.Publish(pkgClass, liveEvent("early"))

	resp, err := http.Get(ts.URL + "/live?event_name=" + pkgClass + "&query=ly")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	b.Publish(pkgClass, liveEvent("skipped"))
	b.Publish(pkgClass, liveEvent("lately"))

	r := bufio.NewReader(resp.Body)
	var got []string
	sawKeepAlive := false
	deadline := time.Now().Add(5 * time.Second)
	for (len(got) < 2 || !sawKeepAlive) && time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		switch {
		case strings.HasPrefix(line, ": keep-alive"):
			sawKeepAlive = true
		case strings.HasPrefix(line, "data: "):
			var ev wireEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatal(err)
			}
			got = append(got, ev.Data["pkg_name"])
		}
	}
	if strings.Join(got, ",") != "early,lately" {
		t.Errorf("live events = %v", got)
	}
	if !sawKeepAlive {
		t.Error("no keep-alive comment")
	}
}

func TestLiveWebSocket(t *testing.T) {
	ts, b, _ := newTestServer(t, 0)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?event_name=" + pkgClass
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	b.Publish(pkgClass, liveEvent("first"))
	b.Publish(pkgClass, liveEvent("second"))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range []string{"first", "second"} {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatal(err)
		}
		if ev.Data["pkg_name"] != want || ev.EventType != "PkgInstalled" {
			t.Errorf("received %+v, want %s", ev, want)
		}
	}

	if _, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?event_name=nope.events", nil); err == nil {
		t.Error("unknown class should fail the handshake")
	}
}

func TestClassesAndHealth(t *testing.T) {
	ts, b, _ := newTestServer(t, 0)
	b.Publish(pkgClass, liveEvent("queued"))

	resp, err := http.Get(ts.URL + "/classes")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var classes []classInfo
	if err := json.NewDecoder(resp.Body).Decode(&classes); err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[0].Name != pkgClass || classes[1].Name != "sshd.events" {
		t.Fatalf("classes = %+v", classes)
	}
	if classes[0].Backend != "flatfile" || classes[0].Buffered != 1 || len(classes[0].EventTypes) == 0 ||
		classes[0].Dropped != 0 || classes[0].Missed != 0 {
		t.Errorf("pkg class = %+v", classes[0])
	}

	health, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", health.StatusCode)
	}
}
