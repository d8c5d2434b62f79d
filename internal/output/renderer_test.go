package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

func sampleEvent() domain.TypedEvent {
	return domain.TypedEvent{
		Timestamp: "2025-03-01T09:15:00+0000",
		LogClass:  "pkgmanager.events",
		Kind:      domain.PkgInstalled,
		Rule:      "INSTALLED",
		Fields:    map[string]string{"version": "1.2-1", "pkg_name": "htop"},
		Raw:       domain.Plain("[2025-03-01T09:15:00+0000] [ALPM] installed htop (1.2-1)"),
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONRenderer(&buf).Render(sampleEvent()); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Category  string            `json:"category"`
		EventType string            `json:"event_type"`
		LogClass  string            `json:"log_class"`
		Data      map[string]string `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}
	if got.Category != "Package" || got.EventType != "PkgInstalled" {
		t.Errorf("kind = %s/%s", got.Category, got.EventType)
	}
	if got.LogClass != "pkgmanager.events" || got.Data["pkg_name"] != "htop" {
		t.Errorf("unexpected event %+v", got)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", buf.String())
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)
	if err := r.Render(sampleEvent()); err != nil {
		t.Fatal(err)
	}
	line := buf.String()
	for _, want := range []string{"2025-03-01T09:15:00+0000", "Package/PkgInstalled", "pkg_name=htop version=1.2-1", "| [2025-03-01"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q lacks %q", line, want)
		}
	}

	buf.Reset()
	journal := domain.TypedEvent{
		LogClass: "sshd.events",
		Kind:     domain.AuthFailure,
		Rule:     "FAILED_PASSWORD_SSH",
		Fields:   map[string]string{"user": "root", "note": "two words"},
		Raw:      domain.Structured(map[string]string{"MESSAGE": "Failed password for root"}),
	}
	if err := r.Render(journal); err != nil {
		t.Fatal(err)
	}
	line = buf.String()
	for _, want := range []string{"Auth/Failure", `note="two words"`, "| Failed password for root"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q lacks %q", line, want)
		}
	}
	if !strings.HasPrefix(line, "-") {
		t.Errorf("missing timestamp placeholder: %q", line)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	if r, err := New("JSON", &buf); err != nil {
		t.Fatal(err)
	} else if _, ok := r.(*JSONRenderer); !ok {
		t.Errorf("New(JSON) = %T", r)
	}
	if r, err := New("", &buf); err != nil {
		t.Fatal(err)
	} else if _, ok := r.(*TextRenderer); !ok {
		t.Errorf("New(\"\") = %T", r)
	}
	if _, err := New("yaml", &buf); err == nil {
		t.Error("unknown format should fail")
	}
}
