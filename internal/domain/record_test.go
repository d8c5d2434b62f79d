package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRawRecordMessage(t *testing.T) {
	tests := []struct {
		name   string
		record RawRecord
		want   string
		wantOK bool
	}{
		{"plain", Plain("hello"), "hello", true},
		{"plain empty", Plain(""), "", true},
		{"structured", Structured(map[string]string{"MESSAGE": "Accepted", "_COMM": "sshd"}), "Accepted", true},
		{"structured without message", Structured(map[string]string{"_COMM": "sshd"}), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.record.Message()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Message() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRawRecordContainsFold(t *testing.T) {
	structured := Structured(map[string]string{
		"MESSAGE":   "Accepted publickey for alice",
		"_HOSTNAME": "Bastion-01",
	})

	tests := []struct {
		name    string
		record  RawRecord
		keyword string
		want    bool
	}{
		{"empty keyword matches", Plain("x"), "", true},
		{"plain case-insensitive", Plain("Installed FOO"), "foo", true},
		{"plain miss", Plain("installed foo"), "bar", false},
		{"structured message", structured, "ALICE", true},
		{"structured other field", structured, "bastion", true},
		{"structured miss", structured, "bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.ContainsFold(tt.keyword); got != tt.want {
				t.Errorf("ContainsFold(%q) = %v, want %v", tt.keyword, got, tt.want)
			}
		})
	}
}

func TestTypedEventJSON(t *testing.T) {
	ev := TypedEvent{
		Timestamp: "Jan 02 10:00:00",
		LogClass:  "sshd.events",
		Kind:      AuthSuccess,
		Rule:      "AUTH_SUCCESS",
		Fields:    map[string]string{"user": "alice"},
		Raw:       Structured(map[string]string{"MESSAGE": "Accepted password for alice"}),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Category  string            `json:"category"`
		EventType string            `json:"event_type"`
		Data      map[string]string `json:"data"`
		RawMsg    RawRecord         `json:"raw_msg"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Category != "Auth" || decoded.EventType != "Success" {
		t.Errorf("kind = %s/%s, want Auth/Success", decoded.Category, decoded.EventType)
	}
	if decoded.Data["user"] != "alice" {
		t.Errorf("data[user] = %q, want alice", decoded.Data["user"])
	}
	if msg, _ := decoded.RawMsg.Message(); !strings.HasPrefix(msg, "Accepted") {
		t.Errorf("raw message = %q", msg)
	}
}
