package livetail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/SteelMorgan/hostlog-checker/internal/classify"
	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

// runProducer starts p and returns its events and a stop function that
// waits for Run to return
func runProducer(t *testing.T, p Producer) (<-chan domain.TypedEvent, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan domain.TypedEvent, 100)
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ev domain.TypedEvent) { out <- ev })
	}()
	return out, func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("producer did not stop")
		}
	}
}

func expectField(t *testing.T, events <-chan domain.TypedEvent, field string, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case ev := <-events:
			if got := ev.Fields[field]; got != w {
				t.Fatalf("%s = %q, want %q", field, got, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s=%q", field, w)
		}
	}
}

func expectNothing(t *testing.T, events <-chan domain.TypedEvent) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func newStore(t *testing.T) offset.CheckpointStore {
	t.Helper()
	store, err := offset.NewBoltDBStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sshdEntry(user string, at time.Time) map[string]string {
	return map[string]string{
		"_COMM":                "sshd",
		"MESSAGE":              fmt.Sprintf("Accepted publickey for %s from 10.0.0.1 port 22 ssh2", user),
		"__REALTIME_TIMESTAMP": strconv.FormatInt(at.UnixMicro(), 10),
	}
}

func TestJournalFollower(t *testing.T) {
	class := &registry.LogClassConfig{
		Name:    "sshd.events",
		Table:   rules.SSHD,
		Backend: registry.BackendJournal,
		Matches: []logreader.Match{{Field: "_COMM", Value: "sshd"}},
	}
	mem := logreader.NewMemJournal()
	store := newStore(t)
	past, future := time.Now().Add(-time.Hour), time.Now().Add(time.Hour)

	mem.Append(sshdEntry("old", past))

	events, stop := runProducer(t, NewJournalFollower(class, mem.Opener(), store))
	mem.Append(map[string]string{"_COMM": "cron", "MESSAGE": "unrelated"})
	mem.Append(sshdEntry("alice", future))
	mem.Append(sshdEntry("bob", future))
	expectField(t, events, "user", "alice", "bob")
	stop()

	cp, err := store.Get(context.Background(), "sshd.events")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cp.(domain.JournalCursor); !ok {
		t.Fatalf("checkpoint = %#v, want journal cursor", cp)
	}

	// entries written while stopped are picked up from the checkpoint
	mem.Append(sshdEntry("carol", future))
	events, stop = runProducer(t, NewJournalFollower(class, mem.Opener(), store))
	defer stop()
	expectField(t, events, "user", "carol")
	expectNothing(t, events)
}

func pacman(i int) string {
	return fmt.Sprintf("[2025-02-0%dT08:00:00+0000] [ALPM] installed pkg%d (1.%d-1)", i%9+1, i, i)
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatal(err)
	}
}

func TestFileFollower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacman.log")
	head := pacman(1) + "\n" + pacman(2) + "\n"
	if err := os.WriteFile(path, []byte(head), 0644); err != nil {
		t.Fatal(err)
	}
	class := &registry.LogClassConfig{Name: "pkgmanager.events", Table: rules.Pkg, Backend: registry.BackendFlatFile, Path: path}
	store := newStore(t)

	// a checkpoint at end of pacman(2) makes the start position deterministic
	fp := classify.New(class.Name, class.Table, nil)
	ev, _ := fp.Classify(domain.Plain(pacman(2)))
	err := store.Set(context.Background(), class.Name, domain.ManualCursor{
		Timestamp: ev.Timestamp, Data: pacman(2), Offset: uint64(len(head)),
	})
	if err != nil {
		t.Fatal(err)
	}

	events, stop := runProducer(t, NewFileFollower(class, store, 20*time.Millisecond))

	appendTo(t, path, pacman(3)+"\n"+pacman(4)[:20])
	expectField(t, events, "pkg_name", "pkg3")
	expectNothing(t, events)

	appendTo(t, path, pacman(4)[20:]+"\n")
	expectField(t, events, "pkg_name", "pkg4")

	// truncated in place
	if err := os.WriteFile(path, []byte(pacman(5)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	expectField(t, events, "pkg_name", "pkg5")

	// rotated
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(pacman(6)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	expectField(t, events, "pkg_name", "pkg6")
	stop()

	cp, err := store.Get(context.Background(), class.Name)
	if err != nil {
		t.Fatal(err)
	}
	mc, ok := cp.(domain.ManualCursor)
	if !ok || mc.Data != pacman(6) || mc.Offset != uint64(len(pacman(6))+1) {
		t.Errorf("checkpoint = %#v, want end of pkg6", cp)
	}
}

func TestFileFollowerIgnoresStaleCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacman.log")
	if err := os.WriteFile(path, []byte(pacman(1)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	class := &registry.LogClassConfig{Name: "pkgmanager.events", Table: rules.Pkg, Backend: registry.BackendFlatFile, Path: path}
	store := newStore(t)
	store.Set(context.Background(), class.Name, domain.ManualCursor{Timestamp: "x", Data: "gone", Offset: 3})

	f := NewFileFollower(class, store, 20*time.Millisecond)
	cp := newCheckpointer(store, class.Name)
	r, err := f.openInitial(context.Background(), cp)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Offset() != int64(len(pacman(1))+1) {
		t.Errorf("offset = %d, want end of file", r.Offset())
	}
}
