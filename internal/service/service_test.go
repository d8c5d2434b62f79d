package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

func testRegistry(t *testing.T, path string) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		registry.LogClassConfig{Name: "pkgmanager.events", Table: rules.Pkg, Backend: registry.BackendFlatFile, Path: path},
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
	return reg
}

func TestLiveSubscriptionStartsProducer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacman.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	reg := testRegistry(t, path)
	mem := logreader.NewMemJournal()
	b := livetail.NewBroadcaster(100)

	svc, err := NewTailService(reg, b, Options{OpenJournal: mem.Opener(), PollInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Ensure("sshd.events"); err == nil {
		t.Error("Ensure before Start should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx, false); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	hub := livetail.NewHub(reg, b, svc)
	events, err := hub.SubscribeLive(ctx, "sshd.events", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := svc.Running(); len(got) != 1 || got[0] != "sshd.events" {
		t.Fatalf("Running = %v", got)
	}

	mem.Append(map[string]string{
		"_COMM":                "sshd",
		"MESSAGE":              "Accepted password for dave from 10.1.1.1 port 2222 ssh2",
		"__REALTIME_TIMESTAMP": strconv.FormatInt(time.Now().Add(time.Hour).UnixMicro(), 10),
	})
	select {
	case ev := <-events:
		if ev.Fields["user"] != "dave" || ev.LogClass != "sshd.events" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no live event")
	}

	// a second subscription does not start a second producer
	if _, err := hub.SubscribeLive(ctx, "sshd.events", "", nil); err != nil {
		t.Fatal(err)
	}
	if got := svc.Running(); len(got) != 1 {
		t.Errorf("Running = %v", got)
	}
}

func TestEagerStartAndStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacman.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	reg := testRegistry(t, path)
	svc, err := NewTailService(reg, livetail.NewBroadcaster(10), Options{
		OpenJournal:  logreader.NewMemJournal().Opener(),
		PollInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got := svc.Running(); fmt.Sprint(got) != "[pkgmanager.events sshd.events]" {
		t.Errorf("Running = %v", got)
	}

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if err := svc.Ensure("sshd.events"); err == nil {
		t.Error("Ensure after Stop should fail")
	}
}

func TestEnsureErrors(t *testing.T) {
	reg := testRegistry(t, filepath.Join(t.TempDir(), "pacman.log"))
	svc, err := NewTailService(reg, livetail.NewBroadcaster(10), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	if err := svc.Ensure("nope"); !errors.Is(err, domain.ErrUnknownLogClass) {
		t.Errorf("Ensure(nope) = %v", err)
	}
	if err := svc.Ensure("sshd.events"); !errors.Is(err, domain.ErrJournalUnavailable) {
		t.Errorf("Ensure without journal = %v", err)
	}
}
