package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default("")
	want := []string{
		"configchange.events", "firewall.events", "kernel.events", "login.events", "network.events",
		"pkgmanager.events", "sshd.events", "sudo.events", "system.events", "userchange.events",
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	pkg, err := r.Get("pkgmanager.events")
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Backend != BackendFlatFile || pkg.Path != DefaultPkgLogPath || pkg.Table != rules.Pkg {
		t.Errorf("unexpected pkgmanager config %+v", pkg)
	}

	sshd, _ := r.Get("sshd.events")
	if len(sshd.Matches) != 4 {
		t.Errorf("sshd matches = %v", sshd.Matches)
	}

	if _, err := r.Get("nope.events"); !errors.Is(err, domain.ErrUnknownLogClass) {
		t.Errorf("Get(unknown) error = %v, want ErrUnknownLogClass", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		classes []LogClassConfig
	}{
		{"no name", []LogClassConfig{{Table: rules.SSHD, Backend: BackendFlatFile, Path: "x"}}},
		{"no table", []LogClassConfig{{Name: "a", Backend: BackendFlatFile, Path: "x"}}},
		{"journal without matches", []LogClassConfig{{Name: "a", Table: rules.SSHD}}},
		{"file without path", []LogClassConfig{{Name: "a", Table: rules.Pkg, Backend: BackendFlatFile}}},
		{"duplicate", []LogClassConfig{
			{Name: "a", Table: rules.Pkg, Backend: BackendFlatFile, Path: "x"},
			{Name: "a", Table: rules.Pkg, Backend: BackendFlatFile, Path: "y"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.classes...); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log_classes.yaml")
	content := `classes:
  pkgmanager.events:
    path: /srv/logs/pacman.log
  sshd.events:
    matches:
      - field: _SYSTEMD_UNIT
        value: ssh.service
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	base := Default("")
	r, err := base.Apply(o)
	if err != nil {
		t.Fatal(err)
	}

	pkg, _ := r.Get("pkgmanager.events")
	if pkg.Path != "/srv/logs/pacman.log" {
		t.Errorf("path = %s", pkg.Path)
	}
	sshd, _ := r.Get("sshd.events")
	if len(sshd.Matches) != 1 || sshd.Matches[0].Value != "ssh.service" {
		t.Errorf("matches = %v", sshd.Matches)
	}
	if sshd.Table != rules.SSHD {
		t.Error("rule table must not change")
	}

	orig, _ := base.Get("pkgmanager.events")
	if orig.Path != DefaultPkgLogPath {
		t.Error("Apply must not modify the source registry")
	}
}

func TestOverridesErrors(t *testing.T) {
	missing, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || len(missing.Classes) != 0 {
		t.Fatalf("missing file = %+v, %v", missing, err)
	}

	base := Default("")
	bad := []*Overrides{
		{Classes: map[string]ClassOverride{"nope.events": {Path: "x"}}},
		{Classes: map[string]ClassOverride{"sshd.events": {Path: "x"}}},
	}
	for i, o := range bad {
		if _, err := base.Apply(o); err == nil {
			t.Errorf("override #%d: expected error", i)
		}
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	os.WriteFile(path, []byte("classes: [unclosed"), 0644)
	if _, err := LoadOverrides(path); err == nil {
		t.Error("expected parse error")
	}
}
