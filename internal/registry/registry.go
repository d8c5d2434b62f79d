// Package registry holds the read-only set of log classes the engine serves.
package registry

import (
	"fmt"
	"sort"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/rules"
)

// DefaultPkgLogPath is the pacman log location
const DefaultPkgLogPath = "/var/log/pacman.log"

// Backend selects the record source of a log class
type Backend int

const (
	BackendJournal Backend = iota
	BackendFlatFile
)

func (b Backend) String() string {
	switch b {
	case BackendJournal:
		return "journal"
	case BackendFlatFile:
		return "flatfile"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// LogClassConfig describes one log class: where its records come from and
// which rule table classifies them
type LogClassConfig struct {
	Name    string
	Matches []logreader.Match // OR-combined, journal only
	Table   *rules.Table
	Backend Backend
	Path    string // flat file only; may be a glob
}

// Registry maps class names to their configuration. Built once, then read-only.
type Registry struct {
	classes map[string]*LogClassConfig
	names   []string
}

// New validates classes and builds a registry
func New(classes ...LogClassConfig) (*Registry, error) {
	r := &Registry{classes: make(map[string]*LogClassConfig, len(classes))}
	for i := range classes {
		c := classes[i]
		if c.Name == "" {
			return nil, fmt.Errorf("log class #%d has no name", i)
		}
		if _, dup := r.classes[c.Name]; dup {
			return nil, fmt.Errorf("duplicate log class %s", c.Name)
		}
		if c.Table == nil {
			return nil, fmt.Errorf("log class %s has no rule table", c.Name)
		}
		switch c.Backend {
		case BackendJournal:
			if len(c.Matches) == 0 {
				return nil, fmt.Errorf("journal log class %s has no matches", c.Name)
			}
		case BackendFlatFile:
			if c.Path == "" {
				return nil, fmt.Errorf("flat-file log class %s has no path", c.Name)
			}
		default:
			return nil, fmt.Errorf("log class %s has unknown backend %v", c.Name, c.Backend)
		}
		r.classes[c.Name] = &c
		r.names = append(r.names, c.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns the configuration of a class
func (r *Registry) Get(name string) (*LogClassConfig, error) {
	c, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLogClass, name)
	}
	return c, nil
}

// Names lists the registered classes, sorted
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every class configuration, sorted by name
func (r *Registry) All() []LogClassConfig {
	out := make([]LogClassConfig, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, *r.classes[n])
	}
	return out
}

func comm(values ...string) []logreader.Match {
	out := make([]logreader.Match, 0, len(values))
	for _, v := range values {
		out = append(out, logreader.Match{Field: "_COMM", Value: v})
	}
	return out
}

func unit(values ...string) []logreader.Match {
	out := make([]logreader.Match, 0, len(values))
	for _, v := range values {
		out = append(out, logreader.Match{Field: "_SYSTEMD_UNIT", Value: v})
	}
	return out
}

// DefaultClasses returns the built-in class set
func DefaultClasses(pkgLogPath string) []LogClassConfig {
	if pkgLogPath == "" {
		pkgLogPath = DefaultPkgLogPath
	}
	return []LogClassConfig{
		{
			Name: "sshd.events",
			Matches: append(comm("sshd", "sshd-session"),
				logreader.Match{Field: "_EXE", Value: "/usr/sbin/sshd"},
				logreader.Match{Field: "_SYSTEMD_UNIT", Value: "sshd.service"}),
			Table:   rules.SSHD,
			Backend: BackendJournal,
		},
		{
			Name:    "sudo.events",
			Matches: comm("sudo", "su"),
			Table:   rules.Sudo,
			Backend: BackendJournal,
		},
		{
			Name:    "login.events",
			Matches: comm("login", "sddm-helper", "systemd-logind"),
			Table:   rules.Login,
			Backend: BackendJournal,
		},
		{
			Name:    "userchange.events",
			Matches: comm("useradd", "groupadd", "userdel", "groupdel", "usermod", "groupmod", "passwd", "chpasswd"),
			Table:   rules.UserChange,
			Backend: BackendJournal,
		},
		{
			Name:    "pkgmanager.events",
			Table:   rules.Pkg,
			Backend: BackendFlatFile,
			Path:    pkgLogPath,
		},
		{
			Name:    "network.events",
			Matches: unit("NetworkManager.service"),
			Table:   rules.Network,
			Backend: BackendJournal,
		},
		{
			Name:    "firewall.events",
			Matches: unit("firewalld.service"),
			Table:   rules.Firewall,
			Backend: BackendJournal,
		},
		{
			Name:    "kernel.events",
			Matches: []logreader.Match{{Field: "_TRANSPORT", Value: "kernel"}},
			Table:   rules.Kernel,
			Backend: BackendJournal,
		},
		{
			Name:    "configchange.events",
			Matches: append(unit("cronie.service", "cron.service"), comm("crond")...),
			Table:   rules.Cron,
			Backend: BackendJournal,
		},
		{
			Name:    "system.events",
			Matches: []logreader.Match{{Field: "_PID", Value: "1"}},
			Table:   rules.System,
			Backend: BackendJournal,
		},
	}
}

// Default builds the registry of built-in classes
func Default(pkgLogPath string) *Registry {
	r, err := New(DefaultClasses(pkgLogPath)...)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in log classes: %v", err))
	}
	return r
}
