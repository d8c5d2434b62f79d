package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
)

// ClassOverride replaces the source selection of one class.
// Rule tables cannot be overridden.
type ClassOverride struct {
	Matches []logreader.Match `yaml:"matches"`
	Path    string            `yaml:"path"`
}

// Overrides is the content of log_classes.yaml
type Overrides struct {
	Classes map[string]ClassOverride `yaml:"classes"`
}

// LoadOverrides loads log_classes.yaml. A missing file yields empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No log class overrides file")
		return &Overrides{Classes: make(map[string]ClassOverride)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log class overrides: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse log class overrides: %w", err)
	}
	if o.Classes == nil {
		o.Classes = make(map[string]ClassOverride)
	}
	return &o, nil
}

// Apply returns a new registry with the overrides applied
func (r *Registry) Apply(o *Overrides) (*Registry, error) {
	if o == nil || len(o.Classes) == 0 {
		return r, nil
	}
	classes := r.All()
	for name, ov := range o.Classes {
		if _, ok := r.classes[name]; !ok {
			return nil, fmt.Errorf("override for unknown log class %s", name)
		}
		for i := range classes {
			if classes[i].Name != name {
				continue
			}
			if len(ov.Matches) > 0 {
				if classes[i].Backend != BackendJournal {
					return nil, fmt.Errorf("log class %s is not journal-backed, matches cannot be set", name)
				}
				classes[i].Matches = ov.Matches
			}
			if ov.Path != "" {
				if classes[i].Backend != BackendFlatFile {
					return nil, fmt.Errorf("log class %s is not file-backed, path cannot be set", name)
				}
				classes[i].Path = ov.Path
			}
			log.Info().Str("log_class", name).Int("matches", len(classes[i].Matches)).Str("path", classes[i].Path).Msg("Applied log class override")
		}
	}
	return New(classes...)
}
