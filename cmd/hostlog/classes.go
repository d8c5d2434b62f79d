package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

var (
	styleName   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleDetail = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newClassesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the log classes and the event types they produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			return printClasses(cmd.OutOrStdout(), a.registry, opts.output)
		},
	}
}

type classSummary struct {
	Name       string   `json:"name"`
	Backend    string   `json:"backend"`
	Source     string   `json:"source"`
	EventTypes []string `json:"event_types"`
}

func summarize(c registry.LogClassConfig) classSummary {
	s := classSummary{
		Name:       c.Name,
		Backend:    c.Backend.String(),
		EventTypes: c.Table.EventNames(),
	}
	if c.Backend == registry.BackendFlatFile {
		s.Source = c.Path
	} else {
		terms := make([]string, 0, len(c.Matches))
		for _, m := range c.Matches {
			terms = append(terms, m.Field+"="+m.Value)
		}
		s.Source = strings.Join(terms, " | ")
	}
	return s
}

func printClasses(w io.Writer, reg *registry.Registry, format string) error {
	classes := reg.All()
	if strings.EqualFold(format, "json") {
		out := make([]classSummary, 0, len(classes))
		for _, c := range classes {
			out = append(out, summarize(c))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, c := range classes {
		s := summarize(c)
		fmt.Fprintf(w, "%s %s\n", styleName.Render(s.Name), styleDetail.Render("("+s.Backend+": "+s.Source+")"))
		fmt.Fprintf(w, "  %s\n", strings.Join(s.EventTypes, ", "))
	}
	return nil
}
