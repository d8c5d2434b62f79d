// Package output renders classified events for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

// Renderer writes events to an output stream
type Renderer interface {
	Render(ev domain.TypedEvent) error
}

var (
	styleTime   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleClass  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)
	styleFields = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	styleOther  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)

	categoryStyles = map[domain.Category]lipgloss.Style{
		domain.CategoryAuth:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.CategoryUser:     lipgloss.NewStyle().Foreground(lipgloss.Color("177")),
		domain.CategoryPackage:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		domain.CategoryNetwork:  lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		domain.CategoryFirewall: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		domain.CategoryKernel:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		domain.CategoryConfig:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		domain.CategorySystem:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}

	// failures stand out whatever their category
	styleFailure = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("160")).
			Bold(true)
)

// TextRenderer prints one colorized line per event
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(ev domain.TypedEvent) error {
	ts := ev.Timestamp
	if ts == "" {
		ts = "-"
	}
	parts := []string{
		styleTime.Render(ts),
		kindTag(ev.Kind),
		styleClass.Render(ev.LogClass),
	}
	if f := formatFields(ev.Fields); f != "" {
		parts = append(parts, styleFields.Render(f))
	}
	if msg := message(ev.Raw); msg != "" {
		parts = append(parts, "| "+msg)
	}
	_, err := fmt.Fprintln(r.w, strings.Join(parts, " "))
	return err
}

func kindTag(kind domain.EventKind) string {
	if kind == nil {
		return styleOther.Render("?")
	}
	tag := fmt.Sprintf("%s/%s", kind.Category(), kind.String())
	name := kind.String()
	switch {
	case name == "Other" || name == "Unknown":
		return styleOther.Render(tag)
	case strings.Contains(name, "Fail"), strings.Contains(name, "Invalid"), strings.Contains(name, "Denied"):
		return styleFailure.Render(tag)
	}
	if s, ok := categoryStyles[kind.Category()]; ok {
		return s.Render(tag)
	}
	return tag
}

// formatFields renders captures as sorted key=value pairs
func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		v := fields[k]
		if strings.ContainsAny(v, " \t") {
			v = fmt.Sprintf("%q", v)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	return sb.String()
}

func message(rec domain.RawRecord) string {
	msg, _ := rec.Message()
	return msg
}

// JSONRenderer prints each event as a single JSON object per line
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONRenderer{enc: enc}
}

func (r *JSONRenderer) Render(ev domain.TypedEvent) error {
	return r.enc.Encode(ev)
}

// New picks a renderer by format name: "json" or "text"
func New(format string, w io.Writer) (Renderer, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONRenderer(w), nil
	case "text", "":
		return NewTextRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", format)
	}
}
