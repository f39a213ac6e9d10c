// Package renderer formats realizations for people and machines: plain
// text, JSON, a markdown report and a terminal trace table.
package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
)

// Format names accepted by Render
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatTrace    = "trace"
)

// Renderer handles realization rendering
type Renderer struct {
	realization *engine.Realization
	width       int
}

// NewRenderer creates a renderer; width bounds terminal output and
// defaults to 80
func NewRenderer(r *engine.Realization, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	return &Renderer{realization: r, width: width}
}

// Render dispatches on format; unknown formats are an error
func (r *Renderer) Render(format string) (string, error) {
	switch format {
	case "", FormatText:
		return r.RenderText(), nil
	case FormatJSON:
		return r.RenderJSON()
	case FormatMarkdown:
		return r.RenderMarkdown()
	case FormatTrace:
		return r.RenderTraceTable(), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// RenderText returns the surface text
func (r *Renderer) RenderText() string {
	return r.realization.Surface
}

// RenderJSON renders the full realization, trace included
func (r *Renderer) RenderJSON() (string, error) {
	jsonBytes, err := json.MarshalIndent(r.realization, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

const reportTemplate = `## {{ .Surface }}
{{ if .TemplateID }}
*Template:* ` + "`{{ .TemplateID }}`" + `
{{ end }}
| # | Original | Category | Surface | Source |
|---|----------|----------|---------|--------|
{{- range $i, $e := .Trace }}
| {{ inc $i }} | {{ cell $e.Original }} | {{ cell (category $e) }} | {{ cell $e.Surface }} | {{ source $e }} |
{{- end }}
{{ if .Bindings }}
**Bindings:** {{ bindings .Bindings }}
{{ end }}`

var reportFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"cell": func(s string) string {
		if s == "" {
			return " "
		}
		return strings.ReplaceAll(s, "|", `\|`)
	},
	"category": categoryLabel,
	"source":   sourceLabel,
	"bindings": func(b map[string]string) string {
		labels := make([]string, 0, len(b))
		for label := range b {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		parts := make([]string, len(labels))
		for i, label := range labels {
			parts[i] = fmt.Sprintf("#%s → %s", label, b[label])
		}
		return strings.Join(parts, ", ")
	},
}

func categoryLabel(e engine.TraceEntry) string {
	if e.Morph.IsConversion() {
		return e.Category + ":" + string(e.Morph)
	}
	return e.Category
}

func sourceLabel(e engine.TraceEntry) string {
	s := string(e.Source)
	if e.Label != "" {
		s += " #" + e.Label
	}
	if e.ConversionFailed {
		s += " (unconverted)"
	}
	return s
}

var report = template.Must(template.New("report").Funcs(reportFuncs).Parse(reportTemplate))

// RenderMarkdown renders a markdown report: surface, trace table and bindings
func (r *Renderer) RenderMarkdown() (string, error) {
	var buf bytes.Buffer
	if err := report.Execute(&buf, r.realization); err != nil {
		return "", fmt.Errorf("failed to execute report template: %w", err)
	}
	return buf.String(), nil
}

// RenderTerminal renders the markdown report through glamour
func (r *Renderer) RenderTerminal() (string, error) {
	md, err := r.RenderMarkdown()
	if err != nil {
		return "", err
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	randomizedStyle = cellStyle.Foreground(lipgloss.Color("86"))
	degradedStyle   = cellStyle.Foreground(lipgloss.Color("214"))
)

// RenderTraceTable renders the per-token trace as a lipgloss table.
// Randomized rows are highlighted; fallback, placeholder and failed
// conversions are marked as degraded.
func (r *Renderer) RenderTraceTable() string {
	rows := make([][]string, 0, len(r.realization.Trace))
	for _, e := range r.realization.Trace {
		rows = append(rows, []string{
			e.Original,
			categoryLabel(e),
			e.Label,
			e.Surface,
			sourceLabel(e),
		})
	}
	trace := r.realization.Trace

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ORIGINAL", "CATEGORY", "LABEL", "SURFACE", "SOURCE").
		Rows(rows...).
		Width(r.width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(trace) {
				return cellStyle
			}
			e := trace[row]
			switch {
			case isDegraded(e):
				return degradedStyle
			case e.Randomized:
				return randomizedStyle
			default:
				return cellStyle
			}
		})

	return r.realization.Surface + "\n" + t.Render()
}

func isDegraded(e engine.TraceEntry) bool {
	return e.ConversionFailed || e.Source == engine.SourceFallback || e.Source == engine.SourcePlaceholder
}

// RenderBatch renders a batch as numbered lines, followed by the warning
// when the batch fell short
func RenderBatch(b *engine.BatchResult) string {
	var sb strings.Builder
	for i, s := range b.Surfaces() {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	if b.Warning != "" {
		fmt.Fprintf(&sb, "\nWarning: %s\n", b.Warning)
	}
	return sb.String()
}

// RenderBatchJSON renders a batch with every trace
func RenderBatchJSON(b *engine.BatchResult) (string, error) {
	jsonBytes, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(jsonBytes), nil
}
