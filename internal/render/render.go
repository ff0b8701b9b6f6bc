// Package render turns pipeline results into human-readable output for the
// CLI: the JSON envelope, glamour-rendered markdown, or a compact lipgloss
// styled listing.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"facetforge/internal/ideation"
)

// Output formats accepted by Write.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Formats lists the accepted formats.
var Formats = []string{FormatJSON, FormatMarkdown, FormatText}

// Options tunes human-readable output.
type Options struct {
	// Width wraps markdown output. Zero means 80.
	Width int
	// Style is a glamour style name. Empty selects one from the terminal.
	Style string
}

// Write renders result in format to w.
func Write(w io.Writer, result ideation.Result, format string, opts Options) error {
	var (
		out string
		err error
	)
	switch format {
	case FormatJSON, "":
		out, err = JSON(result)
	case FormatMarkdown:
		out, err = RenderMarkdown(result, opts)
	case FormatText:
		out = Text(result, DefaultStyles())
	default:
		return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(w, out)
	return err
}

// JSON renders the result envelope pretty-printed with two spaces.
func JSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}

// Markdown builds a markdown document for result.
func Markdown(result ideation.Result) string {
	var b strings.Builder
	if !result.Success {
		fmt.Fprintf(&b, "# Generation failed\n\n**%s**: %s\n", result.Error.Code, result.Error.Message)
		if result.Error.Details != "" {
			fmt.Fprintf(&b, "\n> %s\n", result.Error.Details)
		}
		return b.String()
	}

	data := result.Data
	fmt.Fprintf(&b, "# %s\n\n", data.TargetSubject)
	fmt.Fprintf(&b, "_Categories proposed by a %s._\n", data.ExpertRole)
	for i, c := range data.Categories {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Description)
		}
		if c.Fallback {
			b.WriteString("> Example options (generation failed for this category)\n\n")
		}
		for _, opt := range c.Options {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(opt))
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderMarkdown renders Markdown(result) for the terminal with glamour.
func RenderMarkdown(result ideation.Result, opts Options) (string, error) {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStylePath(opts.Style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(Markdown(result))
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// Styles holds the lipgloss styles of the text format.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Category lipgloss.Style
	Muted    lipgloss.Style
	Option   lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

var (
	primary     = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	muted       = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	warning     = lipgloss.Color("#FFC107")
	destructive = lipgloss.Color("#e53935")
)

// DefaultStyles returns the palette used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(primary).Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(muted).Italic(true),
		Category: lipgloss.NewStyle().Foreground(primary).Bold(true).MarginTop(1),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Option:   lipgloss.NewStyle().PaddingLeft(2),
		Warning:  lipgloss.NewStyle().Foreground(warning),
		Error:    lipgloss.NewStyle().Foreground(destructive).Bold(true),
	}
}

// Text renders result as a compact styled listing.
func Text(result ideation.Result, s Styles) string {
	if !result.Success {
		line := s.Error.Render(string(result.Error.Code)) + " " + result.Error.Message
		if result.Error.Details != "" {
			line += "\n" + s.Muted.Render(result.Error.Details)
		}
		return line
	}

	data := result.Data
	parts := []string{
		s.Title.Render(data.TargetSubject),
		s.Subtitle.Render(fmt.Sprintf("%d categories from a %s", len(data.Categories), data.ExpertRole)),
	}
	for _, c := range data.Categories {
		header := s.Category.Render(c.Name)
		if c.Fallback {
			header += " " + s.Warning.Render("(example options)")
		}
		lines := []string{header}
		if c.Description != "" {
			lines = append(lines, s.Muted.Render(c.Description))
		}
		for _, opt := range c.Options {
			lines = append(lines, s.Option.Render("• "+opt))
		}
		parts = append(parts, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
