// Package styles provides colour themes and styling for the progress view.
package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette of the progress view. An empty colour leaves
// the terminal default in place.
type Theme struct {
	// BarStart and BarEnd span the progress bar gradient.
	BarStart lipgloss.Color
	BarEnd   lipgloss.Color

	Title lipgloss.Color
	Text  lipgloss.Color
	Muted lipgloss.Color

	// Done, Partial and Failed colour the outcome of a run. Partial also
	// marks failed files while the run is going.
	Done    lipgloss.Color
	Partial lipgloss.Color
	Failed  lipgloss.Color

	Border lipgloss.Color
}

// DefaultTheme returns the colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		BarStart: lipgloss.Color("#7C3AED"),
		BarEnd:   lipgloss.Color("#06B6D4"),
		Title:    lipgloss.Color("#7C3AED"),
		Text:     lipgloss.Color("#CDD6F4"),
		Muted:    lipgloss.Color("#6C7086"),
		Done:     lipgloss.Color("#A6E3A1"),
		Partial:  lipgloss.Color("#F9E2AF"),
		Failed:   lipgloss.Color("#F38BA8"),
		Border:   lipgloss.Color("#45475A"),
	}
}

// MonochromeTheme returns a theme without colours. The bar falls back to
// shades of grey.
func MonochromeTheme() *Theme {
	return &Theme{
		BarStart: lipgloss.Color("#FFFFFF"),
		BarEnd:   lipgloss.Color("#808080"),
	}
}

// ThemeFromEnv honours NO_COLOR (https://no-color.org).
func ThemeFromEnv() *Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return MonochromeTheme()
	}
	return DefaultTheme()
}

// Styles are the rendered styles of the progress view.
type Styles struct {
	theme *Theme

	Title   lipgloss.Style
	Counter lipgloss.Style
	Muted   lipgloss.Style
	Done    lipgloss.Style
	Partial lipgloss.Style
	Failed  lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.Color) lipgloss.Style {
		s := lipgloss.NewStyle()
		if c != "" {
			s = s.Foreground(c)
		}
		return s
	}

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if theme.Border != "" {
		box = box.BorderForeground(theme.Border)
	}

	return &Styles{
		theme:   theme,
		Title:   fg(theme.Title).Bold(true),
		Counter: fg(theme.Text),
		Muted:   fg(theme.Muted),
		Done:    fg(theme.Done),
		Partial: fg(theme.Partial),
		Failed:  fg(theme.Failed).Bold(true),
		Box:     box,
	}
}

// DefaultStyles returns styles for the current environment.
func DefaultStyles() *Styles {
	return NewStyles(ThemeFromEnv())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Outcome returns the style for the final line of a run.
func (s *Styles) Outcome(failed, cancelled bool) lipgloss.Style {
	switch {
	case failed:
		return s.Failed
	case cancelled:
		return s.Partial
	default:
		return s.Done
	}
}
