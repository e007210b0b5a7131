package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/logging"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A623"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7ED321"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Banner draws a boxed warning, used for experimental interfaces.
func Banner(title, message string) string {
	head := warnStyle.Render(strings.ToUpper(strings.TrimSpace(title)))
	body := bodyStyle.Render(strings.TrimSpace(message))
	return boxStyle.
		BorderForeground(lipgloss.Color("#F5A623")).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

// RenderEvent renders a single event line. Experimental warnings become a
// banner.
func RenderEvent(e event.Event) string {
	switch e.Kind {
	case event.KindExperimental:
		return Banner("Warning", e.Message)
	case event.KindParseFailed, event.KindNotCreated:
		return errStyle.Render("✗ " + describe(e))
	case event.KindMismatch:
		return warnStyle.Render("⚠ " + describe(e))
	case event.KindWritten, event.KindStructureLoaded:
		return okStyle.Render("✓ " + describe(e))
	case event.KindFileParsed:
		return bodyStyle.Render("· " + describe(e))
	}
	return dimStyle.Render("  " + describe(e))
}

func describe(e event.Event) string {
	var parts []string
	if e.Index > 0 {
		parts = append(parts, fmt.Sprintf("#%d", e.Index))
	}
	if e.File != "" {
		parts = append(parts, e.File)
	}
	line := strings.Join(parts, " ")
	if e.Message != "" {
		if line != "" {
			line += ": "
		}
		line += e.Message
	}
	if line == "" {
		line = string(e.Kind)
	}
	return line
}

// ConsoleSink prints the events a user should see on the console:
// experimental warnings and unreadable force files at level Normal and
// above, every other event at Verbose.
func ConsoleSink(w io.Writer, level int) event.Sink {
	return event.SinkFunc(func(e event.Event) {
		if level < logging.Normal {
			return
		}
		switch e.Kind {
		case event.KindExperimental, event.KindParseFailed:
			fmt.Fprintln(w, RenderEvent(e))
		case event.KindStructureLoaded:
			if level >= logging.Verbose {
				fmt.Fprintln(w, RenderEvent(e))
			}
		}
	})
}
