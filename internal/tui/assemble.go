// Package tui renders assembly progress in the terminal: a lipgloss
// banner for plain console runs and a bubbletea view for -tui runs.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/forcesets"
	"github.com/kingrea/phonon-interface/internal/logbook"
)

const (
	maxEventLines = 12
	logTailLines  = 6
	eventBuffer   = 64
)

// Runner performs the assembly, sending events to sink.
type Runner func(sink event.Sink) (forcesets.Report, error)

type eventMsg event.Event

type doneMsg struct {
	report forcesets.Report
	err    error
}

// AssembleModel shows per-file progress of a force-set assembly.
type AssembleModel struct {
	title   string
	total   int
	run     Runner
	events  chan event.Event
	spinner spinner.Model
	book    *logbook.Logbook

	parsed      int
	lines       []string
	done        bool
	interrupted bool
	report      forcesets.Report
	err         error
	width       int
}

// NewAssembleModel prepares a view for an assembly over total force files.
// book may be nil.
func NewAssembleModel(title string, total int, run Runner, book *logbook.Logbook) *AssembleModel {
	return &AssembleModel{
		title:   title,
		total:   total,
		run:     run,
		events:  make(chan event.Event, eventBuffer),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
		book:    book,
	}
}

// Init starts the assembly and the spinner.
func (m *AssembleModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.waitForEvent())
}

func (m *AssembleModel) start() tea.Cmd {
	ch := m.events
	run := m.run
	return func() tea.Msg {
		report, err := run(event.SinkFunc(func(e event.Event) { ch <- e }))
		close(ch)
		return doneMsg{report: report, err: err}
	}
}

func (m *AssembleModel) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// Update implements tea.Model.
func (m *AssembleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = !m.done
			return m, tea.Quit
		}
		return m, nil
	case eventMsg:
		m.record(event.Event(msg))
		return m, m.waitForEvent()
	case doneMsg:
		for e := range m.events {
			m.record(e)
		}
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AssembleModel) record(e event.Event) {
	e.Normalize()
	if e.Kind == event.KindFileParsed {
		m.parsed++
	}
	if e.Kind == event.KindDrift {
		return
	}
	m.lines = append(m.lines, RenderEvent(e))
	if len(m.lines) > maxEventLines {
		m.lines = m.lines[len(m.lines)-maxEventLines:]
	}
}

// Done reports whether the assembly has finished.
func (m *AssembleModel) Done() bool {
	return m.done
}

// Result returns the assembly outcome. It is the zero Report until Done.
func (m *AssembleModel) Result() (forcesets.Report, error) {
	return m.report, m.err
}

// Interrupted reports whether the user quit before the assembly finished.
func (m *AssembleModel) Interrupted() bool {
	return m.interrupted
}

// View implements tea.Model.
func (m *AssembleModel) View() string {
	header := headerStyle.MarginBottom(1).Render("⬡ PHONON")
	progress := fmt.Sprintf("%s %s  %d/%d force files", m.spinner.View(), titleStyle.Render(m.title), m.parsed, m.total)
	if m.done {
		progress = fmt.Sprintf("%s  %d/%d force files", titleStyle.Render(m.title), m.parsed, m.total)
	}
	body := progress
	if len(m.lines) > 0 {
		body = lipgloss.JoinVertical(lipgloss.Left, progress, "", strings.Join(m.lines, "\n"))
	}
	width := max(40, m.width-2)
	sections := []string{header, boxStyle.Width(width).Render(body)}
	if panel := m.renderLogPanel(); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, dimStyle.MarginTop(1).Render(m.statusLine()))
	return strings.Join(sections, "\n") + "\n"
}

func (m *AssembleModel) statusLine() string {
	switch {
	case !m.done:
		return "Reading force files... (q to quit)"
	case m.report.Created:
		return fmt.Sprintf("%s has been created.", m.report.Output)
	case m.err != nil:
		return fmt.Sprintf("%s could not be created: %v", outputName(m.report), m.err)
	}
	return fmt.Sprintf("%s could not be created.", outputName(m.report))
}

func (m *AssembleModel) renderLogPanel() string {
	if m.book == nil {
		return ""
	}
	lines, total := m.book.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(m.book.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle.Render(fmt.Sprintf("LOG · %s (%d entries)", fileName, total))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, bodyStyle.Render(strings.Join(lines, "\n"))))
}

func outputName(r forcesets.Report) string {
	if r.Output == "" {
		return "FORCE_SETS"
	}
	return r.Output
}
