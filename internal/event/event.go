// Package event carries structured diagnostics out of the loaders and the
// force-set assembler. The core never prints; hosts decide how to present
// events (console banner, terminal view, journal).
package event

import (
	"fmt"
	"strings"
	"sync"
)

// Kind classifies an event.
type Kind string

const (
	// KindExperimental is emitted before a backend marked experimental parses forces.
	KindExperimental Kind = "experimental"
	// KindFileParsed is emitted after each force file is read.
	KindFileParsed Kind = "file-parsed"
	// KindDrift reports the drift force removed from one displacement.
	KindDrift Kind = "drift"
	// KindMismatch reports a force-file count that does not match the plan.
	KindMismatch Kind = "count-mismatch"
	// KindParseFailed reports a backend that could not read a force file.
	KindParseFailed Kind = "parse-failed"
	// KindWritten reports a dataset file that was written.
	KindWritten Kind = "written"
	// KindNotCreated reports that no dataset file was produced.
	KindNotCreated Kind = "not-created"
	// KindStructureLoaded reports a successfully read unit cell.
	KindStructureLoaded Kind = "structure-loaded"
)

// Event is a single diagnostic.
type Event struct {
	Kind    Kind
	Mode    string
	File    string
	// Index is the 1-based displacement number when the event concerns one.
	Index   int
	Message string
	Vector  [3]float64
}

// Normalize trims free-text fields.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	e.Mode = strings.TrimSpace(e.Mode)
	e.File = strings.TrimSpace(e.File)
	e.Message = strings.TrimSpace(e.Message)
}

// String renders a plain single-line form.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Kind)
	if e.Mode != "" {
		fmt.Fprintf(&b, " %s", e.Mode)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " %s", e.File)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Sink consumes events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event)

// Emit executes f(e).
func (f SinkFunc) Emit(e Event) {
	if f == nil {
		return
	}
	f(e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range filtered {
			s.Emit(e)
		}
	})
}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	e.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
