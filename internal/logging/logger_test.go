package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintfRespectsLevel(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  string
	}{
		{"quiet", Quiet, ""},
		{"normal", Normal, "created\n"},
		{"verbose", Verbose, "created\ndetail\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level)
			l.Printf("created")
			l.Verbosef("detail\n")
			if buf.String() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestAttachMirrorsToLogFile(t *testing.T) {
	dir := t.TempDir()
	l := New(nil, Quiet)
	if err := l.Attach(dir); err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	l.Printf("FORCE_SETS has been created.")
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".phonon", "logs", "phonon.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "] FORCE_SETS has been created.") {
		t.Fatalf("expected timestamped line, got %q", data)
	}
}

func TestNilLoggerIsQuiet(t *testing.T) {
	var l *Logger
	l.Printf("ignored")
	if l.Enabled(Normal) {
		t.Fatal("expected nil logger to be disabled")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("expected nil close to succeed, got %v", err)
	}
}
