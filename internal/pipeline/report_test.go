package pipeline

import (
	"strings"
	"testing"
)

// TestConsoleReporter_TranslatedUtterance checks the full two-line block.
func TestConsoleReporter_TranslatedUtterance(t *testing.T) {
	var buf strings.Builder
	r := NewConsoleReporter(&buf)

	r.Utterance("es", "hola mundo")
	r.Translation("en", "hello world")
	r.Done()

	want := "[SPANISH] hola mundo\n" +
		"[ENGLISH] hello world\n" +
		strings.Repeat("-", 50) + "\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// TestConsoleReporter_NoTranslation checks the identity-case block.
func TestConsoleReporter_NoTranslation(t *testing.T) {
	var buf strings.Builder
	r := NewConsoleReporter(&buf)

	r.Utterance("en", "hello")
	r.NoTranslation()

	want := "[ENGLISH] hello\n(No translation needed)\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// TestConsoleReporter_Unknown checks the unknown-language line.
func TestConsoleReporter_Unknown(t *testing.T) {
	var buf strings.Builder
	r := NewConsoleReporter(&buf)

	r.Unknown("blah blah")

	if got := buf.String(); got != "[UNKNOWN LANGUAGE] blah blah\n" {
		t.Errorf("output = %q", got)
	}
}

// TestConsoleReporter_UnmappedCodeUppercased falls back to the raw code.
func TestConsoleReporter_UnmappedCodeUppercased(t *testing.T) {
	var buf strings.Builder
	r := NewConsoleReporter(&buf)

	r.Utterance("xx", "???")

	if got := buf.String(); got != "[XX] ???\n" {
		t.Errorf("output = %q", got)
	}
}

// TestConsoleReporter_SeparatorWidth pins the separator at 50 dashes.
func TestConsoleReporter_SeparatorWidth(t *testing.T) {
	var buf strings.Builder
	NewConsoleReporter(&buf).Done()
	line := strings.TrimSuffix(buf.String(), "\n")
	if len(line) != 50 || strings.Trim(line, "-") != "" {
		t.Errorf("separator = %q, want 50 dashes", line)
	}
}
