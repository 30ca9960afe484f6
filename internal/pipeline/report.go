package pipeline

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/voxlate/voxlate/internal/langname"
)

// Reporter receives the per-utterance results the pipeline produces.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// Utterance reports the transcribed source text with its detected
	// language code.
	Utterance(language, text string)

	// Translation reports the translated text with its target language code.
	Translation(language, text string)

	// NoTranslation reports that the utterance needed no translation
	// (source and target language were the same).
	NoTranslation()

	// TranslationFailed reports that translation of the utterance failed;
	// only the source text was emitted.
	TranslationFailed()

	// Unknown reports transcribed text whose language could not be
	// determined.
	Unknown(text string)

	// Done marks the end of one utterance's output.
	Done()
}

// ConsoleReporter writes human-readable result lines to an io.Writer,
// labelling each line with the uppercase English language name:
//
//	[SPANISH] hola mundo
//	[ENGLISH] hello world
//	--------------------------------------------------
type ConsoleReporter struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Reporter = (*ConsoleReporter)(nil)

// separator closes each utterance block.
var separator = strings.Repeat("-", 50)

// NewConsoleReporter returns a reporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Utterance implements Reporter.
func (r *ConsoleReporter) Utterance(language, text string) {
	r.printf("[%s] %s\n", strings.ToUpper(langname.Name(language)), text)
}

// Translation implements Reporter.
func (r *ConsoleReporter) Translation(language, text string) {
	r.printf("[%s] %s\n", strings.ToUpper(langname.Name(language)), text)
}

// NoTranslation implements Reporter.
func (r *ConsoleReporter) NoTranslation() {
	r.printf("(No translation needed)\n")
}

// TranslationFailed implements Reporter.
func (r *ConsoleReporter) TranslationFailed() {
	r.printf("(Translation failed)\n")
}

// Unknown implements Reporter.
func (r *ConsoleReporter) Unknown(text string) {
	r.printf("[UNKNOWN LANGUAGE] %s\n", text)
}

// Done implements Reporter.
func (r *ConsoleReporter) Done() {
	r.printf("%s\n", separator)
}

func (r *ConsoleReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}
