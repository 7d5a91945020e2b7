// Package term provides terminal utilities including OSC (Operating System Command) sequences
package term

import (
	"fmt"
	"io"
	"os"
)

// ModeType represents the terminal UI mode
type ModeType string

const (
	ModeAppend     ModeType = "append"     // Normal line-by-line output
	ModeInput      ModeType = "input"      // Waiting for user input
	ModeProcessing ModeType = "processing" // A question is running through the pipeline
)

// OSCWriter wraps an io.Writer to inject OSC sequences
type OSCWriter struct {
	writer      io.Writer
	currentMode ModeType
	modeOutput  io.Writer // Where to send OSC sequences (usually stderr)
	enabled     bool
}

// NewOSCWriter creates a new OSC-aware writer. Sequences are only emitted
// when stderr is a terminal.
func NewOSCWriter(w io.Writer) *OSCWriter {
	return &OSCWriter{
		writer:      w,
		currentMode: ModeAppend,
		modeOutput:  os.Stderr,
		enabled:     IsTerminal(os.Stderr),
	}
}

// NewOSCWriterTo sends mode sequences to modeOutput unconditionally.
func NewOSCWriterTo(w, modeOutput io.Writer) *OSCWriter {
	return &OSCWriter{
		writer:      w,
		currentMode: ModeAppend,
		modeOutput:  modeOutput,
		enabled:     true,
	}
}

// Mode reports the current mode.
func (o *OSCWriter) Mode() ModeType { return o.currentMode }

// SetMode changes the current mode and emits an OSC sequence
func (o *OSCWriter) SetMode(mode ModeType) {
	if o.currentMode != mode {
		o.currentMode = mode
		// OSC 51 is a private-use sequence we're defining for mode changes
		// Format: ESC ] 51 ; key=value BEL
		o.emit("mode", string(mode))
	}
}

// Write implements io.Writer
func (o *OSCWriter) Write(p []byte) (n int, err error) {
	return o.writer.Write(p)
}

// StartProcessing signals a long-running operation
func (o *OSCWriter) StartProcessing(operation string) {
	o.SetMode(ModeProcessing)
	if operation != "" {
		o.emit("operation", operation)
	}
}

// EndProcessing signals operation complete
func (o *OSCWriter) EndProcessing() {
	o.SetMode(ModeAppend)
}

// SendMetadata sends arbitrary metadata via OSC
func (o *OSCWriter) SendMetadata(key, value string) {
	o.emit(key, value)
}

func (o *OSCWriter) emit(key, value string) {
	if !o.enabled {
		return
	}
	fmt.Fprintf(o.modeOutput, "\033]51;%s=%s\007", key, value)
}

// Hyperlink wraps text in an OSC 8 hyperlink to url.
func Hyperlink(url, text string) string {
	return "\033]8;;" + url + "\033\\" + text + "\033]8;;\033\\"
}

// ClearScreen clears the terminal screen
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[2J\033[H")
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}
