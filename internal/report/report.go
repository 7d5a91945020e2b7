// Package report reads batch question files and writes the per-question
// TSV report.
package report

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"factlink/internal/operations"
)

const (
	dbpediaPrefix   = "http://dbpedia.org/resource/"
	wikipediaPrefix = "https://en.wikipedia.org/wiki/"
)

// Question is one line of a batch input file.
type Question struct {
	ID   string
	Text string
}

// WikipediaURL rewrites a DBpedia resource URI to the matching English
// Wikipedia page. Other identifiers are returned unchanged.
func WikipediaURL(id string) string {
	if rest, ok := strings.CutPrefix(id, dbpediaPrefix); ok {
		return wikipediaPrefix + rest
	}
	return id
}

// ReadQuestions parses `<id>\t<question>` lines. Blank lines are skipped;
// lines that do not split into exactly two fields are logged and skipped.
func ReadQuestions(r io.Reader, logger *slog.Logger) ([]Question, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var out []Question
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			logger.Warn("skipping malformed input line", "line", lineNo, "fields", len(parts))
			continue
		}
		out = append(out, Question{ID: parts[0], Text: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("reading questions: %w", err)
	}
	return out, nil
}

// Lines renders the report lines for one record, without trailing newlines.
// Fields are wrapped in double quotes verbatim; line breaks in the raw model
// output become spaces.
func Lines(rec *operations.AnswerRecord) []string {
	raw := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(rec.Raw)
	lines := []string{
		fmt.Sprintf("%s\tR\"%s\"", rec.ID, raw),
		fmt.Sprintf("%s\tA\"%s\"", rec.ID, rec.Answer.Text),
		fmt.Sprintf("%s\tC\"%s\"", rec.ID, rec.Verdict),
	}
	for _, e := range rec.Entities {
		lines = append(lines, fmt.Sprintf("%s\tE\"%s\"\t\"%s\"", rec.ID, e.Mention, WikipediaURL(e.ID)))
	}
	return lines
}

// Writer appends records to a report stream.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write emits one record and flushes it.
func (w *Writer) Write(rec *operations.AnswerRecord) error {
	for _, line := range Lines(rec) {
		if _, err := w.w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return w.w.Flush()
}
