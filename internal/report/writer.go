package report

import (
	"io"

	"github.com/nao1215/studyhelper/internal/model"
)

// Writer defines the interface for result output.
type Writer interface {
	// Write outputs a single solve.
	// Returns the number of bytes written and any error encountered.
	Write(state model.State) (int, error)

	// WriteBatch outputs several solves, for example a worksheet.
	WriteBatch(states []model.State) (int, error)
}

// MultiWriter writes to multiple Writers, e.g. the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the solve to all configured Writers.
// Returns the total bytes written. Stops on the first error.
func (m *MultiWriter) Write(state model.State) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(state)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the solves to all configured Writers.
func (m *MultiWriter) WriteBatch(states []model.State) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(states)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for result writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// batchCounts tallies a batch by outcome.
type batchCounts struct {
	linear   int
	advanced int
	failed   int
}

func countBatch(states []model.State) batchCounts {
	var c batchCounts
	for _, s := range states {
		switch {
		case s.Failed():
			c.failed++
		case s.Class == model.ClassLinear:
			c.linear++
		case s.Class == model.ClassAdvanced:
			c.advanced++
		}
	}
	return c
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
