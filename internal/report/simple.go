package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/studyhelper/internal/model"
)

// SimpleWriter outputs human-readable text for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds the normalized form, the variable and the class.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single solve.
func (w *SimpleWriter) Write(state model.State) (int, error) {
	var sb strings.Builder
	w.writeState(&sb, state)
	return io.WriteString(w.output, sb.String())
}

// WriteBatch outputs every solve followed by a summary line.
func (w *SimpleWriter) WriteBatch(states []model.State) (int, error) {
	var sb strings.Builder

	for i, state := range states {
		fmt.Fprintf(&sb, "[%d/%d]\n", i+1, len(states))
		w.writeState(&sb, state)
		sb.WriteString("\n")
	}

	c := countBatch(states)
	sb.WriteString(strings.Repeat("-", 50))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Total: %d  Linear: %d  Advanced: %d  Failed: %d\n",
		len(states), c.linear, c.advanced, c.failed)

	return io.WriteString(w.output, sb.String())
}

// writeState writes the lines the state's view mode shows.
func (w *SimpleWriter) writeState(sb *strings.Builder, state model.State) {
	fmt.Fprintf(sb, "Equation: %s\n", state.Input)
	if w.verbose {
		fmt.Fprintf(sb, "Normalized: %s\n", state.Normalized)
		fmt.Fprintf(sb, "Variable: %s\n", state.Variable)
		fmt.Fprintf(sb, "Class: %s\n", state.Class)
	}

	visible := model.Display(state)
	if visible.Error != "" {
		fmt.Fprintf(sb, "Error: %s\n", visible.Error)
	}
	if visible.Placeholder != "" {
		sb.WriteString(visible.Placeholder)
		sb.WriteString("\n")
	}
	if visible.Hint != "" {
		fmt.Fprintf(sb, "Hint: %s\n", visible.Hint)
	}
	if len(visible.Steps) > 0 {
		sb.WriteString("Steps:\n")
		for i, step := range visible.Steps {
			fmt.Fprintf(sb, "  %d. %s\n", i+1, step)
		}
	}
	if visible.Answer != "" {
		fmt.Fprintf(sb, "Answer: %s\n", visible.Answer)
	}
}
