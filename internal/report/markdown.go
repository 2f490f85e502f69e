package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/studyhelper/internal/model"
)

// MarkdownWriter outputs results in Markdown, e.g. for homework notes.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single solve.
func (w *MarkdownWriter) Write(state model.State) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Solution")
	md.PlainText("")
	w.writeState(md, state)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a summary section followed by every solve.
func (w *MarkdownWriter) WriteBatch(states []model.State) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Worksheet")
	md.PlainText("")
	w.writeSummary(md, states)

	for i, state := range states {
		md.H2(fmt.Sprintf("%d. %s", i+1, truncateString(state.Input, 60)))
		md.PlainText("")
		w.writeState(md, state)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the outcome table and chart for a batch.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, states []model.State) {
	c := countBatch(states)

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Linear", strconv.Itoa(c.linear)},
			{"Advanced", strconv.Itoa(c.advanced)},
			{"Failed", strconv.Itoa(c.failed)},
			{"**Total**", "**" + strconv.Itoa(len(states)) + "**"},
		},
	})
	md.PlainText("")

	if len(states) > 0 {
		w.writePieChart(md, c)
	}

	if c.failed > 0 {
		md.Warningf("%d of %d equation(s) could not be solved.", c.failed, len(states))
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of the outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c batchCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcomes"),
		piechart.WithShowData(true),
	)

	if c.linear > 0 {
		chart.LabelAndIntValue("Linear", uint64(c.linear))
	}
	if c.advanced > 0 {
		chart.LabelAndIntValue("Advanced", uint64(c.advanced))
	}
	if c.failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(c.failed))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeState writes the parts of the solve the view mode shows.
func (w *MarkdownWriter) writeState(md *markdown.Markdown, state model.State) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Equation", "`" + state.Input + "`"},
			{"Normalized", "`" + state.Normalized + "`"},
			{"Class", state.Class.String()},
			{"View", string(state.View)},
		},
	})
	md.PlainText("")

	visible := model.Display(state)
	if visible.Error != "" {
		md.Caution(visible.Error)
		md.PlainText("")
	}
	if visible.Placeholder != "" {
		md.Note(visible.Placeholder)
		md.PlainText("")
	}
	if visible.Hint != "" {
		md.Tip(visible.Hint)
		md.PlainText("")
	}
	if len(visible.Steps) > 0 {
		md.PlainText("**Steps**")
		md.PlainText("")
		md.OrderedList(visible.Steps...)
		md.PlainText("")
	}
	if visible.Answer != "" {
		md.PlainTextf("**Answer:** `%s`", visible.Answer)
		md.PlainText("")
	}
}

// writeFooter writes the document footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by [studyhelper](https://github.com/nao1215/studyhelper)*")
}
