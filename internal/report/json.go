package report

import (
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/nao1215/studyhelper/internal/model"
)

// Response is the JSON shape of one solve. The HTTP API returns the same
// shape.
type Response struct {
	Input      string          `json:"input"`
	Normalized string          `json:"normalized"`
	Variable   string          `json:"variable"`
	Class      model.Class     `json:"class"`
	View       model.ViewMode  `json:"view"`
	Hint       string          `json:"hint"`
	Steps      []string        `json:"steps"`
	Answer     string          `json:"answer"`
	ErrorKind  model.ErrorKind `json:"error_kind,omitempty"`
	Visible    model.Visible   `json:"visible"`
	SolvedAt   time.Time       `json:"solved_at"`
}

// NewResponse converts a state into its JSON shape.
func NewResponse(state model.State) Response {
	steps := state.Result.Steps
	if steps == nil {
		steps = []string{}
	}
	return Response{
		Input:      state.Input,
		Normalized: state.Normalized,
		Variable:   state.Variable,
		Class:      state.Class,
		View:       state.View,
		Hint:       state.Result.Hint,
		Steps:      steps,
		Answer:     state.Result.Answer,
		ErrorKind:  state.ErrorKind(),
		Visible:    model.Display(state),
		SolvedAt:   state.SolvedAt,
	}
}

// BatchResponse is the JSON shape of a batch.
type BatchResponse struct {
	// Version is the studyhelper version that produced the output.
	Version string `json:"version,omitempty"`

	// Total is the number of solves.
	Total int `json:"total"`

	// Failed is the number of solves that ended in an error hint.
	Failed int `json:"failed"`

	// Results are the solves in input order.
	Results []Response `json:"results"`
}

// JSONWriter outputs results in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into batch output when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the program version in batch output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single solve.
func (w *JSONWriter) Write(state model.State) (int, error) {
	return w.writeJSON(NewResponse(state))
}

// WriteBatch outputs a batch with totals.
func (w *JSONWriter) WriteBatch(states []model.State) (int, error) {
	batch := BatchResponse{
		Version: w.version,
		Total:   len(states),
		Failed:  countBatch(states).failed,
		Results: make([]Response, len(states)),
	}
	for i, s := range states {
		batch.Results[i] = NewResponse(s)
	}
	return w.writeJSON(batch)
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
