package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/nao1215/studyhelper/internal/model"
)

// createTestState creates a solved linear equation in the given view.
func createTestState(view model.ViewMode) model.State {
	return model.NewState("2x+7=25", view, "x").
		WithNormalized("2*x+7=25").
		WithSides("2*x+7", "25").
		WithClass(model.ClassLinear).
		WithResult(model.SolutionResult{
			Hint: "Tip: Undo the constant first, then divide by the number in front of x.",
			Steps: []string{
				"Start: 2x + 7 = 25",
				"Subtract 7 from both sides: 2x = 18",
				"Divide both sides by 2: x = 9",
			},
			Answer: "x = 9",
		})
}

func createFailedState() model.State {
	return model.NewState("2x+7", model.ViewFull, "x").
		WithNormalized("2*x+7").
		WithError(model.NewError(model.KindMissingEquals, ""))
}

// TestSimpleWriter tests the human-readable writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		view     model.ViewMode
		contains []string
		excludes []string
	}{
		{
			name:     "none shows placeholder",
			view:     model.ViewNone,
			contains: []string{"Equation: 2x+7=25", model.Placeholder},
			excludes: []string{"Hint:", "Steps:", "Answer:"},
		},
		{
			name:     "hint shows hint only",
			view:     model.ViewHint,
			contains: []string{"Hint: Tip:"},
			excludes: []string{"Steps:", "Answer:"},
		},
		{
			name:     "steps shows hint and steps",
			view:     model.ViewSteps,
			contains: []string{"Hint: Tip:", "  2. Subtract 7 from both sides: 2x = 18"},
			excludes: []string{"Answer:"},
		},
		{
			name:     "full shows everything",
			view:     model.ViewFull,
			contains: []string{"Hint: Tip:", "Steps:", "Answer: x = 9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewSimpleWriter(&buf).Write(createTestState(tt.view)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, got:\n%s", s, output)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(output, s) {
					t.Errorf("expected output not to contain %q, got:\n%s", s, output)
				}
			}
		})
	}

	t.Run("error is shown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createFailedState()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Error: [missing_equals]") {
			t.Errorf("expected error hint, got:\n%s", buf.String())
		}
	})

	t.Run("verbose adds details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestState(model.ViewHint)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, s := range []string{"Normalized: 2*x+7=25", "Variable: x", "Class: linear"} {
			if !strings.Contains(buf.String(), s) {
				t.Errorf("expected %q in verbose output", s)
			}
		}
	})

	t.Run("batch summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		states := []model.State{createTestState(model.ViewFull), createFailedState()}
		n, err := NewSimpleWriter(&buf).WriteBatch(states)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}
		for _, s := range []string{"[1/2]", "[2/2]", "Total: 2  Linear: 1  Advanced: 0  Failed: 1"} {
			if !strings.Contains(buf.String(), s) {
				t.Errorf("expected %q in output", s)
			}
		}
	})
}

// TestJSONWriter tests the JSON writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("single solve", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestState(model.ViewSteps)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Class   string   `json:"class"`
			Answer  string   `json:"answer"`
			Steps   []string `json:"steps"`
			Visible struct {
				Answer string   `json:"answer"`
				Steps  []string `json:"steps"`
			} `json:"visible"`
			ErrorKind string `json:"error_kind"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Class != "linear" || got.Answer != "x = 9" || len(got.Steps) != 3 {
			t.Errorf("unexpected response %+v", got)
		}
		if got.Visible.Answer != "" || len(got.Visible.Steps) != 3 {
			t.Errorf("visible part ignores the view mode: %+v", got.Visible)
		}
		if got.ErrorKind != "" {
			t.Errorf("unexpected error kind %q", got.ErrorKind)
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("failed solve has error kind and empty steps", func(t *testing.T) {
		t.Parallel()

		resp := NewResponse(createFailedState())
		if resp.ErrorKind != model.KindMissingEquals {
			t.Errorf("unexpected error kind %q", resp.ErrorKind)
		}
		if resp.Steps == nil || len(resp.Steps) != 0 {
			t.Errorf("expected empty non-nil steps, got %#v", resp.Steps)
		}
	})

	t.Run("batch with version and pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		states := []model.State{createTestState(model.ViewFull), createFailedState()}
		if _, err := w.WriteBatch(states); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got BatchResponse
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "v1.2.3" || got.Total != 2 || got.Failed != 1 || len(got.Results) != 2 {
			t.Errorf("unexpected batch %+v", got)
		}
		if !strings.Contains(buf.String(), "\n  \"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("single solve in full view", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestState(model.ViewFull)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, s := range []string{"# Solution", "`2x+7=25`", "Subtract 7 from both sides", "**Answer:** `x = 9`", "studyhelper"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected %q in output:\n%s", s, output)
			}
		}
	})

	t.Run("hint view hides steps and answer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestState(model.ViewHint)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "Subtract 7") || strings.Contains(buf.String(), "**Answer:**") {
			t.Errorf("hint view leaked steps or answer:\n%s", buf.String())
		}
	})

	t.Run("batch has summary and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		states := []model.State{createTestState(model.ViewFull), createFailedState()}
		if _, err := NewMarkdownWriter(&buf).WriteBatch(states); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, s := range []string{"# Worksheet", "## Summary", "mermaid", "## 1. 2x+7=25", "## 2. 2x+7", "missing_equals"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected %q in output:\n%s", s, output)
			}
		}
	})
}

// errWriter fails every write.
type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestState(model.ViewFull))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(errWriter{}), NewJSONWriter(&js))

		if _, err := mw.WriteBatch([]model.State{createTestState(model.ViewFull)}); err == nil {
			t.Error("expected error")
		}
		if js.Len() != 0 {
			t.Error("second writer should not run after an error")
		}
	})
}

// TestTruncateString tests rune-safe truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{input: "short", maxLen: 10, want: "short"},
		{input: "x^2−5x+6=0", maxLen: 8, want: "x^2−5..."},
		{input: "abcdef", maxLen: 3, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
