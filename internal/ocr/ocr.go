package ocr

import (
	"context"
	"strings"

	"github.com/nao1215/studyhelper/internal/model"
)

// Progress is a recognition progress report.
type Progress struct {
	// Status describes the current phase, e.g. "recognizing text".
	Status string `json:"status"`

	// Progress is the completed fraction in [0, 1].
	Progress float64 `json:"progress"`
}

// ProgressFunc receives progress reports. It may be nil.
type ProgressFunc func(Progress)

// report calls fn when it is set, clamping the fraction to [0, 1].
func (fn ProgressFunc) report(status string, fraction float64) {
	if fn == nil {
		return
	}
	fn(Progress{Status: status, Progress: min(max(fraction, 0), 1)})
}

// Result is the raw output of a recognizer.
type Result struct {
	// Text is the recognized text, possibly spanning many lines.
	Text string `json:"text"`
}

// Recognizer converts an image into text.
type Recognizer interface {
	// Recognize reads the text in image. progress may be nil.
	Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Result, error)

	// Name returns the backend name for logging.
	Name() string
}

// ExtractEquation picks the candidate equation out of recognized text.
// It returns the first line containing '=', falling back to the first
// non-empty line. Lines are trimmed.
func ExtractEquation(text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	first := ""
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "=＝") {
			return line, nil
		}
		if first == "" {
			first = line
		}
	}

	if first == "" {
		return "", model.NewError(model.KindOCRNoEquationFound, "")
	}
	return first, nil
}
