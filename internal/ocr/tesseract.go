package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrTesseractNotFound is returned when the tesseract binary cannot be found.
var ErrTesseractNotFound = errors.New("tesseract binary not found: install tesseract-ocr or set ocr.tesseract_path")

// TesseractRecognizer runs the tesseract command line program.
type TesseractRecognizer struct {
	// path is the tesseract executable.
	path string

	// language is the tesseract language code, e.g. "eng".
	language string

	// pageSegMode is passed as --psm.
	pageSegMode int
}

// TesseractOption configures a TesseractRecognizer.
type TesseractOption func(*TesseractRecognizer)

// WithTesseractPath sets the tesseract executable.
func WithTesseractPath(path string) TesseractOption {
	return func(t *TesseractRecognizer) {
		if path != "" {
			t.path = path
		}
	}
}

// WithTesseractLanguage sets the recognition language.
func WithTesseractLanguage(language string) TesseractOption {
	return func(t *TesseractRecognizer) {
		if language != "" {
			t.language = language
		}
	}
}

// NewTesseractRecognizer creates a recognizer using the tesseract binary
// found on PATH unless configured otherwise. Page segmentation mode 6
// (a single uniform block of text) suits worksheet photos.
func NewTesseractRecognizer(opts ...TesseractOption) *TesseractRecognizer {
	t := &TesseractRecognizer{
		path:        "tesseract",
		language:    "eng",
		pageSegMode: 6,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the backend name.
func (t *TesseractRecognizer) Name() string {
	return "tesseract"
}

// Recognize pipes image through tesseract and returns its stdout.
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Result, error) {
	bin, err := exec.LookPath(t.path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrTesseractNotFound, t.path)
	}

	progress.report("recognizing text", 0)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"stdin", "stdout",
		"-l", t.language,
		"--psm", fmt.Sprint(t.pageSegMode),
	)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	progress.report("done", 1)

	return Result{Text: stdout.String()}, nil
}

// Ensure TesseractRecognizer implements Recognizer.
var _ Recognizer = (*TesseractRecognizer)(nil)
