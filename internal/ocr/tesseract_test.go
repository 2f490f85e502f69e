package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestNewTesseractRecognizer tests defaults and options.
func TestNewTesseractRecognizer(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		rec := NewTesseractRecognizer()

		if rec.path != "tesseract" || rec.language != "eng" || rec.pageSegMode != 6 {
			t.Errorf("unexpected defaults %+v", rec)
		}
		if rec.Name() != "tesseract" {
			t.Errorf("unexpected name %q", rec.Name())
		}
	})

	t.Run("empty options keep defaults", func(t *testing.T) {
		t.Parallel()

		rec := NewTesseractRecognizer(WithTesseractPath(""), WithTesseractLanguage(""))

		if rec.path != "tesseract" || rec.language != "eng" {
			t.Errorf("unexpected settings %+v", rec)
		}
	})
}

// TestTesseractRecognize tests running the external program.
func TestTesseractRecognize(t *testing.T) {
	t.Parallel()

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()

		rec := NewTesseractRecognizer(WithTesseractPath(filepath.Join(t.TempDir(), "no-such-tesseract")))
		_, err := rec.Recognize(context.Background(), []byte("img"), nil)

		if !errors.Is(err, ErrTesseractNotFound) {
			t.Errorf("expected ErrTesseractNotFound, got %v", err)
		}
	})

	// The script subtests do not run in parallel: executing a file that
	// another goroutine may still hold open for writing fails with ETXTBSY.
	t.Run("reads stdout of the program", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("shell script stand-in requires a POSIX shell")
		}

		script := filepath.Join(t.TempDir(), "tesseract")
		body := "#!/bin/sh\ncat >/dev/null\nprintf 'Problem 2\\n3x - 4 = 5\\n'\n"
		if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}

		rec := NewTesseractRecognizer(WithTesseractPath(script))
		var last Progress
		got, err := rec.Recognize(context.Background(), []byte("img"), func(p Progress) { last = p })

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != "Problem 2\n3x - 4 = 5\n" {
			t.Errorf("unexpected text %q", got.Text)
		}
		if last.Progress != 1 {
			t.Errorf("expected final progress 1, got %v", last.Progress)
		}
	})

	t.Run("program failure includes stderr", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("shell script stand-in requires a POSIX shell")
		}

		script := filepath.Join(t.TempDir(), "tesseract")
		body := "#!/bin/sh\ncat >/dev/null\necho 'Error in pixReadStream' >&2\nexit 1\n"
		if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}

		_, err := NewTesseractRecognizer(WithTesseractPath(script)).Recognize(context.Background(), []byte("img"), nil)

		if err == nil {
			t.Fatal("expected error")
		}
		if got := err.Error(); !strings.Contains(got, "tesseract failed") || !strings.Contains(got, "pixReadStream") {
			t.Errorf("unexpected error %q", got)
		}
	})
}
