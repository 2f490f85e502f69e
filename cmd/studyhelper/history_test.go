package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/nao1215/studyhelper/internal/database"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/report"
)

// saveSolves solves equations with --save into dbDir.
func saveSolves(t *testing.T, dbDir string, equations ...string) {
	t.Helper()

	args := append([]string{"solve", "--save", "--db-dir", dbDir}, equations...)
	if _, _, err := executeCommand(t, args...); err != nil {
		t.Fatalf("failed to save solves: %v", err)
	}
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("expected limit flag")
	}
	if flag.Shorthand != "n" || flag.DefValue != "20" {
		t.Errorf("unexpected limit flag %q/%q", flag.Shorthand, flag.DefValue)
	}
	if cmd.Flags().Lookup("save") != nil {
		t.Error("history must not have a save flag")
	}
}

// TestRunHistoryCmd tests listing saved solves.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	saveSolves(t, dbDir, "2x+7=25")
	saveSolves(t, dbDir, "2x+7")
	saveSolves(t, dbDir, "x^2-5x+6=0")

	t.Run("text lists newest first", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Solve history (3)") {
			t.Errorf("unexpected header:\n%s", stdout)
		}
		newest := strings.Index(stdout, "x^2-5x+6=0")
		oldest := strings.Index(stdout, "2x+7=25")
		if newest < 0 || oldest < 0 || newest > oldest {
			t.Errorf("expected newest first:\n%s", stdout)
		}
		if !strings.Contains(stdout, "[missing_equals]") {
			t.Errorf("expected error kind for failed solve:\n%s", stdout)
		}
	})

	t.Run("json honours limit", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--json", "-n", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var records []database.SolveRecord
		if err := json.Unmarshal([]byte(stdout), &records); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, stdout)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Answer != "x = 2, x = 3" {
			t.Errorf("unexpected answer %q", records[0].Answer)
		}
		if records[1].ErrorKind != model.KindMissingEquals {
			t.Errorf("unexpected error kind %q", records[1].ErrorKind)
		}
	})

	t.Run("markdown worksheet", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "# Worksheet") {
			t.Errorf("expected markdown worksheet:\n%s", stdout)
		}
	})

	t.Run("summary", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--summary")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Total solves: 3", "By class:", "By error kind:", "missing_equals"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in summary:\n%s", want, stdout)
			}
		}
	})
}

// TestRunHistoryCmdShowSolve tests showing one saved solve by ID.
func TestRunHistoryCmdShowSolve(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	saveSolves(t, dbDir, "2x+7=25")

	t.Run("saved view hides the answer", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--id", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Equation: 2x+7=25") || !strings.Contains(stdout, "Steps:") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
		if strings.Contains(stdout, "Answer:") {
			t.Errorf("steps view must not show the answer:\n%s", stdout)
		}
	})

	t.Run("view override reveals the answer", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--id", "1", "--view", "full")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Answer: x = 9") {
			t.Errorf("expected answer:\n%s", stdout)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--id", "1", "--view", "hint", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got report.Response
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, stdout)
		}
		if got.View != model.ViewHint || got.Answer != "x = 9" || got.Visible.Answer != "" {
			t.Errorf("unexpected response %+v", got)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--id", "99")
		if !errors.Is(err, errSolveNotFound) {
			t.Errorf("expected errSolveNotFound, got %v", err)
		}
	})

	t.Run("invalid view", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "history", "--db-dir", dbDir, "--id", "1", "--view", "everything")
		if !errors.Is(err, model.ErrInvalidViewMode) {
			t.Errorf("expected invalid view error, got %v", err)
		}
	})
}

// TestRunHistoryCmdWithoutDatabase tests that history never creates a database.
func TestRunHistoryCmdWithoutDatabase(t *testing.T) {
	t.Parallel()

	dbDir := filepath.Join(t.TempDir(), "empty")

	_, _, err := executeCommand(t, "history", "--db-dir", dbDir)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected database not found error, got %v", err)
	}
}
