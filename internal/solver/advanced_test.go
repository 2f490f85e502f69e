package solver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/studyhelper/internal/cas"
	"github.com/nao1215/studyhelper/internal/model"
)

// fakeCAS is a deterministic cas.Collaborator that records its calls.
type fakeCAS struct {
	expandResult string
	expandErr    error
	solveResult  string
	solveErr     error

	expanded []string
	solved   []string
}

func (f *fakeCAS) Expand(_ context.Context, expr string) (string, error) {
	f.expanded = append(f.expanded, expr)
	return f.expandResult, f.expandErr
}

func (f *fakeCAS) SolveFor(_ context.Context, expr, variable string) (string, error) {
	f.solved = append(f.solved, expr+"|"+variable)
	return f.solveResult, f.solveErr
}

// TestSolveAdvanced tests delegation to the CAS.
func TestSolveAdvanced(t *testing.T) {
	t.Parallel()

	t.Run("list result", func(t *testing.T) {
		t.Parallel()

		fake := &fakeCAS{expandResult: "x^2-5*x+6", solveResult: "[2,3]"}
		got, err := SolveAdvanced(context.Background(), fake, "x^2-5*x+6", "0", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(fake.expanded, []string{"x^2-5*x+6-(0)"}) {
			t.Errorf("Expand called with %q", fake.expanded)
		}
		if !reflect.DeepEqual(fake.solved, []string{"x^2-5*x+6|x"}) {
			t.Errorf("SolveFor called with %q", fake.solved)
		}

		wantSteps := []string{
			"Start: x^2−5x+6 = 0",
			"Move everything to one side: x^2−5x+6 = 0",
			"Solve for x: x = 2 or x = 3",
		}
		if !reflect.DeepEqual(got.Steps, wantSteps) {
			t.Errorf("steps = %q, want %q", got.Steps, wantSteps)
		}
		if got.Answer != "x = 2, x = 3" {
			t.Errorf("answer = %q", got.Answer)
		}
		if !strings.Contains(got.Hint, "Move everything to one side") {
			t.Errorf("hint = %q", got.Hint)
		}
	})

	t.Run("single result", func(t *testing.T) {
		t.Parallel()

		fake := &fakeCAS{expandResult: "2*y-6", solveResult: "3"}
		got, err := SolveAdvanced(context.Background(), fake, "2*y", "6", "y")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Answer != "y = 3" {
			t.Errorf("answer = %q", got.Answer)
		}
	})
}

// TestSolveAdvancedErrors tests the mapping of CAS failures.
func TestSolveAdvancedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fake     *fakeCAS
		wantErr  error
		wantText string
	}{
		{
			name:     "expand fails",
			fake:     &fakeCAS{expandErr: fmt.Errorf("%w: unexpected '$'", cas.ErrSyntax)},
			wantErr:  model.ErrSolve,
			wantText: "unexpected '$'",
		},
		{
			name:     "solve fails",
			fake:     &fakeCAS{expandResult: "x^2+1", solveErr: cas.ErrNoRealSolutions},
			wantErr:  model.ErrSolve,
			wantText: "no real solutions",
		},
		{
			name:    "identity",
			fake:    &fakeCAS{expandResult: "0", solveErr: cas.ErrInfiniteSolutions},
			wantErr: model.ErrNoUniqueSolution,
		},
		{
			name:    "empty list",
			fake:    &fakeCAS{expandResult: "x^2+1", solveResult: "[]"},
			wantErr: model.ErrSolve,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := SolveAdvanced(context.Background(), tt.fake, "x", "1", "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var domainErr *model.Error
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected *model.Error, got %T", err)
			}
			if tt.wantText != "" && !strings.Contains(domainErr.Hint(), tt.wantText) {
				t.Errorf("hint %q does not carry %q", domainErr.Hint(), tt.wantText)
			}
		})
	}
}

// TestSolveAdvancedCancelled tests that a cancelled CAS call is not a hint.
func TestSolveAdvancedCancelled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "canceled", err: context.Canceled},
		{name: "deadline", err: fmt.Errorf("expand: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := SolveAdvanced(context.Background(), &fakeCAS{expandErr: tt.err}, "x", "1", "x")
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			var domainErr *model.Error
			if errors.As(err, &domainErr) {
				t.Error("cancellation must not become a domain error")
			}
		})
	}
}

// TestSolverSolve tests routing with the real engine.
func TestSolverSolve(t *testing.T) {
	t.Parallel()

	s := New(nil)

	t.Run("linear", func(t *testing.T) {
		t.Parallel()

		got, err := s.Solve(context.Background(), model.ClassLinear, "2*x+7", "25", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Answer != "x = 9" {
			t.Errorf("answer = %q", got.Answer)
		}
	})

	t.Run("advanced", func(t *testing.T) {
		t.Parallel()

		got, err := s.Solve(context.Background(), model.ClassAdvanced, "x^2-5*x+6", "0", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Answer != "x = 2, x = 3" {
			t.Errorf("answer = %q", got.Answer)
		}
	})

	t.Run("coefficient beyond int64 is solved exactly", func(t *testing.T) {
		t.Parallel()

		got, err := s.Solve(context.Background(), model.ClassAdvanced, "99999999999999999999*x", "1", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Answer != "x = 1/99999999999999999999" {
			t.Errorf("answer = %q", got.Answer)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Solve(ctx, model.ClassAdvanced, "x^2-5*x+6", "0", "x")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		var domainErr *model.Error
		if errors.As(err, &domainErr) {
			t.Error("cancellation must not become a domain error")
		}
	})

	t.Run("linear with non numeric right side", func(t *testing.T) {
		t.Parallel()

		_, err := s.Solve(context.Background(), model.ClassLinear, "2*x", "y", "x")
		if !errors.Is(err, model.ErrNonNumericRightSide) {
			t.Errorf("expected non_numeric_right_side, got %v", err)
		}
	})
}
