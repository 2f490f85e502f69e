package cas

import (
	"context"
	"errors"
	"strings"
)

// Collaborator is the narrow contract the solver needs from a
// computer-algebra system.
type Collaborator interface {
	// Expand algebraically expands expr and returns it as a string.
	Expand(ctx context.Context, expr string) (string, error)

	// SolveFor solves expr = 0 for variable. The result is either a single
	// value ("3") or a bracketed list ("[2,3]").
	SolveFor(ctx context.Context, expr, variable string) (string, error)
}

var (
	// ErrSyntax is returned when an expression cannot be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrInfiniteSolutions is returned when every value satisfies the equation.
	ErrInfiniteSolutions = errors.New("infinitely many solutions")

	// ErrNoSolution is returned when no value satisfies the equation.
	ErrNoSolution = errors.New("no solution")

	// ErrNoRealSolutions is returned when the equation only has complex roots,
	// or when no root was found in the search range.
	ErrNoRealSolutions = errors.New("no real solutions")

	// ErrUnsupported is returned for expressions the engine cannot solve,
	// such as ones that still contain other symbols.
	ErrUnsupported = errors.New("unsupported expression")

	// ErrDivisionByZero is returned when an expression divides by zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// ParseSolutionList normalizes a SolveFor result into a list of values.
// Both "3" and "[2,3]" are accepted; "[]" and "" yield an empty list.
// Commas nested inside parentheses or brackets do not split values.
func ParseSolutionList(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	var (
		values []string
		depth  int
		start  int
	)
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				values = appendValue(values, s[start:i])
				start = i + 1
			}
		}
	}
	return appendValue(values, s[start:])
}

func appendValue(values []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return values
	}
	return append(values, v)
}

// FormatSolutionList renders values the way SolveFor returns them.
func FormatSolutionList(values []string) string {
	if len(values) == 1 {
		return values[0]
	}
	return "[" + strings.Join(values, ",") + "]"
}
