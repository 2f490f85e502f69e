package solver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/studyhelper/internal/model"
)

// SolveLinear solves a*v + b = c for the variable v by isolating it:
// first the constant is moved to the right side, then both sides are divided
// by the coefficient.
//
// It fails with no_unique_solution when a is zero, because the equation then
// holds for every value (b = c) or for none.
func SolveLinear(a, b int64, c float64, variable string) (model.SolutionResult, error) {
	if a == 0 {
		if float64(b) == c {
			return model.SolutionResult{}, model.NewError(model.KindNoUniqueSolution, "every value works")
		}
		return model.SolutionResult{}, model.NewError(model.KindNoUniqueSolution, "no value works")
	}

	rhs := c - float64(b)
	x := rhs / float64(a)
	term := linearTerm(a, variable)

	steps := make([]string, 0, 3)
	steps = append(steps, fmt.Sprintf("Start: %s = %s", linearSide(a, b, variable), FormatNumber(c)))

	switch {
	case b > 0:
		steps = append(steps, fmt.Sprintf("Subtract %d from both sides: %s = %s", b, term, FormatNumber(rhs)))
	case b < 0:
		steps = append(steps, fmt.Sprintf("Add %d to both sides: %s = %s", absInt(b), term, FormatNumber(rhs)))
	default:
		steps = append(steps, fmt.Sprintf("No constant term to move: %s = %s", term, FormatNumber(rhs)))
	}

	steps = append(steps, fmt.Sprintf("Divide both sides by %d: %s = %s", a, variable, FormatNumber(x)))

	return model.SolutionResult{
		Hint:   fmt.Sprintf("Tip: Undo the constant first, then divide by the number in front of %s.", variable),
		Steps:  steps,
		Answer: fmt.Sprintf("%s = %s", variable, FormatNumber(x)),
	}, nil
}

// linearTerm renders a*v as "2x", "x" or "-x".
func linearTerm(a int64, variable string) string {
	switch a {
	case 1:
		return variable
	case -1:
		return "-" + variable
	default:
		return strconv.FormatInt(a, 10) + variable
	}
}

// linearSide renders a*v + b as "2x + 7" or "2x - 7".
func linearSide(a, b int64, variable string) string {
	var s strings.Builder
	s.WriteString(linearTerm(a, variable))
	switch {
	case b > 0:
		fmt.Fprintf(&s, " + %d", b)
	case b < 0:
		fmt.Fprintf(&s, " - %d", absInt(b))
	}
	return s.String()
}

// absInt returns |n| without overflowing for math.MinInt64.
func absInt(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}
	return uint64(n)
}

// FormatNumber prints v without trailing zeros. Negative zero prints as "0".
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
