package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/studyhelper/internal/cas"
	"github.com/nao1215/studyhelper/internal/equation"
	"github.com/nao1215/studyhelper/internal/model"
)

// SolveAdvanced delegates left = right to the computer-algebra system.
//
// It builds the zero form left-(right), asks the CAS to expand it, then to
// solve the expansion for variable. CAS failures become solve_error with the
// CAS message attached; equations that hold for every value or for none
// become no_unique_solution. Cancellation of ctx is returned unwrapped.
func SolveAdvanced(ctx context.Context, c cas.Collaborator, left, right, variable string) (model.SolutionResult, error) {
	zeroForm := fmt.Sprintf("%s-(%s)", left, right)

	expanded, err := c.Expand(ctx, zeroForm)
	if err != nil {
		return model.SolutionResult{}, casError(err)
	}

	solved, err := c.SolveFor(ctx, expanded, variable)
	if err != nil {
		return model.SolutionResult{}, casError(err)
	}

	values := cas.ParseSolutionList(solved)
	if len(values) == 0 {
		return model.SolutionResult{}, model.NewError(model.KindSolveError, "no solution found")
	}

	assignments := make([]string, len(values))
	for i, v := range values {
		assignments[i] = fmt.Sprintf("%s = %s", variable, v)
	}

	steps := []string{
		fmt.Sprintf("Start: %s = %s", equation.Pretty(left), equation.Pretty(right)),
		fmt.Sprintf("Move everything to one side: %s = 0", equation.Pretty(expanded)),
		fmt.Sprintf("Solve for %s: %s", variable, equation.Pretty(strings.Join(assignments, " or "))),
	}

	return model.SolutionResult{
		Hint:   fmt.Sprintf("Tip: Move everything to one side (so it equals 0), then solve for %s.", variable),
		Steps:  steps,
		Answer: strings.Join(assignments, ", "),
	}, nil
}

func casError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, cas.ErrInfiniteSolutions), errors.Is(err, cas.ErrNoSolution):
		return model.WrapError(model.KindNoUniqueSolution, err)
	default:
		return model.WrapError(model.KindSolveError, err)
	}
}
