package solver

import (
	"context"

	"github.com/nao1215/studyhelper/internal/cas"
	"github.com/nao1215/studyhelper/internal/equation"
	"github.com/nao1215/studyhelper/internal/model"
)

// Solver routes a classified equation to the linear derivation or the CAS.
type Solver struct {
	cas cas.Collaborator
}

// New creates a Solver that delegates Advanced equations to c.
// When c is nil the local cas.Engine is used.
func New(c cas.Collaborator) *Solver {
	if c == nil {
		c = cas.NewEngine()
	}
	return &Solver{cas: c}
}

// Solve solves left = right for variable according to class.
// Any failure is returned as a *model.Error, except cancellation of ctx.
func (s *Solver) Solve(ctx context.Context, class model.Class, left, right, variable string) (model.SolutionResult, error) {
	if err := ctx.Err(); err != nil {
		return model.SolutionResult{}, err
	}
	if class != model.ClassLinear {
		return SolveAdvanced(ctx, s.cas, left, right, variable)
	}

	a, b, c, err := equation.ParseLinear(left, right, variable)
	if err != nil {
		return model.SolutionResult{}, err
	}
	return SolveLinear(a, b, c, variable)
}
