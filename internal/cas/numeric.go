package cas

import (
	"context"
	"math"
	"slices"
	"strconv"
)

const (
	// bisectIterations bounds the refinement of one bracketed root.
	bisectIterations = 200

	// residualTolerance is how close to zero f must be at a refined root.
	// Sign changes across a pole converge to the pole but fail this check.
	residualTolerance = 1e-6

	// duplicateTolerance merges roots found in neighbouring intervals.
	duplicateTolerance = 1e-7

	// cancelCheckInterval is how many samples are scanned between checks
	// of the context.
	cancelCheckInterval = 1024
)

// findRoots scans [lo, hi] in steps intervals and refines every sign change
// by bisection. Samples where f is exactly zero are roots as well.
func findRoots(ctx context.Context, f func(float64) float64, lo, hi float64, steps int) ([]float64, error) {
	if steps <= 0 || hi <= lo {
		return nil, nil
	}
	h := (hi - lo) / float64(steps)

	var roots []float64
	prevX, prevF := lo, f(lo)
	if prevF == 0 {
		roots = append(roots, lo)
	}

	for i := 1; i <= steps; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		x := lo + float64(i)*h
		fx := f(x)
		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			continue
		}

		switch {
		case fx == 0:
			roots = append(roots, x)
		case isFinite(prevF) && prevF != 0 && (prevF < 0) != (fx < 0):
			if r, ok := bisect(f, prevX, x); ok {
				roots = append(roots, r)
			}
		}
		prevX, prevF = x, fx
	}
	return dedupeRoots(roots), nil
}

func bisect(f func(float64) float64, a, b float64) (float64, bool) {
	fa := f(a)
	for range bisectIterations {
		mid := a + (b-a)/2
		if mid == a || mid == b {
			break
		}
		fm := f(mid)
		if fm == 0 {
			a, b = mid, mid
			break
		}
		if (fa < 0) == (fm < 0) {
			a, fa = mid, fm
		} else {
			b = mid
		}
	}
	r := a + (b-a)/2
	fr := f(r)
	return r, isFinite(fr) && math.Abs(fr) < residualTolerance
}

func dedupeRoots(roots []float64) []float64 {
	slices.Sort(roots)
	out := roots[:0]
	for _, r := range roots {
		if len(out) > 0 && math.Abs(r-out[len(out)-1]) < duplicateTolerance {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// formatFloat prints v rounded to ten decimals, without trailing zeros.
func formatFloat(v float64) string {
	r := math.Round(v*1e10) / 1e10
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
