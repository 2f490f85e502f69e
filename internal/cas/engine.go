package cas

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strings"
)

const (
	// DefaultSearchBound is the half-width of the range scanned when an
	// expression is not a polynomial.
	DefaultSearchBound = 100.0

	// DefaultScanSteps is the number of intervals used by the numeric scan.
	DefaultScanSteps = 20000

	// maxRationalBits bounds the integer coefficients whose divisors are
	// enumerated by the rational root search.
	maxRationalBits = 32
)

// Engine is a local Collaborator.
type Engine struct {
	// bound is the half-width of the numeric search range.
	bound float64

	// steps is the number of scan intervals for numeric solving.
	steps int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSearchBound sets the half-width of the range scanned for roots of
// expressions that are not polynomials.
func WithSearchBound(bound float64) EngineOption {
	return func(e *Engine) {
		if bound > 0 {
			e.bound = bound
		}
	}
}

// WithScanSteps sets the number of scan intervals used by numeric solving.
func WithScanSteps(steps int) EngineOption {
	return func(e *Engine) {
		if steps > 0 {
			e.steps = steps
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		bound: DefaultSearchBound,
		steps: DefaultScanSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand implements Collaborator.
// Polynomials are multiplied out; other expressions are returned in
// canonical printed form.
func (e *Engine) Expand(ctx context.Context, expr string) (string, error) {
	n, err := parse(expr)
	if err != nil {
		return "", err
	}
	p, ok, err := toPoly(ctx, n)
	if err != nil {
		return "", err
	}
	if !ok {
		return n.String(), nil
	}
	return p.String(), nil
}

// SolveFor implements Collaborator.
func (e *Engine) SolveFor(ctx context.Context, expr, variable string) (string, error) {
	n, err := parse(expr)
	if err != nil {
		return "", err
	}

	var roots []root
	p, ok, err := toPoly(ctx, n)
	switch {
	case err != nil:
		return "", err
	case ok:
		roots, err = e.solvePolynomial(ctx, p, variable)
	default:
		roots, err = e.solveNumeric(ctx, n, variable)
	}
	if err != nil {
		return "", err
	}

	values := make([]string, len(roots))
	for i, r := range roots {
		values[i] = r.text
	}
	return FormatSolutionList(values), nil
}

// root is one solution with its exact or rounded text form.
type root struct {
	value float64
	text  string
}

func exactRoot(r *big.Rat) root {
	f, _ := r.Float64()
	return root{value: f, text: r.RatString()}
}

func floatRoot(f float64) root {
	return root{value: f, text: formatFloat(f)}
}

// sortRoots orders roots ascending and drops duplicates.
func sortRoots(roots []root) []root {
	slices.SortFunc(roots, func(a, b root) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		default:
			return strings.Compare(a.text, b.text)
		}
	})
	return slices.CompactFunc(roots, func(a, b root) bool {
		return a.text == b.text || math.Abs(a.value-b.value) < duplicateTolerance
	})
}

func (e *Engine) solvePolynomial(ctx context.Context, p poly, variable string) ([]root, error) {
	coeffs, ok := p.coefficients(variable)
	if !ok {
		return nil, otherSymbolsError(p.symbols(), variable)
	}

	degree := len(coeffs) - 1
	for degree >= 0 && coeffs[degree].Sign() == 0 {
		degree--
	}
	switch degree {
	case -1:
		return nil, ErrInfiniteSolutions
	case 0:
		return nil, ErrNoSolution
	}
	c := coeffs[:degree+1]

	var roots []root
	if c[0].Sign() == 0 {
		roots = append(roots, exactRoot(new(big.Rat)))
		for c[0].Sign() == 0 {
			c = c[1:]
		}
	}

	for len(c) > 3 {
		r, found := rationalRoot(c)
		if !found {
			break
		}
		roots = append(roots, exactRoot(r))
		c = deflate(c, r)
	}

	// Repeated irrational roots touch zero without a sign change.
	if len(c) > 3 {
		c = squareFree(c)
	}

	switch len(c) - 1 {
	case 0:
	case 1:
		roots = append(roots, exactRoot(new(big.Rat).Quo(new(big.Rat).Neg(c[0]), c[1])))
	case 2:
		roots = append(roots, quadraticRoots(c[2], c[1], c[0])...)
	default:
		found, err := e.numericPolynomialRoots(ctx, c)
		if err != nil {
			return nil, err
		}
		roots = append(roots, found...)
	}

	if len(roots) == 0 {
		return nil, ErrNoRealSolutions
	}
	return sortRoots(roots), nil
}

func (e *Engine) solveNumeric(ctx context.Context, n node, variable string) ([]root, error) {
	syms := symbolsOf(n)
	delete(syms, variable)
	if len(syms) > 0 {
		names := make([]string, 0, len(syms))
		for name := range syms {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, otherSymbolsError(names, variable)
	}

	f := func(x float64) float64 {
		return n.eval(map[string]float64{variable: x})
	}
	if !symbolsOf(n)[variable] {
		if v := f(0); v == 0 {
			return nil, ErrInfiniteSolutions
		}
		return nil, ErrNoSolution
	}

	found, err := findRoots(ctx, f, -e.bound, e.bound, e.steps)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNoRealSolutions
	}
	roots := make([]root, len(found))
	for i, r := range found {
		roots[i] = floatRoot(r)
	}
	return sortRoots(roots), nil
}

func otherSymbolsError(symbols []string, variable string) error {
	var others []string
	for _, s := range symbols {
		if s != variable {
			others = append(others, s)
		}
	}
	return fmt.Errorf("%w: cannot solve for %s while %s remain", ErrUnsupported, variable, strings.Join(others, ", "))
}

// quadraticRoots solves a*x^2 + b*x + c = 0. Roots are exact when the
// discriminant is a perfect square.
func quadraticRoots(a, b, c *big.Rat) []root {
	disc := new(big.Rat).Mul(b, b)
	disc.Sub(disc, new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))

	twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
	negB := new(big.Rat).Neg(b)

	switch disc.Sign() {
	case -1:
		return nil
	case 0:
		return []root{exactRoot(new(big.Rat).Quo(negB, twoA))}
	}

	if s, ok := ratSqrt(disc); ok {
		return []root{
			exactRoot(new(big.Rat).Quo(new(big.Rat).Sub(negB, s), twoA)),
			exactRoot(new(big.Rat).Quo(new(big.Rat).Add(negB, s), twoA)),
		}
	}

	af, _ := a.Float64()
	bf, _ := b.Float64()
	df, _ := disc.Float64()
	sq := math.Sqrt(df)
	return []root{
		floatRoot((-bf - sq) / (2 * af)),
		floatRoot((-bf + sq) / (2 * af)),
	}
}

// ratSqrt returns the exact square root of a non-negative rational.
func ratSqrt(r *big.Rat) (*big.Rat, bool) {
	num, den := r.Num(), r.Denom()
	sn, sd := new(big.Int).Sqrt(num), new(big.Int).Sqrt(den)
	if new(big.Int).Mul(sn, sn).Cmp(num) != 0 || new(big.Int).Mul(sd, sd).Cmp(den) != 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac(sn, sd), true
}

// rationalRoot searches ±p/q, p dividing the constant term and q the leading
// coefficient of the integer-scaled polynomial. c[0] must be non-zero.
func rationalRoot(c []*big.Rat) (*big.Rat, bool) {
	ints := integerCoefficients(c)
	a0 := new(big.Int).Abs(ints[0])
	an := new(big.Int).Abs(ints[len(ints)-1])
	if a0.BitLen() > maxRationalBits || an.BitLen() > maxRationalBits {
		return nil, false
	}

	for _, p := range divisors(a0.Int64()) {
		for _, q := range divisors(an.Int64()) {
			for _, sign := range []int64{1, -1} {
				cand := big.NewRat(sign*p, q)
				if evalRat(c, cand).Sign() == 0 {
					return cand, true
				}
			}
		}
	}
	return nil, false
}

// integerCoefficients scales c by the lcm of its denominators.
func integerCoefficients(c []*big.Rat) []*big.Int {
	lcm := big.NewInt(1)
	for _, r := range c {
		d := r.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}

	out := make([]*big.Int, len(c))
	for i, r := range c {
		scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(lcm))
		out[i] = new(big.Int).Set(scaled.Num())
	}
	return out
}

func divisors(n int64) []int64 {
	var small, large []int64
	for d := int64(1); d*d <= n; d++ {
		if n%d != 0 {
			continue
		}
		small = append(small, d)
		if d != n/d {
			large = append(large, n/d)
		}
	}
	slices.Reverse(large)
	return append(small, large...)
}

// evalRat evaluates the polynomial c at x by Horner's rule.
func evalRat(c []*big.Rat, x *big.Rat) *big.Rat {
	acc := new(big.Rat)
	for i := len(c) - 1; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, c[i])
	}
	return acc
}

// deflate divides c by (x - r). r must be a root of c.
func deflate(c []*big.Rat, r *big.Rat) []*big.Rat {
	n := len(c) - 1
	q := make([]*big.Rat, n)
	q[n-1] = new(big.Rat).Set(c[n])
	for i := n - 1; i > 0; i-- {
		q[i-1] = new(big.Rat).Add(c[i], new(big.Rat).Mul(r, q[i]))
	}
	return q
}

// squareFree returns c / gcd(c, c'), which has the same real roots as c,
// each with multiplicity one.
func squareFree(c []*big.Rat) []*big.Rat {
	g := polyGCD(c, derivative(c))
	if len(g) <= 1 {
		return c
	}
	q, _ := polyDivMod(c, g)
	return q
}

// derivative returns the coefficients of dc/dx.
func derivative(c []*big.Rat) []*big.Rat {
	if len(c) <= 1 {
		return nil
	}
	d := make([]*big.Rat, len(c)-1)
	for i := 1; i < len(c); i++ {
		d[i-1] = new(big.Rat).Mul(c[i], big.NewRat(int64(i), 1))
	}
	return trimZeros(d)
}

// trimZeros drops zero leading coefficients. The zero polynomial is empty.
func trimZeros(c []*big.Rat) []*big.Rat {
	for len(c) > 0 && c[len(c)-1].Sign() == 0 {
		c = c[:len(c)-1]
	}
	return c
}

// polyDivMod divides a by the non-zero polynomial b.
func polyDivMod(a, b []*big.Rat) (q, r []*big.Rat) {
	r = make([]*big.Rat, len(a))
	for i, v := range a {
		r[i] = new(big.Rat).Set(v)
	}
	r = trimZeros(r)
	if len(r) < len(b) {
		return nil, r
	}

	q = make([]*big.Rat, len(r)-len(b)+1)
	for i := range q {
		q[i] = new(big.Rat)
	}
	lead := b[len(b)-1]
	for len(r) >= len(b) {
		shift := len(r) - len(b)
		f := new(big.Rat).Quo(r[len(r)-1], lead)
		q[shift] = f
		for i, v := range b {
			r[i+shift].Sub(r[i+shift], new(big.Rat).Mul(f, v))
		}
		r = trimZeros(r)
	}
	return q, r
}

// polyGCD returns the monic greatest common divisor of a and b.
func polyGCD(a, b []*big.Rat) []*big.Rat {
	a, b = trimZeros(a), trimZeros(b)
	for len(b) > 0 {
		_, r := polyDivMod(a, b)
		a, b = b, r
	}
	if len(a) == 0 {
		return nil
	}
	lead := new(big.Rat).Set(a[len(a)-1])
	out := make([]*big.Rat, len(a))
	for i, v := range a {
		out[i] = new(big.Rat).Quo(v, lead)
	}
	return out
}

// numericPolynomialRoots brackets the real roots of c inside its Cauchy bound.
func (e *Engine) numericPolynomialRoots(ctx context.Context, c []*big.Rat) ([]root, error) {
	fc := make([]float64, len(c))
	for i, r := range c {
		fc[i], _ = r.Float64()
	}
	lead := fc[len(fc)-1]

	bound := 0.0
	for _, v := range fc[:len(fc)-1] {
		bound = max(bound, math.Abs(v/lead))
	}
	bound++

	f := func(x float64) float64 {
		acc := 0.0
		for i := len(fc) - 1; i >= 0; i-- {
			acc = acc*x + fc[i]
		}
		return acc
	}

	found, err := findRoots(ctx, f, -bound, bound, e.steps)
	if err != nil {
		return nil, err
	}
	roots := make([]root, len(found))
	for i, r := range found {
		roots[i] = floatRoot(r)
	}
	return roots, nil
}
