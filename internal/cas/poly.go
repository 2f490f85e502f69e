package cas

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

const (
	// maxExponent bounds integer powers expanded symbolically.
	maxExponent = 64

	// maxTerms bounds the size of an expanded polynomial.
	maxTerms = 4096

	// maxCoefficientBits bounds the numerator and denominator of every
	// coefficient produced by a product.
	maxCoefficientBits = 4096
)

// errTooLarge is returned when an expansion exceeds maxTerms,
// maxExponent or maxCoefficientBits.
var errTooLarge = fmt.Errorf("%w: expression too large to expand", ErrUnsupported)

// term is one monomial with an exact rational coefficient.
type term struct {
	coef   *big.Rat
	powers map[string]int
}

// poly is a multivariate polynomial keyed by monomial.
// Zero coefficients are never stored, so the zero polynomial is empty.
type poly map[string]term

func monomialKey(powers map[string]int) string {
	names := make([]string, 0, len(powers))
	for name := range powers {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(name)
		if e := powers[name]; e != 1 {
			b.WriteByte('^')
			b.WriteString(strconv.Itoa(e))
		}
	}
	return b.String()
}

func constPoly(r *big.Rat) poly {
	p := poly{}
	if r.Sign() != 0 {
		p[""] = term{coef: new(big.Rat).Set(r), powers: map[string]int{}}
	}
	return p
}

func symbolPoly(name string) poly {
	powers := map[string]int{name: 1}
	return poly{monomialKey(powers): term{coef: big.NewRat(1, 1), powers: powers}}
}

// addTerm adds coef*powers to p in place.
func (p poly) addTerm(coef *big.Rat, powers map[string]int) {
	key := monomialKey(powers)
	if existing, ok := p[key]; ok {
		sum := new(big.Rat).Add(existing.coef, coef)
		if sum.Sign() == 0 {
			delete(p, key)
			return
		}
		p[key] = term{coef: sum, powers: existing.powers}
		return
	}
	if coef.Sign() == 0 {
		return
	}
	p[key] = term{coef: new(big.Rat).Set(coef), powers: powers}
}

func (p poly) add(q poly) poly {
	out := poly{}
	for _, t := range p {
		out.addTerm(t.coef, t.powers)
	}
	for _, t := range q {
		out.addTerm(t.coef, t.powers)
	}
	return out
}

func (p poly) scale(r *big.Rat) poly {
	out := poly{}
	for _, t := range p {
		out.addTerm(new(big.Rat).Mul(t.coef, r), t.powers)
	}
	return out
}

func (p poly) neg() poly {
	return p.scale(big.NewRat(-1, 1))
}

func (p poly) mul(ctx context.Context, q poly) (poly, error) {
	if len(p)*len(q) > maxTerms*maxTerms {
		return nil, errTooLarge
	}
	out := poly{}
	for _, a := range p {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, b := range q {
			powers := make(map[string]int, len(a.powers)+len(b.powers))
			for name, e := range a.powers {
				powers[name] += e
			}
			for name, e := range b.powers {
				powers[name] += e
			}
			if totalDegree(powers) > maxExponent {
				return nil, errTooLarge
			}
			coef := new(big.Rat).Mul(a.coef, b.coef)
			if coef.Num().BitLen() > maxCoefficientBits || coef.Denom().BitLen() > maxCoefficientBits {
				return nil, errTooLarge
			}
			out.addTerm(coef, powers)
		}
	}
	if len(out) > maxTerms {
		return nil, errTooLarge
	}
	return out, nil
}

func (p poly) pow(ctx context.Context, n int) (poly, error) {
	out := constPoly(big.NewRat(1, 1))
	for range n {
		var err error
		if out, err = out.mul(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// constant returns the value of p when it has no symbols.
func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p[""]; ok {
			return new(big.Rat).Set(t.coef), true
		}
	}
	return nil, false
}

// symbols returns the sorted symbols of p.
func (p poly) symbols() []string {
	seen := make(map[string]bool)
	for _, t := range p {
		for name := range t.powers {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// coefficients returns the coefficients of p in variable, lowest degree
// first. It reports false when p contains any other symbol.
func (p poly) coefficients(variable string) ([]*big.Rat, bool) {
	degree := 0
	for _, t := range p {
		for name, e := range t.powers {
			if name != variable {
				return nil, false
			}
			degree = max(degree, e)
		}
	}

	coeffs := make([]*big.Rat, degree+1)
	for i := range coeffs {
		coeffs[i] = new(big.Rat)
	}
	for _, t := range p {
		coeffs[t.powers[variable]].Add(coeffs[t.powers[variable]], t.coef)
	}
	return coeffs, true
}

func totalDegree(powers map[string]int) int {
	d := 0
	for _, e := range powers {
		d += e
	}
	return d
}

// String prints p with terms ordered by descending total degree,
// e.g. "x^2-5*x+6".
func (p poly) String() string {
	if len(p) == 0 {
		return "0"
	}

	names := p.symbols()
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	// Graded lexicographic order: x^2 before x*y before y^2.
	slices.SortFunc(keys, func(a, b string) int {
		pa, pb := p[a].powers, p[b].powers
		if da, db := totalDegree(pa), totalDegree(pb); da != db {
			return db - da
		}
		for _, name := range names {
			if pa[name] != pb[name] {
				return pb[name] - pa[name]
			}
		}
		return strings.Compare(a, b)
	})

	var b strings.Builder
	for i, key := range keys {
		s := formatTerm(p[key].coef, key)
		if i > 0 && !strings.HasPrefix(s, "-") {
			b.WriteByte('+')
		}
		b.WriteString(s)
	}
	return b.String()
}

func formatTerm(coef *big.Rat, monomial string) string {
	switch {
	case monomial == "":
		return coef.RatString()
	case coef.Cmp(big.NewRat(1, 1)) == 0:
		return monomial
	case coef.Cmp(big.NewRat(-1, 1)) == 0:
		return "-" + monomial
	default:
		return coef.RatString() + "*" + monomial
	}
}

// toPoly converts n into a polynomial. It reports false, without error, when
// n is not a polynomial: symbolic exponents, division by a non-constant,
// calls with symbolic arguments, or constants such as pi.
func toPoly(ctx context.Context, n node) (poly, bool, error) {
	switch v := n.(type) {
	case *numberNode:
		return constPoly(v.val), true, nil
	case *symbolNode:
		return symbolPoly(v.name), true, nil
	case *constantNode:
		return nil, false, nil
	case *negNode:
		arg, ok, err := toPoly(ctx, v.arg)
		if !ok || err != nil {
			return nil, ok, err
		}
		return arg.neg(), true, nil
	case *callNode:
		return callToPoly(ctx, v)
	case *binaryNode:
		return binaryToPoly(ctx, v)
	default:
		return nil, false, nil
	}
}

func binaryToPoly(ctx context.Context, b *binaryNode) (poly, bool, error) {
	left, ok, err := toPoly(ctx, b.left)
	if !ok || err != nil {
		return nil, ok, err
	}
	right, ok, err := toPoly(ctx, b.right)
	if !ok || err != nil {
		return nil, ok, err
	}

	switch b.op {
	case '+':
		return left.add(right), true, nil
	case '-':
		return left.add(right.neg()), true, nil
	case '*':
		out, err := left.mul(ctx, right)
		return out, err == nil, err
	case '/':
		divisor, isConst := right.constant()
		if !isConst {
			return nil, false, nil
		}
		if divisor.Sign() == 0 {
			return nil, false, ErrDivisionByZero
		}
		return left.scale(new(big.Rat).Inv(divisor)), true, nil
	default:
		return powToPoly(ctx, left, right)
	}
}

func powToPoly(ctx context.Context, base, exp poly) (poly, bool, error) {
	e, isConst := exp.constant()
	if !isConst || !e.IsInt() || !e.Num().IsInt64() {
		return nil, false, nil
	}
	n := e.Num().Int64()

	if n < 0 {
		// Negative powers are only exact for non-zero constants.
		c, isConst := base.constant()
		if !isConst || n < -maxExponent {
			return nil, false, nil
		}
		if c.Sign() == 0 {
			return nil, false, ErrDivisionByZero
		}
		out, err := constPoly(new(big.Rat).Inv(c)).pow(ctx, int(-n))
		return out, err == nil, err
	}
	if n > maxExponent {
		return nil, false, nil
	}
	out, err := base.pow(ctx, int(n))
	return out, err == nil, err
}

// callToPoly folds calls with constant arguments whose value is an integer,
// such as sqrt(4) or abs(-3). Anything else is not a polynomial.
func callToPoly(ctx context.Context, c *callNode) (poly, bool, error) {
	arg, ok, err := toPoly(ctx, c.arg)
	if !ok || err != nil {
		return nil, ok, err
	}
	val, isConst := arg.constant()
	if !isConst {
		return nil, false, nil
	}
	if c.name == "abs" {
		return constPoly(new(big.Rat).Abs(val)), true, nil
	}

	f, _ := val.Float64()
	result := functions[c.name](f)
	rounded := math.Round(result)
	if math.IsNaN(result) || math.IsInf(result, 0) || math.Abs(result-rounded) > 1e-12 || math.Abs(rounded) > 1<<53 {
		return nil, false, nil
	}
	return constPoly(new(big.Rat).SetInt64(int64(rounded))), true, nil
}
