package cas

import (
	"math"
	"math/big"
	"strings"
)

// Binding strength used when printing, lowest first.
const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

// node is a parsed expression.
type node interface {
	// String prints the node in the syntax accepted by the parser.
	String() string

	// precedence is the binding strength of the node's outermost operator.
	precedence() int

	// eval evaluates the node numerically. Unbound symbols yield NaN.
	eval(env map[string]float64) float64

	// collectSymbols adds the free symbols of the node to out.
	collectSymbols(out map[string]bool)
}

type numberNode struct {
	val *big.Rat
}

func (n *numberNode) String() string { return n.val.RatString() }

func (n *numberNode) precedence() int {
	if n.val.Sign() < 0 || !n.val.IsInt() {
		return precNeg
	}
	return precAtom
}

func (n *numberNode) eval(map[string]float64) float64 {
	f, _ := n.val.Float64()
	return f
}

func (n *numberNode) collectSymbols(map[string]bool) {}

type symbolNode struct {
	name string
}

func (s *symbolNode) String() string  { return s.name }
func (s *symbolNode) precedence() int { return precAtom }

func (s *symbolNode) collectSymbols(out map[string]bool) {
	out[s.name] = true
}

func (s *symbolNode) eval(env map[string]float64) float64 {
	if v, ok := env[s.name]; ok {
		return v
	}
	return math.NaN()
}

// constantNode is a named constant such as pi.
type constantNode struct {
	name  string
	value float64
}

func (c *constantNode) String() string                  { return c.name }
func (c *constantNode) precedence() int                 { return precAtom }
func (c *constantNode) eval(map[string]float64) float64 { return c.value }
func (c *constantNode) collectSymbols(map[string]bool)  {}

type negNode struct {
	arg node
}

func (n *negNode) String() string {
	return "-" + wrap(n.arg, n.arg.precedence() < precMul)
}

func (n *negNode) precedence() int { return precNeg }

func (n *negNode) eval(env map[string]float64) float64 {
	return -n.arg.eval(env)
}

func (n *negNode) collectSymbols(out map[string]bool) {
	n.arg.collectSymbols(out)
}

type binaryNode struct {
	op          byte
	left, right node
}

func (b *binaryNode) precedence() int {
	switch b.op {
	case '+', '-':
		return precAdd
	case '*', '/':
		return precMul
	default:
		return precPow
	}
}

func (b *binaryNode) String() string {
	lp, rp := b.left.precedence(), b.right.precedence()

	var left, right string
	switch b.op {
	case '+':
		left = wrap(b.left, lp < precAdd)
		right = wrap(b.right, rp == precNeg)
	case '-':
		left = wrap(b.left, lp < precAdd)
		right = wrap(b.right, rp <= precAdd || rp == precNeg)
	case '*', '/':
		left = wrap(b.left, lp < precMul)
		right = wrap(b.right, rp <= precNeg)
	default:
		left = wrap(b.left, lp <= precPow)
		right = wrap(b.right, rp < precPow)
	}
	return left + string(b.op) + right
}

func (b *binaryNode) eval(env map[string]float64) float64 {
	l, r := b.left.eval(env), b.right.eval(env)
	switch b.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		if r == 0 {
			return math.NaN()
		}
		return l / r
	default:
		return math.Pow(l, r)
	}
}

func (b *binaryNode) collectSymbols(out map[string]bool) {
	b.left.collectSymbols(out)
	b.right.collectSymbols(out)
}

type callNode struct {
	name string
	arg  node
}

func (c *callNode) String() string  { return c.name + "(" + c.arg.String() + ")" }
func (c *callNode) precedence() int { return precAtom }

func (c *callNode) eval(env map[string]float64) float64 {
	fn, ok := functions[c.name]
	if !ok {
		return math.NaN()
	}
	return fn(c.arg.eval(env))
}

func (c *callNode) collectSymbols(out map[string]bool) {
	c.arg.collectSymbols(out)
}

// functions are the named functions the parser accepts.
// log is the base-10 logarithm and ln the natural one.
var functions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"log":  math.Log10,
	"ln":   math.Log,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"exp":  math.Exp,
}

// constants are the named constants the parser accepts.
var constants = map[string]float64{
	"pi": math.Pi,
}

// functionSuffix returns the function name word ends with, or "".
func functionSuffix(word string) string {
	word = strings.ToLower(word)
	best := ""
	for name := range functions {
		if strings.HasSuffix(word, name) && len(name) > len(best) {
			best = name
		}
	}
	return best
}

func wrap(n node, parens bool) string {
	if parens {
		return "(" + n.String() + ")"
	}
	return n.String()
}

func symbolsOf(n node) map[string]bool {
	out := make(map[string]bool)
	n.collectSymbols(out)
	return out
}
