package equation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FunctionNames are the named functions understood by the solver.
// A letter run ending in one of these names and followed by '(' is a call,
// not a product, so no '*' is inserted before the parenthesis.
var FunctionNames = []string{"sqrt", "sin", "cos", "tan", "log", "abs", "exp", "ln"}

// superscripts maps superscript characters to their ASCII equivalent.
// They are handled before NFKC, which would otherwise fold "x²" into "x2".
var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
	'⁻': '-', '⁺': '+',
}

// symbolReplacer maps unicode operators onto their ASCII form.
var symbolReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"﹣", "-", // small hyphen-minus
	"－", "-", // full-width hyphen-minus
	"×", "*",
	"·", "*",
	"⋅", "*",
	"∙", "*",
	"÷", "/",
	"∕", "/",
)

// Normalize canonicalizes raw equation text.
//
// The result has no whitespace, uses ASCII operators only, and makes implicit
// multiplication explicit: "2x" becomes "2*x", "3(x+1)" becomes "3*(x+1)",
// "(x)(y)" becomes "(x)*(y)". Normalize never fails; an empty or blank input
// yields "". Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = foldSuperscripts(s)
	s = norm.NFKC.String(s)
	s = symbolReplacer.Replace(s)
	s = stripSpace(s)

	return insertMultiplication(s)
}

// foldSuperscripts rewrites each run of superscript characters as a power,
// so "x²" becomes "x^2" and "x¹⁰" becomes "x^10".
func foldSuperscripts(s string) string {
	if !strings.ContainsFunc(s, isSuperscript) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	inRun := false
	for _, r := range s {
		ascii, ok := superscripts[r]
		if !ok {
			inRun = false
			b.WriteRune(r)
			continue
		}
		if !inRun {
			b.WriteByte('^')
			inRun = true
		}
		b.WriteRune(ascii)
	}
	return b.String()
}

func isSuperscript(r rune) bool {
	_, ok := superscripts[r]
	return ok
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// insertMultiplication makes implicit products explicit in a single pass over
// adjacent pairs: digit→letter, ')'→letter, letter→'(', digit→'(' and ')'→'('.
// The inserted '*' never forms a new matching pair, which keeps the operation
// idempotent.
func insertMultiplication(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/2)

	b.WriteRune(runes[0])
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if needsMultiplication(runes, i, prev, cur) {
			b.WriteByte('*')
		}
		b.WriteRune(cur)
	}
	return b.String()
}

func needsMultiplication(runes []rune, i int, prev, cur rune) bool {
	switch {
	case isDigit(prev) && unicode.IsLetter(cur):
		return true
	case prev == ')' && unicode.IsLetter(cur):
		return true
	case unicode.IsLetter(prev) && cur == '(':
		return !endsWithFunctionName(runes[:i])
	case isDigit(prev) && cur == '(':
		return true
	case prev == ')' && cur == '(':
		return true
	default:
		return false
	}
}

// endsWithFunctionName reports whether the letter run at the end of runes
// ends with one of FunctionNames.
func endsWithFunctionName(runes []rune) bool {
	start := len(runes)
	for start > 0 && unicode.IsLetter(runes[start-1]) {
		start--
	}
	word := strings.ToLower(string(runes[start:]))
	return functionSuffix(word) != ""
}

// functionSuffix returns the function name that word ends with, or "".
func functionSuffix(word string) string {
	for _, name := range FunctionNames {
		if strings.HasSuffix(word, name) {
			return name
		}
	}
	return ""
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// prettyProduct matches an explicit product between a coefficient and a
// symbol or parenthesis.
var prettyProduct = regexp.MustCompile(`(\d)\*([A-Za-z(])`)

// Pretty renders normalized text for display: coefficient products are
// written implicitly, remaining products as '·' and minus signs as '−'.
// Pretty output is for people only and is never fed back to a solver.
func Pretty(normalized string) string {
	s := prettyProduct.ReplaceAllString(normalized, "$1$2")
	return strings.NewReplacer("*", "·", "-", "−").Replace(s)
}
