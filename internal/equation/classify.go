package equation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/nao1215/studyhelper/internal/model"
)

var (
	// linearLeft matches "[sign][coef[*]]v[±const]".
	// Groups: 1 sign, 2 coefficient, 3 variable, 4 constant.
	linearLeft = regexp.MustCompile(`^([+-]?)(?:(\d+)\*?)?([A-Za-z])([+-]\d+)?$`)

	// numericRight matches a bare, optionally signed integer or decimal.
	numericRight = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)

	// coefficientProduct matches the '*' that Normalize puts between an
	// integer coefficient and a letter. It is not an advanced signal.
	coefficientProduct = regexp.MustCompile(`(\d)\*([A-Za-z])`)
)

// Classify decides whether left = right can be solved by the manual linear
// derivation.
//
// The equation is Linear when the left side reads "[coef]v[±const]" for the
// variable v, the right side is a plain number, and none of the advanced
// signals is present anywhere in the equation: '^', parentheses, '*', '/',
// a named function, or a letter other than the variable. Coefficients and
// constants that do not fit in an int64 make the equation Advanced.
func Classify(left, right, variable string) model.Class {
	if hasAdvancedSignal(left, variable) || hasAdvancedSignal(right, variable) {
		return model.ClassAdvanced
	}
	m := linearLeft.FindStringSubmatch(left)
	if m == nil || m[3] != variable {
		return model.ClassAdvanced
	}
	if !numericRight.MatchString(right) || !linearNumbersFit(m, right) {
		return model.ClassAdvanced
	}
	return model.ClassLinear
}

// linearNumbersFit reports whether the numbers of a linearLeft match and the
// right side are within the range ParseLinear accepts.
func linearNumbersFit(m []string, right string) bool {
	for _, s := range []string{m[2], m[4]} {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return false
		}
	}
	_, err := strconv.ParseFloat(right, 64)
	return err == nil
}

// hasAdvancedSignal reports whether side contains anything the linear
// derivation cannot handle.
func hasAdvancedSignal(side, variable string) bool {
	collapsed := coefficientProduct.ReplaceAllString(side, "$1$2")
	if strings.ContainsAny(collapsed, "^()*/") {
		return true
	}

	letters, hasFunc := symbols(side)
	if hasFunc {
		return true
	}
	for _, r := range letters {
		if string(r) != variable {
			return true
		}
	}
	return false
}

// symbols returns the letters of s that act as symbols, in order of first
// appearance. Function names followed by '(' are not symbols; hasFunc reports
// whether any were seen. The constant "pi" is skipped.
func symbols(s string) (letters []rune, hasFunc bool) {
	seen := make(map[rune]bool)
	runes := []rune(s)

	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsLetter(runes[j]) {
			j++
		}
		word := runes[i:j]
		lower := strings.ToLower(string(word))

		if j < len(runes) && runes[j] == '(' {
			if name := functionSuffix(lower); name != "" {
				hasFunc = true
				word = word[:len(word)-len([]rune(name))]
			}
		}
		if lower == "pi" {
			word = nil
		}
		for _, r := range word {
			if !seen[r] {
				seen[r] = true
				letters = append(letters, r)
			}
		}
		i = j
	}
	return letters, hasFunc
}

// DetectVariable picks the symbol to solve for.
//
// When fallback appears in the equation, or the equation has no symbols or
// several, fallback is returned. When fallback is absent and exactly one
// other letter appears, that letter is returned, so "3y+1=10" is solved for y.
func DetectVariable(normalized, fallback string) string {
	letters, _ := symbols(normalized)
	for _, r := range letters {
		if string(r) == fallback {
			return fallback
		}
	}
	if len(letters) == 1 {
		return string(letters[0])
	}
	return fallback
}

// ParseLinear reads a Linear equation back as a*v + b = c.
//
// A missing coefficient is 1 (or -1 after a leading '-') and a missing
// constant is 0. It fails with unrecognized_linear_form when the left side
// does not match the linear grammar for variable, and with
// non_numeric_right_side when the right side is not a number.
func ParseLinear(left, right, variable string) (a, b int64, c float64, err error) {
	m := linearLeft.FindStringSubmatch(left)
	if m == nil || m[3] != variable {
		return 0, 0, 0, model.NewError(model.KindUnrecognizedLinearForm, left)
	}

	a = 1
	if m[2] != "" {
		a, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, 0, 0, &model.Error{Kind: model.KindUnrecognizedLinearForm, Message: "coefficient out of range", Err: err}
		}
	}
	if m[1] == "-" {
		a = -a
	}

	if m[4] != "" {
		b, err = strconv.ParseInt(m[4], 10, 64)
		if err != nil {
			return 0, 0, 0, &model.Error{Kind: model.KindUnrecognizedLinearForm, Message: "constant out of range", Err: err}
		}
	}

	if !numericRight.MatchString(right) {
		return 0, 0, 0, model.NewError(model.KindNonNumericRightSide, right)
	}
	c, err = strconv.ParseFloat(right, 64)
	if err != nil {
		return 0, 0, 0, &model.Error{Kind: model.KindNonNumericRightSide, Message: right, Err: err}
	}
	return a, b, c, nil
}
