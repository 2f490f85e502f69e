package cas

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// parser is a recursive-descent parser for normalized equation text.
//
// Precedence (low to high):
//  1. + - (additive)
//  2. * / and implicit multiplication
//  3. unary minus
//  4. ^ (right associative)
//  5. primaries: numbers, symbols, constants, calls, (...)
type parser struct {
	src []rune
	pos int
}

// parse parses a complete expression.
func parse(s string) (node, error) {
	p := &parser{src: []rune(strings.TrimSpace(s))}
	if len(p.src) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	n, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, p.src[p.pos], p.pos)
	}
	return n, nil
}

func (p *parser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseAddSub() (node, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: byte(op), left: left, right: right}
	}
}

func (p *parser) parseMulDiv() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		switch {
		case op == '*' || op == '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: byte(op), left: left, right: right}
		case startsPrimary(op):
			// Implicit multiplication such as "x2" or "2pi".
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: '*', left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	switch p.peek() {
	case '-':
		p.pos++
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{arg: arg}, nil
	case '+':
		p.pos++
		return p.parseUnary()
	default:
		return p.parsePower()
	}
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek() != '^' {
		return base, nil
	}
	p.pos++
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: '^', left: base, right: exp}, nil
}

func (p *parser) parsePrimary() (node, error) {
	r := p.peek()
	switch {
	case r == 0:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	case isNumberStart(r):
		return p.parseNumber()
	case unicode.IsLetter(r):
		return p.parseIdentifier()
	case r == '(':
		p.pos++
		inner, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("%w: expected ')' at position %d", ErrSyntax, p.pos)
		}
		p.pos++
		return inner, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, r, p.pos)
	}
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		p.pos++
	}

	text := strings.TrimSuffix(string(p.src[start:p.pos]), ".")
	if text == "" {
		return nil, fmt.Errorf("%w: malformed number at position %d", ErrSyntax, start)
	}
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	val, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, fmt.Errorf("%w: malformed number %q", ErrSyntax, text)
	}
	return &numberNode{val: val}, nil
}

// parseIdentifier reads a function call, a constant or one single-letter
// symbol. Longer unknown words are read one letter at a time, so "ab" is
// the product a*b and the caller's implicit multiplication joins them.
func (p *parser) parseIdentifier() (node, error) {
	end := p.pos
	for end < len(p.src) && unicode.IsLetter(p.src[end]) {
		end++
	}
	word := string(p.src[p.pos:end])
	lower := strings.ToLower(word)

	if end < len(p.src) && p.src[end] == '(' {
		if name := functionSuffix(lower); name != "" {
			if len(name) == len([]rune(lower)) {
				return p.parseCall(name, end)
			}
			// Letters before the function name are symbols, e.g. "xsin(x)".
			return p.parseSymbol()
		}
	}

	if value, ok := constants[lower]; ok {
		p.pos = end
		return &constantNode{name: lower, value: value}, nil
	}
	return p.parseSymbol()
}

func (p *parser) parseSymbol() (node, error) {
	name := string(p.src[p.pos])
	p.pos++
	return &symbolNode{name: name}, nil
}

func (p *parser) parseCall(name string, open int) (node, error) {
	p.pos = open + 1
	arg, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if p.peek() != ')' {
		return nil, fmt.Errorf("%w: expected ')' after %s argument at position %d", ErrSyntax, name, p.pos)
	}
	p.pos++
	return &callNode{name: name, arg: arg}, nil
}

func startsPrimary(r rune) bool {
	return isNumberStart(r) || unicode.IsLetter(r) || r == '('
}

func isNumberStart(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.'
}
