// Package cas defines the computer-algebra contract used by the solver and
// provides Engine, a small local implementation of it.
//
// Engine parses the ASCII syntax produced by the equation normalizer:
// numbers, single-letter symbols, + - * / ^, parentheses, implicit products,
// the functions sin cos tan log ln sqrt abs exp, and the constant pi.
//
// Polynomial expressions are handled exactly with math/big rationals.
// Expansion multiplies everything out and prints terms by descending degree,
// so "(x-2)*(x-3)" expands to "x^2-5*x+6". Solving uses the rational root
// theorem, exact quadratic roots and deflation before falling back to
// bisection. Expressions that are not polynomials are solved numerically
// over a bounded range.
package cas
