package model

import "fmt"

// ErrorKind identifies the category of a domain error.
// Kinds are stable strings because they are shown in hints, returned by the
// HTTP API and stored in the history database.
type ErrorKind string

const (
	// KindEmptyInput is reported when the input is empty after normalization.
	KindEmptyInput ErrorKind = "empty_input"

	// KindMissingEquals is reported when the equation has no '=' sign.
	KindMissingEquals ErrorKind = "missing_equals"

	// KindMalformedEquals is reported for more than one '=' or an empty side.
	KindMalformedEquals ErrorKind = "malformed_equals"

	// KindUnrecognizedLinearForm is reported when a Linear equation cannot be
	// read back as a*x+b.
	KindUnrecognizedLinearForm ErrorKind = "unrecognized_linear_form"

	// KindNonNumericRightSide is reported when the right side of a Linear
	// equation is not a number.
	KindNonNumericRightSide ErrorKind = "non_numeric_right_side"

	// KindNoUniqueSolution is reported when the coefficient of the variable is zero.
	KindNoUniqueSolution ErrorKind = "no_unique_solution"

	// KindSolveError is reported when the computer-algebra system fails.
	KindSolveError ErrorKind = "solve_error"

	// KindOCRFailure is reported when text recognition fails.
	KindOCRFailure ErrorKind = "ocr_failure"

	// KindOCRNoEquationFound is reported when recognition returns no usable line.
	KindOCRNoEquationFound ErrorKind = "ocr_no_equation_found"
)

// kindHints maps each kind to the human-readable advice shown to the user.
var kindHints = map[ErrorKind]string{
	KindEmptyInput:             "Type an equation, like 2x+7=25 or x^2-5x+6=0.",
	KindMissingEquals:          "Please enter an equation with an '=' sign, like 2x+7=25.",
	KindMalformedEquals:        "Please enter a valid equation with ONE '=' sign and something on both sides.",
	KindUnrecognizedLinearForm: "Could not read this as a*x + b = c.",
	KindNonNumericRightSide:    "The right side must be a plain number for the step-by-step method.",
	KindNoUniqueSolution:       "This equation does not have exactly one solution.",
	KindSolveError:             "Couldn't solve that. Try rewriting it more clearly (use ^ for powers, * for multiply).",
	KindOCRFailure:             "Couldn't read the photo. Try a sharper, well-lit picture.",
	KindOCRNoEquationFound:     "No equation was found in the photo.",
}

// Hint returns the default advice for the kind.
func (k ErrorKind) Hint() string {
	if h, ok := kindHints[k]; ok {
		return h
	}
	return "Something went wrong."
}

// Error is a domain error. It never escapes the pipeline as a failure;
// it is converted into the hint line of the State instead.
type Error struct {
	// Kind is the structured category of the error.
	Kind ErrorKind

	// Message is optional detail added to the kind's hint,
	// such as the message returned by the computer-algebra system.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// NewError creates an Error of the given kind with an optional detail message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error of the given kind around a cause.
// The cause's message becomes the detail message.
func WrapError(kind ErrorKind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets callers write errors.Is(err, model.ErrMissingEquals).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Hint renders the user-facing hint. The kind is always included so that the
// user and the logs can tell input problems from solver failures.
func (e *Error) Hint() string {
	hint := "[" + string(e.Kind) + "] " + e.Kind.Hint()
	if e.Message != "" {
		hint += " (" + e.Message + ")"
	}
	return hint
}

// Sentinel values for errors.Is comparisons.
var (
	ErrEmptyInput             = &Error{Kind: KindEmptyInput}
	ErrMissingEquals          = &Error{Kind: KindMissingEquals}
	ErrMalformedEquals        = &Error{Kind: KindMalformedEquals}
	ErrUnrecognizedLinearForm = &Error{Kind: KindUnrecognizedLinearForm}
	ErrNonNumericRightSide    = &Error{Kind: KindNonNumericRightSide}
	ErrNoUniqueSolution       = &Error{Kind: KindNoUniqueSolution}
	ErrSolve                  = &Error{Kind: KindSolveError}
	ErrOCRFailure             = &Error{Kind: KindOCRFailure}
	ErrOCRNoEquationFound     = &Error{Kind: KindOCRNoEquationFound}
)
