package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultVariable is the symbol solved for when none is configured.
const DefaultVariable = "x"

// Class is the classification of an equation.
type Class int

const (
	// ClassUnknown means the equation has not been classified yet.
	ClassUnknown Class = iota

	// ClassLinear is "[coef]x[±const] = number" with no advanced signals.
	// These equations get the manual step-by-step derivation.
	ClassLinear

	// ClassAdvanced is everything else. These are delegated to the CAS.
	ClassAdvanced
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case ClassLinear:
		return "linear"
	case ClassAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so classes serialize by name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown names decode to ClassUnknown.
func (c *Class) UnmarshalText(text []byte) error {
	*c = ParseClass(string(text))
	return nil
}

// ParseClass converts a class name back into a Class.
func ParseClass(s string) Class {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return ClassLinear
	case "advanced":
		return ClassAdvanced
	default:
		return ClassUnknown
	}
}

// ViewMode selects which parts of a SolutionResult are displayed.
type ViewMode string

const (
	// ViewNone hides the result and shows only a placeholder.
	ViewNone ViewMode = "none"
	// ViewHint shows the hint.
	ViewHint ViewMode = "hint"
	// ViewSteps shows the hint and the steps.
	ViewSteps ViewMode = "steps"
	// ViewFull shows the hint, the steps and the answer.
	ViewFull ViewMode = "full"
)

// ErrInvalidViewMode is returned by ParseViewMode for unknown names.
var ErrInvalidViewMode = errors.New("invalid view mode: must be one of none, hint, steps, full")

// ParseViewMode converts a name into a ViewMode. Matching is case-insensitive.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewNone:
		return ViewNone, nil
	case ViewHint:
		return ViewHint, nil
	case ViewSteps:
		return ViewSteps, nil
	case ViewFull:
		return ViewFull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
	}
}

// SolutionResult is the output of one solve attempt.
type SolutionResult struct {
	// Hint is a short tip, or the error hint when the attempt failed.
	Hint string `json:"hint"`

	// Steps is the ordered derivation. Empty on failure.
	Steps []string `json:"steps"`

	// Answer is the final line, e.g. "x = 9". Empty on failure.
	Answer string `json:"answer"`
}

// State is the snapshot of a single solve request.
// A State is never modified in place; the With* methods return copies.
type State struct {
	// Input is the raw text as typed or recognized.
	Input string `json:"input"`

	// Normalized is the canonical form produced by the normalizer.
	Normalized string `json:"normalized"`

	// Left and Right are the two sides of the equation after splitting.
	Left  string `json:"left"`
	Right string `json:"right"`

	// Variable is the symbol being solved for.
	Variable string `json:"variable"`

	// Class is the classification result.
	Class Class `json:"class"`

	// View is the display mode requested by the user.
	View ViewMode `json:"view"`

	// Result holds the hint, steps and answer.
	Result SolutionResult `json:"result"`

	// Err is set when any stage failed. Its hint is copied into Result.Hint.
	Err *Error `json:"-"`

	// PerformedSteps lists the names of the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// SolvedAt is when the request was created.
	SolvedAt time.Time `json:"solved_at"`
}

// NewState creates the initial State for a raw input.
func NewState(input string, view ViewMode, variable string) State {
	if view == "" {
		view = ViewSteps
	}
	if variable == "" {
		variable = DefaultVariable
	}
	return State{
		Input:    input,
		Variable: variable,
		View:     view,
		SolvedAt: time.Now(),
	}
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	c := s
	c.Result.Steps = slices.Clone(s.Result.Steps)
	c.PerformedSteps = slices.Clone(s.PerformedSteps)
	return c
}

// WithNormalized returns a copy with the normalized text set.
func (s State) WithNormalized(normalized string) State {
	c := s.clone()
	c.Normalized = normalized
	return c
}

// WithSides returns a copy with the split sides set.
func (s State) WithSides(left, right string) State {
	c := s.clone()
	c.Left = left
	c.Right = right
	return c
}

// WithVariable returns a copy solving for variable.
func (s State) WithVariable(variable string) State {
	c := s.clone()
	c.Variable = variable
	return c
}

// WithClass returns a copy with the class set.
func (s State) WithClass(class Class) State {
	c := s.clone()
	c.Class = class
	return c
}

// WithView returns a copy with a different view mode.
// The result is kept, so switching views never re-solves.
func (s State) WithView(view ViewMode) State {
	c := s.clone()
	c.View = view
	return c
}

// WithResult returns a copy whose result is replaced wholesale.
func (s State) WithResult(result SolutionResult) State {
	c := s.clone()
	c.Result = SolutionResult{
		Hint:   result.Hint,
		Steps:  slices.Clone(result.Steps),
		Answer: result.Answer,
	}
	c.Err = nil
	return c
}

// WithError returns a copy whose result is replaced by the error's hint.
// Errors that are not *Error are treated as solver failures.
func (s State) WithError(err error) State {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		domainErr = WrapError(KindSolveError, err)
	}
	c := s.clone()
	c.Err = domainErr
	c.Result = SolutionResult{Hint: domainErr.Hint()}
	return c
}

// WithPerformedStep returns a copy with the step name appended.
func (s State) WithPerformedStep(name string) State {
	c := s.clone()
	c.PerformedSteps = append(c.PerformedSteps, name)
	return c
}

// Failed reports whether any stage failed.
func (s State) Failed() bool {
	return s.Err != nil
}

// ErrorKind returns the kind of the failure, or "" when the solve succeeded.
func (s State) ErrorKind() ErrorKind {
	if s.Err == nil {
		return ""
	}
	return s.Err.Kind
}
