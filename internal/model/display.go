package model

// Placeholder is shown when the view mode hides every part of the result.
const Placeholder = "Type an equation and run solve. Then choose hint / steps / full."

// Visible is the part of a State that the current view mode exposes.
type Visible struct {
	// Error is the error hint. Errors are shown in every view mode.
	Error string `json:"error,omitempty"`

	// Hint is shown for hint, steps and full.
	Hint string `json:"hint,omitempty"`

	// Steps are shown for steps and full.
	Steps []string `json:"steps,omitempty"`

	// Answer is shown for full only.
	Answer string `json:"answer,omitempty"`

	// Placeholder is set for view mode none.
	Placeholder string `json:"placeholder,omitempty"`
}

// Display selects the lines of the state's result that its view mode shows.
func Display(s State) Visible {
	var v Visible
	if s.Err != nil {
		v.Error = s.Result.Hint
	}

	switch s.View {
	case ViewNone:
		v.Placeholder = Placeholder
		return v
	case ViewHint, ViewSteps, ViewFull:
	default:
		return v
	}

	if s.Err != nil {
		return v
	}

	v.Hint = s.Result.Hint
	if s.View == ViewSteps || s.View == ViewFull {
		v.Steps = s.Result.Steps
	}
	if s.View == ViewFull {
		v.Answer = s.Result.Answer
	}
	return v
}

// IsEmpty reports whether nothing would be shown.
func (v Visible) IsEmpty() bool {
	return v.Error == "" && v.Hint == "" && len(v.Steps) == 0 && v.Answer == "" && v.Placeholder == ""
}
