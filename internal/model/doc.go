// Package model defines the core data structures used throughout studyhelper.
//
// This package contains the following main types:
//   - State: The immutable snapshot of one solve request (input, split sides, class, result)
//   - SolutionResult: The hint, ordered steps and answer produced by a solve attempt
//   - ViewMode: Which of hint / steps / answer the user wants to see
//   - Error: A domain error carrying an ErrorKind that is rendered as a hint
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The equation, solver, pipeline, report and database packages all
// need these types, so centralizing them prevents import cycles.
//
// State is passed by value. Every pipeline step returns a new State instead of
// mutating the one it received, which keeps each stage testable on its own.
package model
