// Package solver produces the hint, steps and answer for a classified
// equation.
//
// Linear equations get a manual three-step derivation computed here.
// Everything else is delegated to a cas.Collaborator, which can be the local
// cas.Engine or a fake in tests.
package solver
