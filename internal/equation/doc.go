// Package equation turns raw equation text into something a solver can use.
//
// The package has three parts that run in order:
//   - Normalize canonicalizes typed or OCR-extracted text
//   - Split cuts a normalized equation into its left and right sides
//   - Classify decides between the manual linear derivation and the CAS
//
// None of the functions here solve anything. Failures are reported as
// *model.Error values so the pipeline can turn them into hints.
package equation
