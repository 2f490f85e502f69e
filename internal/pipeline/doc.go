// Package pipeline runs a solve request through its stages in order.
//
// The default pipeline normalizes the raw input, splits it at '=', classifies
// it, solves it and optionally saves the outcome. Each stage is a Step that
// receives a model.State and returns a new one.
//
// Domain errors (a missing '=' sign, a CAS failure) are not returned from
// Execute. They are written into the state as a hint, the remaining solving
// steps are skipped, and steps implementing FinalStep still run.
//
// BatchProcessor solves many equations concurrently with errgroup.
package pipeline
