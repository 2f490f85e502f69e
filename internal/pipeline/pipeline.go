package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/studyhelper/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence. Each step receives the state produced by
// the previous step and returns a new one; states are never modified in place.
type Step interface {
	// Do executes the pipeline step.
	// A *model.Error return is a domain error: it is recorded in the state as
	// a hint and stops the solving steps. Any other error is an
	// infrastructure failure. On error, Do still returns the state it was
	// given, updated with whatever progress was made.
	Do(ctx context.Context, state model.State) (model.State, error)

	// Name returns the step's name for logging purposes.
	Name() string
}

// FinalStep is implemented by steps that run even after an earlier step
// recorded a domain error, such as persisting the outcome.
type FinalStep interface {
	Step

	// RunsAfterFailure reports whether the step runs on a failed state.
	RunsAfterFailure() bool
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps after
	// an infrastructure failure. Domain errors never stop the pipeline with
	// an error; they become the state's hint.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution even
// when a step fails with an infrastructure error. Failed steps are logged
// and subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and returns the final state.
//
// Domain errors are recovered where they occur: the state carries the error
// hint, later solving steps are skipped, and Execute returns a nil error.
// Execute only returns an error when the context is cancelled, or when a
// step fails for another reason and continueOnError is false. Cancellation
// stops the pipeline even with continueOnError.
func (p *Pipeline) Execute(ctx context.Context, state model.State) (model.State, error) {
	p.logger.Debug("pipeline started",
		"input", state.Input,
		"steps", p.StepCount(),
	)

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return state, ctx.Err()
		default:
		}

		if state.Failed() && !runsAfterFailure(step) {
			p.logger.Debug("step skipped",
				"step", step.Name(),
				"error_kind", state.ErrorKind(),
			)
			continue
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"input", state.Input,
		)

		next, err := step.Do(ctx, state)
		var domainErr *model.Error
		switch {
		case err == nil:
			state = next
			p.logger.Debug("step completed",
				"step", step.Name(),
				"input", state.Input,
			)
		case errors.As(err, &domainErr):
			state = next.WithError(domainErr)
			p.logger.Debug("step rejected input",
				"step", step.Name(),
				"input", state.Input,
				"error_kind", domainErr.Kind,
				"error", domainErr,
			)
		default:
			p.logger.Error("step failed",
				"step", step.Name(),
				"input", state.Input,
				"error", err,
			)
			if !p.continueOnError || ctx.Err() != nil {
				return state.WithPerformedStep(step.Name()), err
			}
		}

		state = state.WithPerformedStep(step.Name())
	}

	return state, nil
}

func runsAfterFailure(step Step) bool {
	final, ok := step.(FinalStep)
	return ok && final.RunsAfterFailure()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
