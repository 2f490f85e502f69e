package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/studyhelper/internal/cas"
	"github.com/nao1215/studyhelper/internal/equation"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/solver"
)

// NormalizeStep canonicalizes the raw input.
// It rejects input that is empty after normalization.
type NormalizeStep struct{}

// NewNormalizeStep creates a new normalization step.
func NewNormalizeStep() *NormalizeStep {
	return &NormalizeStep{}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the normalization step.
func (s *NormalizeStep) Do(_ context.Context, state model.State) (model.State, error) {
	normalized := equation.Normalize(state.Input)
	state = state.WithNormalized(normalized)
	if normalized == "" {
		return state, model.NewError(model.KindEmptyInput, "")
	}
	return state, nil
}

// SplitStep cuts the normalized equation at its '=' sign.
type SplitStep struct{}

// NewSplitStep creates a new split step.
func NewSplitStep() *SplitStep {
	return &SplitStep{}
}

// Name returns the step name.
func (s *SplitStep) Name() string {
	return "split"
}

// Do executes the split step.
func (s *SplitStep) Do(_ context.Context, state model.State) (model.State, error) {
	left, right, err := equation.Split(state.Normalized)
	if err != nil {
		return state, err
	}
	return state.WithSides(left, right), nil
}

// ClassifyStep picks the variable and classifies the equation.
type ClassifyStep struct {
	// autoVariable enables switching to the only symbol in the equation
	// when the configured variable does not appear.
	autoVariable bool

	// logger for structured logging.
	logger *slog.Logger
}

// ClassifyStepOption configures a ClassifyStep.
type ClassifyStepOption func(*ClassifyStep)

// WithAutoVariable enables or disables automatic variable detection.
func WithAutoVariable(enabled bool) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.autoVariable = enabled
	}
}

// WithClassifyLogger sets a custom logger for the classify step.
func WithClassifyLogger(logger *slog.Logger) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.logger = logger
	}
}

// NewClassifyStep creates a new classification step.
// Automatic variable detection is enabled by default.
func NewClassifyStep(opts ...ClassifyStepOption) *ClassifyStep {
	s := &ClassifyStep{
		autoVariable: true,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classification step.
func (s *ClassifyStep) Do(_ context.Context, state model.State) (model.State, error) {
	if s.autoVariable {
		if v := equation.DetectVariable(state.Normalized, state.Variable); v != state.Variable {
			s.logger.Debug("variable detected",
				"configured", state.Variable,
				"detected", v,
			)
			state = state.WithVariable(v)
		}
	}

	class := equation.Classify(state.Left, state.Right, state.Variable)
	return state.WithClass(class), nil
}

// SolveStep produces the hint, steps and answer.
type SolveStep struct {
	// solver routes the equation to the linear derivation or the CAS.
	solver *solver.Solver
}

// NewSolveStep creates a new solve step.
func NewSolveStep(s *solver.Solver) *SolveStep {
	return &SolveStep{solver: s}
}

// Name returns the step name.
func (s *SolveStep) Name() string {
	return "solve"
}

// Do executes the solve step. A cancelled ctx stops the CAS.
func (s *SolveStep) Do(ctx context.Context, state model.State) (model.State, error) {
	result, err := s.solver.Solve(ctx, state.Class, state.Left, state.Right, state.Variable)
	if err != nil {
		return state, err
	}
	return state.WithResult(result), nil
}

// HistoryStore persists finished solves.
type HistoryStore interface {
	// SaveSolve stores the state and returns its record ID.
	SaveSolve(ctx context.Context, state model.State) (int64, error)
}

// SaveStep records the outcome of a solve, including failed ones.
type SaveStep struct {
	// store is where the outcome is written.
	store HistoryStore

	// logger for structured logging.
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a new history step.
func NewSaveStep(store HistoryStore, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// RunsAfterFailure implements FinalStep. Failed solves are saved too.
func (s *SaveStep) RunsAfterFailure() bool {
	return true
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, state model.State) (model.State, error) {
	id, err := s.store.SaveSolve(ctx, state)
	if err != nil {
		return state, fmt.Errorf("failed to save solve: %w", err)
	}
	s.logger.Debug("solve saved", "id", id, "input", state.Input)
	return state, nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// CAS is the computer-algebra collaborator for Advanced equations.
	// The local cas.Engine is used when nil.
	CAS cas.Collaborator

	// AutoVariable enables automatic variable detection.
	AutoVariable bool

	// Store, when set, appends a SaveStep.
	Store HistoryStore
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCAS sets the computer-algebra collaborator.
func WithPipelineCAS(c cas.Collaborator) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.CAS = c
	}
}

// WithPipelineAutoVariable enables or disables automatic variable detection.
func WithPipelineAutoVariable(enabled bool) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.AutoVariable = enabled
	}
}

// WithPipelineStore saves every solve to store.
func WithPipelineStore(store HistoryStore) DefaultPipelineOption {
	return func(cfg *DefaultPipelineConfig) {
		cfg.Store = store
	}
}

// DefaultPipeline creates the normalize, split, classify and solve pipeline,
// followed by a save step when a store is configured.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts pipeline config options (WithPipelineCAS, etc).
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		AutoVariable: true,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewNormalizeStep(),
		NewSplitStep(),
		NewClassifyStep(
			WithAutoVariable(cfg.AutoVariable),
			WithClassifyLogger(p.logger),
		),
		NewSolveStep(solver.New(cfg.CAS)),
	)

	if cfg.Store != nil {
		p.AddStep(NewSaveStep(cfg.Store, WithSaveLogger(p.logger)))
	}

	return p
}
