package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/studyhelper/internal/model"
)

// BatchProcessor solves many equations concurrently, for example every line
// of a worksheet file. Each equation gets its own pipeline run and its own
// State; nothing is shared between runs.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each equation.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent solves.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores finished states in input order.
	// Access is synchronized via mutex.
	results []model.State
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent solves.
// Default is 10 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// The pipelineFactory function is called once per equation.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     10,
		results:         make([]model.State, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for every initial state concurrently.
// Results keep the input order. Domain errors are recorded in each state;
// the returned error is only set when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, states []model.State) ([]model.State, error) {
	bp.logger.Info("starting batch processing",
		"total_equations", len(states),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]model.State, len(states))
	copy(bp.results, states)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, initial := range states {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("solving equation",
				"input", initial.Input,
				"index", i+1,
				"total", len(states),
			)

			final, err := bp.pipelineFactory().Execute(ctx, initial)

			bp.mu.Lock()
			bp.results[i] = final
			bp.mu.Unlock()

			if err != nil {
				// The state keeps whatever the pipeline produced.
				bp.logger.Warn("solve failed",
					"input", initial.Input,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("solve completed",
				"input", initial.Input,
				"error_kind", final.ErrorKind(),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_equations", len(states),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the pipeline for every initial state and
// calls callback as each one finishes. The callback receives the final state
// and its index in states; it is called from worker goroutines.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	states []model.State,
	callback func(state model.State, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_equations", len(states),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, initial := range states {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			final, _ := bp.pipelineFactory().Execute(ctx, initial) //nolint:errcheck // failures are logged by the pipeline
			callback(final, i)

			return nil
		})
	}

	return g.Wait()
}
