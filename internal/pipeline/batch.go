package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// BatchProcessor generates sitemaps for multiple targets concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-target execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each target. The
	// spider, classifier, and generator all carry per-target state, so
	// pipelines cannot be shared.
	pipelineFactory func(target string) *Pipeline

	// concurrency is the maximum number of targets processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports. Access is synchronized via mutex.
	results []*model.GenerationReport
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

// WithConcurrency sets the maximum number of concurrent targets.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called once per target to create a
// fresh pipeline instance, so pipeline state never leaks between
// targets.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.GenerationReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch generates sitemaps for multiple targets concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for targets that failed.
// The error return indicates whether the batch itself was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.GenerationReport, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.GenerationReport, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("generating sitemaps",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewGenerationReport(target)

			pipeline := bp.pipelineFactory(target)
			err := pipeline.Execute(ctx, report)

			// Store result regardless of error
			// The report contains error information if the run failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("generation failed",
					"target", target,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other
				// targets. The error is recorded in the report.
				return nil
			}

			bp.logger.Info("generation completed",
				"target", target,
				"urls", len(report.URLs),
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback generates sitemaps for multiple targets and
// calls a callback for each completed run. This is useful for streaming
// results.
//
// The callback receives the report and the index of the target in the
// original slice. The callback is called from the goroutine that completed
// the run, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.GenerationReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewGenerationReport(target)
			pipeline := bp.pipelineFactory(target)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
