package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/observability/metrics"
)

const processTimeout = 5 * time.Minute

type worker struct {
	queue     ports.MessageQueue
	processor ports.PaperProcessor
	metrics   *metrics.WorkerMetrics
	logger    *slog.Logger
	timeout   time.Duration
}

func newWorker(queue ports.MessageQueue, processor ports.PaperProcessor, m *metrics.WorkerMetrics, logger *slog.Logger) *worker {
	return &worker{
		queue:     queue,
		processor: processor,
		metrics:   m,
		logger:    logger,
		timeout:   processTimeout,
	}
}

// run blocks until ctx is done and the subscription has drained.
func (w *worker) run(ctx context.Context) error {
	return w.queue.SubscribePaperIndexed(ctx, w.handle)
}

func (w *worker) handle(ctx context.Context, sourceID string) error {
	processCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	started := time.Now()
	w.metrics.StartPaper()
	err := w.processor.ProcessPaper(processCtx, sourceID)
	w.metrics.FinishPaper(time.Since(started), err)
	if err == nil {
		w.logger.Info("paper_processed", "source_id", sourceID, "duration_ms", time.Since(started).Milliseconds())
	}
	return err
}
