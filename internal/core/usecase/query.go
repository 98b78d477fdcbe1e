package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/core/workflow"
)

// citedSources matches the number of documents the answer prompt includes.
const citedSources = 3

type QueryUseCase struct {
	graph  *workflow.Graph
	runs   ports.RunRecorder
	events ports.IndexEventPublisher
	now    func() time.Time
}

// NewQueryUseCase wires the answer loop. runs and events may be nil.
func NewQueryUseCase(
	graph *workflow.Graph,
	runs ports.RunRecorder,
	events ports.IndexEventPublisher,
) *QueryUseCase {
	return &QueryUseCase{
		graph:  graph,
		runs:   runs,
		events: events,
		now:    time.Now,
	}
}

func (uc *QueryUseCase) Ask(ctx context.Context, question string) (*domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	runID := uuid.NewString()
	state := domain.NewState(question)
	started := uc.now()

	slog.InfoContext(ctx, "query_started", "run_id", runID)
	runErr := uc.graph.Run(ctx, state)
	duration := uc.now().Sub(started)

	uc.recordRun(ctx, runID, state, started, duration, runErr)
	publishIndexed(ctx, uc.events, state.Indexed)

	if runErr != nil {
		slog.ErrorContext(ctx, "query_failed",
			"run_id", runID,
			"iterations", state.Iterations,
			"duration_ms", duration.Milliseconds(),
			"error", runErr.Error(),
		)
		return nil, fmt.Errorf("answer question: %w", runErr)
	}

	sources := state.Retrieved.Sources()
	if len(sources) > citedSources {
		sources = sources[:citedSources]
	}
	result := &domain.QueryResult{
		RunID:         runID,
		Question:      question,
		Answer:        state.Answer,
		UsedContext:   state.NeedsContext && !state.Retrieved.Empty(),
		Sources:       sources,
		Iterations:    state.Iterations,
		Path:          state.Path,
		PapersSeen:    len(state.SeenPaperIDs),
		PapersIndexed: state.Indexed,
	}
	if result.PapersIndexed == nil {
		result.PapersIndexed = []domain.Paper{}
	}
	if !result.UsedContext {
		result.Sources = []domain.Source{}
	}

	slog.InfoContext(ctx, "query_completed",
		"run_id", runID,
		"used_context", result.UsedContext,
		"iterations", result.Iterations,
		"papers_indexed", len(result.PapersIndexed),
		"duration_ms", duration.Milliseconds(),
	)
	return result, nil
}

func (uc *QueryUseCase) recordRun(ctx context.Context, runID string, state *domain.State, started time.Time, duration time.Duration, runErr error) {
	if uc.runs == nil {
		return
	}
	record := domain.RunRecord{
		ID:          runID,
		Question:    state.Query,
		Answer:      state.Answer,
		Path:        state.Path,
		Iterations:  state.Iterations,
		PapersAdded: len(state.Indexed),
		Duration:    duration,
		CreatedAt:   started.UTC(),
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}
	if err := uc.runs.RecordRun(ctx, record); err != nil {
		slog.WarnContext(ctx, "query_run_record_failed", "run_id", runID, "error", err.Error())
	}
}

func publishIndexed(ctx context.Context, events ports.IndexEventPublisher, papers []domain.Paper) {
	if events == nil {
		return
	}
	for _, p := range papers {
		if err := events.PublishPaperIndexed(ctx, p.SourceID); err != nil {
			slog.WarnContext(ctx, "paper_event_publish_failed", "source_id", p.SourceID, "error", err.Error())
		}
	}
}
