package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

// CheckNeedsContext decides whether the query belongs to the configured domain.
func CheckNeedsContext(ctx context.Context, state *domain.State, model ports.ChatModel, cfg Settings) error {
	prompt, err := renderPrompt(needsContextSystem, needsContextUser, cfg.vars(map[string]string{
		"query": state.Query,
	}))
	if err != nil {
		return fmt.Errorf("render needs-context prompt: %w", err)
	}

	response, err := model.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("classify query domain: %w", err)
	}

	state.NeedsContext = isAffirmative(response)
	slog.InfoContext(ctx, "needs_context_decided",
		"needs_context", state.NeedsContext,
		"response", strings.TrimSpace(response),
	)
	return nil
}

// PullFromStore replaces the retrieved bundle with the top matches for the query.
func PullFromStore(ctx context.Context, state *domain.State, store ports.KnowledgeStore) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count knowledge store: %w", err)
	}

	bundle, err := store.Query(ctx, state.Query, retrievalK)
	if err != nil {
		return fmt.Errorf("query knowledge store: %w", err)
	}

	state.Retrieved = bundle
	slog.InfoContext(ctx, "store_pulled",
		"store_count", count,
		"retrieved", len(bundle.Documents),
	)
	return nil
}

// CheckRelevance asks the model whether the top retrieved documents can answer the query.
// An empty bundle is never relevant and costs no model call.
func CheckRelevance(ctx context.Context, state *domain.State, model ports.ChatModel, cfg Settings) error {
	if state.Retrieved.Empty() {
		state.ContextRelevant = false
		slog.InfoContext(ctx, "relevance_skipped", "reason", "no_documents")
		return nil
	}

	prompt, err := renderPrompt(relevanceSystem, relevanceUser, cfg.vars(map[string]string{
		"query":   state.Query,
		"context": strings.Join(state.Retrieved.Top(relevanceDocs), "\n\n"),
	}))
	if err != nil {
		return fmt.Errorf("render relevance prompt: %w", err)
	}

	response, err := model.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("classify context relevance: %w", err)
	}

	state.ContextRelevant = isAffirmative(response)
	slog.InfoContext(ctx, "relevance_decided",
		"documents", len(state.Retrieved.Documents),
		"relevant", state.ContextRelevant,
	)
	return nil
}

// SearchExternal replaces the candidate papers with fresh search results.
// A search failure yields no candidates rather than aborting the query.
func SearchExternal(ctx context.Context, state *domain.State, searcher ports.PaperSearcher, cfg Settings) error {
	cfg = cfg.normalize()
	query := cfg.Domain + " " + state.Query

	papers, err := searcher.Search(ctx, query, cfg.MaxSearchResults)
	if err != nil {
		slog.WarnContext(ctx, "paper_search_failed", "query", query, "error", err.Error())
		papers = nil
	}

	state.CandidatePapers = papers
	slog.InfoContext(ctx, "papers_found", "query", query, "count", len(papers))
	return nil
}

// FilterOnTopic keeps only candidates the model confirms as on-topic.
// Every original candidate is recorded as seen.
func FilterOnTopic(ctx context.Context, state *domain.State, model ports.ChatModel, cfg Settings) error {
	candidates := state.CandidatePapers
	if len(candidates) == 0 {
		slog.InfoContext(ctx, "papers_filtered", "candidates", 0, "kept", 0)
		return nil
	}

	kept := make([]domain.Paper, 0, len(candidates))
	for i, paper := range candidates {
		prompt, err := renderPrompt(filterSystem, paperUserTemplate(paper), cfg.vars(nil))
		if err != nil {
			return fmt.Errorf("render filter prompt for %q: %w", paper.SourceID, err)
		}
		response, err := model.Complete(ctx, prompt)
		if err != nil {
			return fmt.Errorf("classify paper %q: %w", paper.SourceID, err)
		}

		onTopic := isAffirmative(response)
		if onTopic {
			kept = append(kept, paper)
		}
		slog.DebugContext(ctx, "paper_classified",
			"index", i+1,
			"source_id", paper.SourceID,
			"on_topic", onTopic,
		)
	}

	for _, paper := range candidates {
		if paper.SourceID != "" {
			state.MarkSeen(paper.SourceID)
		}
	}
	state.CandidatePapers = kept

	slog.InfoContext(ctx, "papers_filtered",
		"candidates", len(candidates),
		"kept", len(kept),
		"seen_total", len(state.SeenPaperIDs),
	)
	return nil
}

// AddToStore chunks and upserts every candidate paper.
// Per-paper failures are logged and skipped.
func AddToStore(ctx context.Context, state *domain.State, chunker ports.PaperChunker, store ports.KnowledgeStore, catalog ports.PaperCatalog) error {
	before, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count knowledge store: %w", err)
	}

	for _, paper := range state.CandidatePapers {
		chunks, err := chunker.ChunkPaper(paper)
		if err != nil {
			slog.WarnContext(ctx, "paper_chunk_failed", "source_id", paper.SourceID, "error", err.Error())
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		docs := make([]string, 0, len(chunks))
		metas := make([]map[string]any, 0, len(chunks))
		ids := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			docs = append(docs, chunk.Text)
			metas = append(metas, chunk.Metadata)
			ids = append(ids, chunk.ID)
		}

		if err := store.Add(ctx, docs, metas, ids); err != nil {
			slog.WarnContext(ctx, "paper_index_failed", "source_id", paper.SourceID, "error", err.Error())
			continue
		}
		state.Indexed = append(state.Indexed, paper)

		if err := catalog.MarkIndexed(ctx, paper, len(chunks)); err != nil {
			slog.WarnContext(ctx, "paper_catalog_failed", "source_id", paper.SourceID, "error", err.Error())
		}
	}

	after, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count knowledge store: %w", err)
	}

	state.PapersAdded = true
	slog.InfoContext(ctx, "papers_added",
		"papers", len(state.CandidatePapers),
		"indexed", len(state.Indexed),
		"store_before", before,
		"store_after", after,
		"growth", after-before,
	)
	return nil
}

// GenerateAnswer answers from the top retrieved documents, or returns the fixed
// fallback without calling the model when nothing was retrieved.
func GenerateAnswer(ctx context.Context, state *domain.State, model ports.ChatModel, cfg Settings) error {
	if state.Retrieved.Empty() {
		state.Answer = cfg.FallbackAnswer()
		slog.InfoContext(ctx, "answer_fallback")
		return nil
	}

	prompt, err := renderPrompt(answerSystem, answerUser, cfg.vars(map[string]string{
		"query":   state.Query,
		"context": strings.Join(state.Retrieved.Top(answerDocs), "\n\n"),
	}))
	if err != nil {
		return fmt.Errorf("render answer prompt: %w", err)
	}

	response, err := model.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}

	state.Answer = strings.TrimSpace(response)
	slog.InfoContext(ctx, "answer_generated", "context_documents", len(state.Retrieved.Top(answerDocs)))
	return nil
}
