package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

type fakeModel struct {
	respond func(prompt domain.Prompt) (string, error)
	calls   []domain.Prompt
}

func (f *fakeModel) Complete(_ context.Context, prompt domain.Prompt) (string, error) {
	f.calls = append(f.calls, prompt)
	if f.respond == nil {
		return "yes", nil
	}
	return f.respond(prompt)
}

// scriptedModel answers by prompt kind.
func scriptedModel(needsContext, relevant string, onTopic func(title string) bool) *fakeModel {
	return &fakeModel{
		respond: func(p domain.Prompt) (string, error) {
			switch {
			case strings.HasPrefix(p.User, "Is this query related"):
				return needsContext, nil
			case strings.HasPrefix(p.User, "Is this context relevant"):
				return relevant, nil
			case strings.HasPrefix(p.User, "Is this paper related"):
				if onTopic != nil && onTopic(p.User) {
					return "Yes.", nil
				}
				return "No", nil
			default:
				return "  generated answer  ", nil
			}
		},
	}
}

type fakeStore struct {
	order   []string
	docs    map[string]string
	metas   map[string]map[string]any
	queries int
	addErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]string),
		metas: make(map[string]map[string]any),
	}
}

func (f *fakeStore) Add(_ context.Context, documents []string, metadata []map[string]any, ids []string) error {
	if f.addErr != nil {
		return f.addErr
	}
	if len(documents) != len(ids) || len(metadata) != len(ids) {
		return fmt.Errorf("documents, metadata and ids must have the same length")
	}
	for i, id := range ids {
		if _, ok := f.docs[id]; !ok {
			f.order = append(f.order, id)
		}
		f.docs[id] = documents[i]
		f.metas[id] = metadata[i]
	}
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ string, k int) (domain.RetrievalBundle, error) {
	f.queries++
	bundle := domain.RetrievalBundle{
		Documents: []string{},
		Metadata:  []map[string]any{},
		IDs:       []string{},
		Distances: []float64{},
	}
	for i, id := range f.order {
		if i >= k {
			break
		}
		bundle.Documents = append(bundle.Documents, f.docs[id])
		bundle.Metadata = append(bundle.Metadata, f.metas[id])
		bundle.IDs = append(bundle.IDs, id)
		bundle.Distances = append(bundle.Distances, float64(i)/10)
	}
	return bundle, nil
}

func (f *fakeStore) Count(context.Context) (int, error) {
	return len(f.docs), nil
}

type fakeSearcher struct {
	papers []domain.Paper
	err    error
	calls  []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]domain.Paper, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Paper(nil), f.papers...), nil
}

type fakeChunker struct{}

func (fakeChunker) ChunkPaper(paper domain.Paper) ([]domain.Chunk, error) {
	return []domain.Chunk{{
		ID:   paper.SourceID + "_chunk_0",
		Text: "Title: " + paper.Title + "\n\nAbstract: " + paper.Abstract,
		Metadata: map[string]any{
			"title":       paper.Title,
			"source":      paper.SourceID,
			"chunk_index": 0,
		},
	}}, nil
}

type fakeCatalog struct {
	indexed map[string]int
}

func (f *fakeCatalog) MarkIndexed(_ context.Context, paper domain.Paper, chunkCount int) error {
	if f.indexed == nil {
		f.indexed = make(map[string]int)
	}
	f.indexed[paper.SourceID] = chunkCount
	return nil
}

func (f *fakeCatalog) GetBySourceID(context.Context, string) (*domain.PaperRecord, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeCatalog) List(context.Context, int) ([]domain.PaperRecord, error) {
	return nil, nil
}

func (f *fakeCatalog) RecordPDF(context.Context, string, string, int) error {
	return nil
}

func (f *fakeCatalog) RecordPDFError(context.Context, string, string) error {
	return nil
}

func (f *fakeCatalog) Count(context.Context) (int, error) {
	return len(f.indexed), nil
}

func nashPapers() []domain.Paper {
	return []domain.Paper{
		{
			Title:     "Nash Equilibria in Finite Games",
			Abstract:  "We study existence of mixed strategy equilibria.",
			Authors:   []string{"A. Author"},
			Published: "2020-01-02",
			SourceID:  "http://arxiv.org/abs/2001.00001v1",
		},
		{
			Title:     "Rendering Pipelines for Video Games",
			Abstract:  "A GPU technique for real-time rendering.",
			Authors:   []string{"B. Author"},
			Published: "2021-03-04",
			SourceID:  "http://arxiv.org/abs/2103.00002v1",
		},
	}
}

func nashOnly(user string) bool {
	return strings.Contains(user, "Nash")
}

type testDeps struct {
	model    *fakeModel
	store    *fakeStore
	searcher *fakeSearcher
	catalog  *fakeCatalog
}

func newTestRegistry(deps testDeps, cfg Settings) *Registry {
	r := NewRegistry()
	r.MustRegister("llm", deps.model).
		MustRegister("store", deps.store).
		MustRegister("search", deps.searcher).
		MustRegister("chunker", fakeChunker{}).
		MustRegister("catalog", deps.catalog).
		MustRegister("settings", cfg)
	return r
}
