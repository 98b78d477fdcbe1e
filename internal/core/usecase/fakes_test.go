package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/workflow"
)

// topicModel answers every classifier "yes" except for papers whose title contains "Rendering".
type topicModel struct {
	failAnswer bool
}

func (m *topicModel) Complete(_ context.Context, p domain.Prompt) (string, error) {
	switch {
	case strings.HasPrefix(p.User, "Is this paper related"):
		if strings.Contains(p.User, "Rendering") {
			return "no", nil
		}
		return "yes", nil
	case strings.HasPrefix(p.User, "Is this"):
		return "yes", nil
	default:
		if m.failAnswer {
			return "", errors.New("model unavailable")
		}
		return "Nash equilibrium is a stable strategy profile.", nil
	}
}

type storeFake struct {
	ids   []string
	docs  map[string]string
	metas map[string]map[string]any
}

func newStoreFake() *storeFake {
	return &storeFake{docs: map[string]string{}, metas: map[string]map[string]any{}}
}

func (s *storeFake) Add(_ context.Context, documents []string, metadata []map[string]any, ids []string) error {
	for i, id := range ids {
		if _, ok := s.docs[id]; !ok {
			s.ids = append(s.ids, id)
		}
		s.docs[id] = documents[i]
		s.metas[id] = metadata[i]
	}
	return nil
}

func (s *storeFake) Query(_ context.Context, _ string, k int) (domain.RetrievalBundle, error) {
	b := domain.RetrievalBundle{Documents: []string{}, Metadata: []map[string]any{}, IDs: []string{}, Distances: []float64{}}
	for i, id := range s.ids {
		if i >= k {
			break
		}
		b.Documents = append(b.Documents, s.docs[id])
		b.Metadata = append(b.Metadata, s.metas[id])
		b.IDs = append(b.IDs, id)
		b.Distances = append(b.Distances, 0.1*float64(i+1))
	}
	return b, nil
}

func (s *storeFake) Count(context.Context) (int, error) { return len(s.docs), nil }

type searcherFake struct {
	papers []domain.Paper
}

func (s *searcherFake) Search(context.Context, string, int) ([]domain.Paper, error) {
	return append([]domain.Paper(nil), s.papers...), nil
}

type chunkerFake struct{}

func (chunkerFake) ChunkPaper(p domain.Paper) ([]domain.Chunk, error) {
	return []domain.Chunk{{
		ID:   p.SourceID + "_chunk_0",
		Text: "Title: " + p.Title,
		Metadata: map[string]any{
			"title":       p.Title,
			"source":      p.SourceID,
			"pdf_url":     p.PDFURL,
			"chunk_index": 0,
		},
	}}, nil
}

type catalogFake struct {
	records   map[string]*domain.PaperRecord
	pdfErrors map[string]string
	getErr    error
	recordErr error
}

func newCatalogFake() *catalogFake {
	return &catalogFake{records: map[string]*domain.PaperRecord{}, pdfErrors: map[string]string{}}
}

func (c *catalogFake) MarkIndexed(_ context.Context, p domain.Paper, n int) error {
	c.records[p.SourceID] = &domain.PaperRecord{Paper: p, Status: domain.PaperIndexed, ChunkCount: n}
	return nil
}

func (c *catalogFake) GetBySourceID(_ context.Context, id string) (*domain.PaperRecord, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	rec, ok := c.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get paper", errors.New(id))
	}
	copyRec := *rec
	return &copyRec, nil
}

func (c *catalogFake) List(context.Context, int) ([]domain.PaperRecord, error) { return nil, nil }

func (c *catalogFake) RecordPDF(_ context.Context, id, path string, pages int) error {
	if c.recordErr != nil {
		return c.recordErr
	}
	rec := c.records[id]
	rec.PDFPath, rec.PDFPages, rec.Status = path, pages, domain.PaperDownloaded
	return nil
}

func (c *catalogFake) RecordPDFError(_ context.Context, id, msg string) error {
	c.pdfErrors[id] = msg
	return nil
}

func (c *catalogFake) Count(context.Context) (int, error) { return len(c.records), nil }

type runsFake struct {
	runs []domain.RunRecord
	err  error
}

func (r *runsFake) RecordRun(_ context.Context, run domain.RunRecord) error {
	r.runs = append(r.runs, run)
	return r.err
}

type eventsFake struct {
	published []string
	err       error
}

func (e *eventsFake) PublishPaperIndexed(_ context.Context, id string) error {
	e.published = append(e.published, id)
	return e.err
}

type downloaderFake struct {
	body string
	err  error
	urls []string
}

func (d *downloaderFake) Download(_ context.Context, url string) (io.ReadCloser, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	return io.NopCloser(strings.NewReader(d.body)), nil
}

type storageFake struct {
	files map[string]string
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string]string{}
	}
	s.files[key] = string(raw)
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.files[key])), nil
}

type inspectorFake struct {
	pages int
	err   error
}

func (i *inspectorFake) PageCount(context.Context, string) (int, error) {
	return i.pages, i.err
}

func gamePapers() []domain.Paper {
	return []domain.Paper{
		{
			Title:    "Nash Equilibria in Finite Games",
			Abstract: "Mixed strategies.",
			SourceID: "http://arxiv.org/abs/2001.00001v1",
			PDFURL:   "http://arxiv.org/pdf/2001.00001v1",
		},
		{
			Title:    "Rendering Pipelines for Video Games",
			Abstract: "GPU techniques.",
			SourceID: "http://arxiv.org/abs/2103.00002v1",
		},
	}
}

type graphDeps struct {
	model    *topicModel
	store    *storeFake
	searcher *searcherFake
	catalog  *catalogFake
}

func newGraph(t *testing.T, deps graphDeps) *workflow.Graph {
	t.Helper()
	r := workflow.NewRegistry()
	r.MustRegister("llm", deps.model).
		MustRegister("store", deps.store).
		MustRegister("search", deps.searcher).
		MustRegister("chunker", chunkerFake{}).
		MustRegister("catalog", deps.catalog).
		MustRegister("settings", workflow.DefaultSettings())
	g, err := workflow.Build(r)
	if err != nil {
		t.Fatalf("workflow.Build() error = %v", err)
	}
	return g
}
