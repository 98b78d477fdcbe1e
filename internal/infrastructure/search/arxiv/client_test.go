package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2001.00001v1</id>
    <published>2020-01-02T18:00:00Z</published>
    <title>Nash Equilibria
      in Finite Games</title>
    <summary>  We study existence of mixed strategy equilibria.
</summary>
    <author><name>Alice Author</name></author>
    <author><name>Bob Author</name></author>
    <link href="http://arxiv.org/abs/2001.00001v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2001.00001v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2103.00002v2</id>
    <published>2021-03-04T10:00:00Z</published>
    <title>Second</title>
    <summary>Abstract two.</summary>
    <author><name>Carol</name></author>
  </entry>
</feed>`

func TestSearchParsesAtomFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if r.URL.Query().Get("max_results") != "2" || r.URL.Query().Get("sortBy") != "relevance" {
			t.Fatalf("unexpected query params %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	papers, err := New(server.URL, WithInterval(0)).Search(context.Background(), "game theory Nash", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "game theory Nash" {
		t.Fatalf("unexpected search_query %q", gotQuery)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}

	first := papers[0]
	if first.Title != "Nash Equilibria in Finite Games" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Abstract != "We study existence of mixed strategy equilibria." {
		t.Fatalf("unexpected abstract %q", first.Abstract)
	}
	if first.Published != "2020-01-02" || first.SourceID != "http://arxiv.org/abs/2001.00001v1" {
		t.Fatalf("unexpected ids %#v", first)
	}
	if len(first.Authors) != 2 || first.Authors[1] != "Bob Author" {
		t.Fatalf("unexpected authors %#v", first.Authors)
	}
	if first.PDFURL != "http://arxiv.org/pdf/2001.00001v1" {
		t.Fatalf("unexpected pdf url %q", first.PDFURL)
	}
	if papers[1].PDFURL != "http://arxiv.org/pdf/2103.00002v2" {
		t.Fatalf("expected derived pdf url, got %q", papers[1].PDFURL)
	}
}

func TestSearchRetriesUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = time.Millisecond
	client := New(server.URL, WithInterval(0), WithExecutor(resilience.NewExecutor(cfg)))

	papers, err := client.Search(context.Background(), "nash", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one paper after retry, got %d papers in %d calls", len(papers), calls)
	}
}

func TestSearchMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, WithInterval(0)).Search(context.Background(), "nash", 1)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	_, err := New("http://unused").Search(context.Background(), "  ", 1)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(_ context.Context, query string, _ int) ([]domain.Paper, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Paper{{Title: query, SourceID: "id", Authors: []string{"A"}}}, nil
}

func TestCachedSearcherMemoizesSuccess(t *testing.T) {
	next := &countingSearcher{}
	cached := NewCachedSearcher(next, time.Minute)

	first, err := cached.Search(context.Background(), "nash", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	first[0].Authors[0] = "mutated"

	second, err := cached.Search(context.Background(), "nash", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if second[0].Authors[0] != "A" {
		t.Fatalf("expected cached copy isolated from caller mutation")
	}

	if _, err := cached.Search(context.Background(), "nash", 2); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected different limit to miss cache")
	}
}

func TestCachedSearcherDoesNotCacheErrors(t *testing.T) {
	next := &countingSearcher{err: errors.New("down")}
	cached := NewCachedSearcher(next, time.Minute)

	_, _ = cached.Search(context.Background(), "nash", 1)
	_, _ = cached.Search(context.Background(), "nash", 1)
	if next.calls != 2 {
		t.Fatalf("expected errors to bypass cache, got %d calls", next.calls)
	}
}

func TestSearchMapsTypedPDFLinkAndSkipsEntriesWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>No id</title>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/cs/0105010v1</id>
    <published>2001-05-07T00:00:00Z</published>
    <title>Old Style</title>
    <summary>Archive-prefixed identifier.</summary>
    <link href="http://arxiv.org/pdf/cs/0105010v1" rel="related" type="application/pdf"/>
  </entry>
</feed>`))
	}))
	defer server.Close()

	papers, err := New(server.URL, WithInterval(0)).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected entry without id skipped, got %#v", papers)
	}
	if papers[0].PDFURL != "http://arxiv.org/pdf/cs/0105010v1" || papers[0].Published != "2001-05-07" {
		t.Fatalf("unexpected paper %#v", papers[0])
	}
	if len(papers[0].Authors) != 0 {
		t.Fatalf("expected no authors, got %#v", papers[0].Authors)
	}
}

func TestSearchRejectsNonAtomBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>maintenance</body></html>`))
	}))
	defer server.Close()

	if _, err := New(server.URL, WithInterval(0)).Search(context.Background(), "q", 1); err == nil {
		t.Fatalf("expected decode error for non-atom body")
	}
}
