package arxiv

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

// CachedSearcher memoizes search results per query and result limit.
type CachedSearcher struct {
	next  ports.PaperSearcher
	cache *cache.Cache
}

func NewCachedSearcher(next ports.PaperSearcher, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *CachedSearcher) Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	key := fmt.Sprintf("%d|%s", maxResults, query)
	if x, found := s.cache.Get(key); found {
		return clonePapers(x.([]domain.Paper)), nil
	}

	papers, err := s.next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, clonePapers(papers), cache.DefaultExpiration)
	return papers, nil
}

func clonePapers(in []domain.Paper) []domain.Paper {
	out := make([]domain.Paper, len(in))
	for i, p := range in {
		p.Authors = append([]string(nil), p.Authors...)
		out[i] = p
	}
	return out
}
