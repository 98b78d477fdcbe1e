package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("KNOWLEDGE_STORE", "")
	t.Setenv("RAG_DOMAIN", "")
	t.Setenv("RAG_MAX_ITERATIONS", "")
	t.Setenv("ARXIV_INTERVAL", "")

	cfg := Load()
	if cfg.KnowledgeStore != "qdrant" {
		t.Fatalf("expected qdrant store by default, got %q", cfg.KnowledgeStore)
	}
	if cfg.Domain != "game theory" || cfg.MaxIterations != 3 || cfg.MaxSearchResults != 2 {
		t.Fatalf("unexpected domain defaults %#v", cfg)
	}
	if cfg.ArxivInterval != 3*time.Second {
		t.Fatalf("expected 3s arxiv interval, got %s", cfg.ArxivInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("KNOWLEDGE_STORE", "PGVECTOR")
	t.Setenv("RAG_MAX_ITERATIONS", "5")
	t.Setenv("ARXIV_CACHE_TTL", "90s")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "2.5")
	t.Setenv("BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.KnowledgeStore != "pgvector" || cfg.MaxIterations != 5 {
		t.Fatalf("unexpected overrides %#v", cfg)
	}
	if cfg.ArxivCacheTTL != 90*time.Second || cfg.HTTPRateLimitRPS != 2.5 || cfg.BreakerEnabled {
		t.Fatalf("unexpected parsed values %#v", cfg)
	}
}

func TestLoadReadsDotenvWithoutOverridingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SCHOLAR_TEST_DOTENV_ONLY=from-file\nRAG_DOMAIN=auction theory\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("RAG_DOMAIN", "mechanism design")
	t.Cleanup(func() { os.Unsetenv("SCHOLAR_TEST_DOTENV_ONLY") })

	cfg := Load()
	if cfg.Domain != "mechanism design" {
		t.Fatalf("expected environment to win, got %q", cfg.Domain)
	}
	if os.Getenv("SCHOLAR_TEST_DOTENV_ONLY") != "from-file" {
		t.Fatalf("expected dotenv value loaded")
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := Config{LLMProvider: "bard", EmbedProvider: "hash", KnowledgeStore: "chroma", MaxIterations: 3}
	err := cfg.Validate()
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
