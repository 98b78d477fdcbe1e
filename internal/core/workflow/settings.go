package workflow

import (
	"fmt"
	"strings"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

const (
	retrievalK           = 3
	relevanceDocs        = 2
	answerDocs           = 3
	abstractPreviewRunes = 500

	defaultDomain           = "game theory"
	defaultDomainDefinition = "the mathematical study of strategic decision-making"
	defaultOnTopicHints     = "game theory, Nash equilibrium, strategic interactions, mechanism design"
	defaultOffTopicHints    = "video games, optimization, or other unrelated topics even if they mention 'game' or 'theory'"
	defaultMaxSearchResults = 2
	defaultMaxIterations    = 3
)

// Settings is the step configuration registered alongside the collaborators.
type Settings struct {
	Domain           string
	DomainDefinition string
	OnTopicHints     string
	OffTopicHints    string
	MaxSearchResults int
	MaxIterations    int
}

func DefaultSettings() Settings {
	return Settings{}.normalize()
}

func (s Settings) normalize() Settings {
	if strings.TrimSpace(s.Domain) == "" {
		s.Domain = defaultDomain
	}
	if strings.TrimSpace(s.DomainDefinition) == "" {
		s.DomainDefinition = defaultDomainDefinition
	}
	if strings.TrimSpace(s.OnTopicHints) == "" {
		s.OnTopicHints = defaultOnTopicHints
	}
	if strings.TrimSpace(s.OffTopicHints) == "" {
		s.OffTopicHints = defaultOffTopicHints
	}
	if s.MaxSearchResults <= 0 {
		s.MaxSearchResults = defaultMaxSearchResults
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = defaultMaxIterations
	}
	return s
}

// FallbackAnswer is returned when no context could be retrieved.
func (s Settings) FallbackAnswer() string {
	return fmt.Sprintf("I don't have enough information to answer your question about %s.", s.normalize().Domain)
}

func (s Settings) vars(extra map[string]string) map[string]string {
	s = s.normalize()
	out := map[string]string{
		"domain":            s.Domain,
		"domain_upper":      strings.ToUpper(s.Domain),
		"domain_definition": s.DomainDefinition,
		"on_topic":          s.OnTopicHints,
		"off_topic":         s.OffTopicHints,
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

const (
	needsContextSystem = "You are an assistant that determines if a query is related to {domain}. " +
		"Respond with only 'yes' or 'no'."
	needsContextUser = "Is this query related to {domain}? Query: {query}"

	relevanceSystem = "You are an assistant that determines if provided context is relevant to answer a query. " +
		"Respond with only 'yes' or 'no'."
	relevanceUser = "Is this context relevant to answer the query?\n\nQuery: {query}\n\nContext: {context}"

	filterSystem = "You are an assistant that determines if an academic paper is related to {domain_upper} " +
		"({domain_definition}). Respond with only 'yes' or 'no'. " +
		"Only say 'yes' if the paper is actually about {on_topic}. " +
		"Say 'no' for papers about {off_topic}."
	filterUserHeader = "Is this paper related to {domain_upper} ({domain_definition})?\n\n"

	answerSystem = "You are a helpful assistant that answers questions about {domain}. " +
		"Use the provided context to answer the user's question."
	answerUser = "Context:\n{context}\n\nQuestion: {query}\n\nAnswer:"
)

func renderPrompt(system, user string, vars map[string]string) (domain.Prompt, error) {
	sys, err := domain.RenderPrompt(system, vars)
	if err != nil {
		return domain.Prompt{}, err
	}
	usr, err := domain.RenderPrompt(user, vars)
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{System: sys, User: usr}, nil
}

// paperUserTemplate splices paper text into the template, so it must be brace-escaped.
func paperUserTemplate(paper domain.Paper) string {
	return filterUserHeader +
		"Title: " + domain.EscapeBraces(paper.Title) + "\n\n" +
		"Abstract: " + domain.EscapeBraces(truncateRunes(paper.Abstract, abstractPreviewRunes))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func isAffirmative(response string) bool {
	return strings.Contains(strings.ToLower(response), "yes")
}
