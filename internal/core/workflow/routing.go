package workflow

import (
	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// Edge is one allowed transition of the graph.
type Edge struct {
	From  domain.Node
	To    domain.Node
	Label string
}

var edges = []Edge{
	{From: domain.NodeNeedsContext, To: domain.NodePullFromStore, Label: "needs context"},
	{From: domain.NodeNeedsContext, To: domain.NodeGenerateAnswer, Label: "off topic"},
	{From: domain.NodePullFromStore, To: domain.NodeCheckRelevance},
	{From: domain.NodeCheckRelevance, To: domain.NodeGenerateAnswer, Label: "relevant"},
	{From: domain.NodeCheckRelevance, To: domain.NodeSearchExternal, Label: "not relevant"},
	{From: domain.NodeSearchExternal, To: domain.NodeFilterPapers},
	{From: domain.NodeFilterPapers, To: domain.NodeAddToStore, Label: "papers kept or stored context"},
	{From: domain.NodeFilterPapers, To: domain.NodeGenerateAnswer, Label: "nothing kept and store empty"},
	{From: domain.NodeAddToStore, To: domain.NodePullFromStore, Label: "retry retrieval"},
	{From: domain.NodeGenerateAnswer, To: domain.NodeEnd},
}

// Edges returns the transition table.
func Edges() []Edge {
	return append([]Edge(nil), edges...)
}

func routeAfterNeedsContext(state *domain.State) domain.Node {
	if state.NeedsContext {
		return domain.NodePullFromStore
	}
	return domain.NodeGenerateAnswer
}

func routeAfterRelevance(state *domain.State) domain.Node {
	if state.ContextRelevant {
		return domain.NodeGenerateAnswer
	}
	return domain.NodeSearchExternal
}

// routeAfterFilter loops back through the store when papers were kept or the
// store already returned context that relevance did not confirm. Otherwise it
// answers with the current, possibly empty, retrieval.
func routeAfterFilter(state *domain.State) domain.Node {
	if len(state.CandidatePapers) > 0 || !state.Retrieved.Empty() {
		return domain.NodeAddToStore
	}
	return domain.NodeGenerateAnswer
}

func next(node domain.Node, state *domain.State) domain.Node {
	switch node {
	case domain.NodeNeedsContext:
		return routeAfterNeedsContext(state)
	case domain.NodePullFromStore:
		return domain.NodeCheckRelevance
	case domain.NodeCheckRelevance:
		return routeAfterRelevance(state)
	case domain.NodeSearchExternal:
		return domain.NodeFilterPapers
	case domain.NodeFilterPapers:
		return routeAfterFilter(state)
	case domain.NodeAddToStore:
		return domain.NodePullFromStore
	default:
		return domain.NodeEnd
	}
}
