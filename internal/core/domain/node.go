package domain

// Node names a step of the question-answering graph.
type Node string

const (
	NodeNeedsContext   Node = "needs_context"
	NodePullFromStore  Node = "pull_from_store"
	NodeCheckRelevance Node = "check_relevance"
	NodeSearchExternal Node = "search_external"
	NodeFilterPapers   Node = "filter_papers"
	NodeAddToStore     Node = "add_to_store"
	NodeGenerateAnswer Node = "generate_answer"
	NodeEnd            Node = "end"
)

func (n Node) String() string {
	return string(n)
}
