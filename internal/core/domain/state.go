package domain

// State is threaded through every graph step of a single question.
// It is created per query and owned by exactly one graph run.
type State struct {
	Query           string
	NeedsContext    bool
	Retrieved       RetrievalBundle
	ContextRelevant bool
	CandidatePapers []Paper
	SeenPaperIDs    map[string]struct{}
	PapersAdded     bool
	Answer          string

	Iterations int
	Path       []Node
	Indexed    []Paper
}

func NewState(query string) *State {
	return &State{
		Query:        query,
		SeenPaperIDs: make(map[string]struct{}),
	}
}

func (s *State) MarkSeen(id string) {
	if s.SeenPaperIDs == nil {
		s.SeenPaperIDs = make(map[string]struct{})
	}
	s.SeenPaperIDs[id] = struct{}{}
}

func (s *State) HasSeen(id string) bool {
	_, ok := s.SeenPaperIDs[id]
	return ok
}
