package domain

import "time"

type QueryResult struct {
	RunID         string   `json:"run_id"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	UsedContext   bool     `json:"used_context"`
	Sources       []Source `json:"sources"`
	Iterations    int      `json:"iterations"`
	Path          []Node   `json:"path"`
	PapersSeen    int      `json:"papers_seen"`
	PapersIndexed []Paper  `json:"papers_indexed"`
}

type IngestResult struct {
	Topic       string  `json:"topic"`
	Found       int     `json:"found"`
	Kept        int     `json:"kept"`
	Indexed     []Paper `json:"indexed"`
	StoreBefore int     `json:"store_before"`
	StoreAfter  int     `json:"store_after"`
}

// RunRecord is the persisted trace of one answered question.
type RunRecord struct {
	ID          string        `json:"id"`
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Path        []Node        `json:"path"`
	Iterations  int           `json:"iterations"`
	PapersAdded int           `json:"papers_added"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

type StoreStats struct {
	Chunks int `json:"chunks"`
	Papers int `json:"papers"`
}
