package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

type answererFake struct {
	err error
}

func (f answererFake) Ask(_ context.Context, question string) (*domain.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QueryResult{
		Answer:  "A Nash equilibrium is a stable strategy profile.",
		Sources: []domain.Source{{Title: "Nash Equilibria in Finite Games", SourceID: "http://arxiv.org/abs/2001.00001v1"}},
	}, nil
}

type statsFake struct{}

func (statsFake) Stats(context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{Chunks: 4, Papers: 2}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestAskQuestionIncludesSources(t *testing.T) {
	res, err := askQuestionHandler(answererFake{})(context.Background(), callRequest(map[string]any{
		"question": "What is a Nash equilibrium?",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "stable strategy profile") || !strings.Contains(text, "[1] Nash Equilibria in Finite Games") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestAskQuestionRequiresQuestion(t *testing.T) {
	res, err := askQuestionHandler(answererFake{})(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing question")
	}
}

func TestAskQuestionReportsFailureAsToolError(t *testing.T) {
	res, err := askQuestionHandler(answererFake{err: errors.New("model unavailable")})(context.Background(),
		callRequest(map[string]any{"question": "q"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "model unavailable") {
		t.Fatalf("expected tool error with cause")
	}
}

func TestStoreStatsReturnsJSON(t *testing.T) {
	res, err := storeStatsHandler(statsFake{})(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := resultText(t, res); got != `{"chunks":4,"papers":2}` {
		t.Fatalf("unexpected stats %q", got)
	}
}

func TestNewServerListsTools(t *testing.T) {
	s := newServer(answererFake{}, statsFake{})
	reply := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	raw, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	for _, name := range []string{"ask_question", "store_stats"} {
		if !strings.Contains(string(raw), `"name":"`+name+`"`) {
			t.Fatalf("expected %s in tools/list reply: %s", name, raw)
		}
	}
}
