package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

const serverVersion = "0.1.0"

func newServer(answerer ports.QuestionAnswerer, stats ports.StatsReader) *server.MCPServer {
	s := server.NewMCPServer("scholar-rag", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a research question from the paper knowledge store, "+
			"fetching and indexing arXiv papers when stored context is missing."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	), askQuestionHandler(answerer))

	s.AddTool(mcp.NewTool("store_stats",
		mcp.WithDescription("Report how many chunks and papers the knowledge store holds."),
	), storeStatsHandler(stats))

	return s
}

func askQuestionHandler(answerer ports.QuestionAnswerer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		result, err := answerer.Ask(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		var b strings.Builder
		b.WriteString(result.Answer)
		if len(result.Sources) > 0 {
			b.WriteString("\n\nSources:")
			for i, s := range result.Sources {
				fmt.Fprintf(&b, "\n[%d] %s (%s)", i+1, s.Title, s.SourceID)
			}
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func storeStatsHandler(stats ports.StatsReader) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := stats.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		raw, err := json.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("marshal stats: %w", err)
		}
		return mcp.NewToolResultText(string(raw)), nil
	}
}
