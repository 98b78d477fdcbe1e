package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/workflow"
)

const exportSheet = "Papers"

// paperRow is the flat view of a catalog record shared by every output format.
type paperRow struct {
	SourceID   string   `json:"source_id" yaml:"source_id"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors" yaml:"authors"`
	Published  string   `json:"published" yaml:"published"`
	PDFURL     string   `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	Status     string   `json:"status" yaml:"status"`
	ChunkCount int      `json:"chunk_count" yaml:"chunk_count"`
	PDFPath    string   `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	PDFPages   int      `json:"pdf_pages,omitempty" yaml:"pdf_pages,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt  string   `json:"updated_at" yaml:"updated_at"`
}

func toRows(papers []domain.PaperRecord) []paperRow {
	rows := make([]paperRow, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, paperRow{
			SourceID:   p.SourceID,
			Title:      p.Title,
			Authors:    p.Authors,
			Published:  p.Published,
			PDFURL:     p.PDFURL,
			Status:     string(p.Status),
			ChunkCount: p.ChunkCount,
			PDFPath:    p.PDFPath,
			PDFPages:   p.PDFPages,
			Error:      p.Error,
			UpdatedAt:  formatTime(p.UpdatedAt),
		})
	}
	return rows
}

func renderPapers(w io.Writer, format string, papers []domain.PaperRecord) error {
	rows := toRows(papers)
	switch format {
	case "json":
		return writeJSON(w, rows)
	case "yaml":
		return writeYAML(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE ID\tTITLE\tPUBLISHED\tSTATUS\tCHUNKS\tPAGES")
	for _, r := range rows {
		pages := "-"
		if r.PDFPages > 0 {
			pages = fmt.Sprint(r.PDFPages)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.SourceID, truncate(r.Title, 60), r.Published, r.Status, r.ChunkCount, pages)
	}
	return tw.Flush()
}

func renderAnswer(w io.Writer, format string, result *domain.QueryResult) error {
	switch format {
	case "json":
		return writeJSON(w, result)
	case "yaml":
		return writeYAML(w, answerView(result))
	}

	fmt.Fprintln(w, result.Answer)
	if len(result.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for i, s := range result.Sources {
			fmt.Fprintf(w, "  [%d] %s (%s)\n", i+1, s.Title, s.SourceID)
		}
	}
	if len(result.PapersIndexed) > 0 {
		fmt.Fprintf(w, "\nIndexed %d new paper(s) in %d iteration(s).\n", len(result.PapersIndexed), result.Iterations)
	}
	return nil
}

func answerView(result *domain.QueryResult) map[string]any {
	path := make([]string, 0, len(result.Path))
	for _, n := range result.Path {
		path = append(path, n.String())
	}
	sources := make([]map[string]any, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, map[string]any{
			"title":     s.Title,
			"source_id": s.SourceID,
			"chunk_id":  s.ChunkID,
			"distance":  s.Distance,
		})
	}
	return map[string]any{
		"run_id":         result.RunID,
		"question":       result.Question,
		"answer":         result.Answer,
		"used_context":   result.UsedContext,
		"iterations":     result.Iterations,
		"path":           path,
		"papers_seen":    result.PapersSeen,
		"papers_indexed": len(result.PapersIndexed),
		"sources":        sources,
	}
}

type edgeRow struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

func renderEdges(w io.Writer, format string, edges []workflow.Edge) error {
	rows := make([]edgeRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, edgeRow{From: e.From.String(), To: e.To.String(), Label: e.Label})
	}
	switch format {
	case "json":
		return writeJSON(w, rows)
	case "yaml":
		return writeYAML(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tCONDITION")
	for _, r := range rows {
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.From, r.To, label)
	}
	return tw.Flush()
}

func renderIngest(w io.Writer, format string, result *domain.IngestResult) error {
	switch format {
	case "json":
		return writeJSON(w, result)
	case "yaml":
		return writeYAML(w, map[string]any{
			"topic":        result.Topic,
			"found":        result.Found,
			"kept":         result.Kept,
			"indexed":      len(result.Indexed),
			"store_before": result.StoreBefore,
			"store_after":  result.StoreAfter,
		})
	}

	fmt.Fprintf(w, "topic %q: found %d, kept %d, indexed %d (store %d -> %d chunks)\n",
		result.Topic, result.Found, result.Kept, len(result.Indexed), result.StoreBefore, result.StoreAfter)
	for _, p := range result.Indexed {
		fmt.Fprintf(w, "  + %s (%s)\n", p.Title, p.SourceID)
	}
	return nil
}

func renderStats(w io.Writer, format string, stats domain.StoreStats) error {
	switch format {
	case "json":
		return writeJSON(w, stats)
	case "yaml":
		return writeYAML(w, map[string]int{"chunks": stats.Chunks, "papers": stats.Papers})
	}
	fmt.Fprintf(w, "chunks: %d\npapers: %d\n", stats.Chunks, stats.Papers)
	return nil
}

func exportPapersXLSX(path string, papers []domain.PaperRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"Source ID", "Title", "Authors", "Published", "PDF URL", "Status", "Chunks", "PDF Pages", "Updated At"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range toRows(papers) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.SourceID, r.Title, strings.Join(r.Authors, ", "), r.Published, r.PDFURL, r.Status, r.ChunkCount, r.PDFPages, r.UpdatedAt}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 60); err != nil {
		return fmt.Errorf("size title column: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
