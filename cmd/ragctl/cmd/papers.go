package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
)

var (
	papersLimit int
	exportXLSX  string
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Inspect the paper catalog",
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed papers",
	Long: `List papers recorded by the answer loop, most recently updated first.

Examples:
  ragctl papers list
  ragctl papers list --limit 10 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validateFormat(outputFormat); err != nil {
			return err
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			papers, err := app.Catalog.List(cmd.Context(), papersLimit)
			if err != nil {
				return fmt.Errorf("list papers: %w", err)
			}
			return renderPapers(cmd.OutOrStdout(), outputFormat, papers)
		})
	},
}

var papersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the paper catalog to a spreadsheet",
	Long: `Export indexed papers to an .xlsx workbook.

Examples:
  ragctl papers export --xlsx papers.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if exportXLSX == "" {
			return fmt.Errorf("--xlsx is required")
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			papers, err := app.Catalog.List(cmd.Context(), papersLimit)
			if err != nil {
				return fmt.Errorf("list papers: %w", err)
			}
			if err := exportPapersXLSX(exportXLSX, papers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d papers to %s\n", len(papers), exportXLSX)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(papersCmd)
	papersCmd.AddCommand(papersListCmd, papersExportCmd)

	papersCmd.PersistentFlags().IntVar(&papersLimit, "limit", 50, "Maximum number of papers")
	papersExportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "Destination .xlsx file")
}
