package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <topic>",
	Short: "Search arXiv for a topic and index the on-topic papers",
	Long: `Seed the knowledge store without asking a question. The topic goes through
the same search, filter and add steps as the answer loop.

Examples:
  ragctl ingest "evolutionary game theory"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(outputFormat); err != nil {
			return err
		}
		topic := strings.Join(args, " ")
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			result, err := app.IngestUC.Ingest(cmd.Context(), topic)
			if err != nil {
				return fmt.Errorf("ingest %q: %w", topic, err)
			}
			return renderIngest(cmd.OutOrStdout(), outputFormat, result)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
