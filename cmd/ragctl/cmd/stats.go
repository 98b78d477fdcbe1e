package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge store and catalog sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validateFormat(outputFormat); err != nil {
			return err
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			stats, err := app.StatsUC.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return renderStats(cmd.OutOrStdout(), outputFormat, stats)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
