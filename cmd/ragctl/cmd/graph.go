package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/core/workflow"
)

var graphEdges bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the answer loop as a mermaid flowchart",
	Long: `Print the control-flow graph of the answer loop in mermaid syntax,
or list its transitions with --edges.

Examples:
  ragctl graph > graph.mmd
  ragctl graph --edges -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !graphEdges {
			fmt.Fprint(cmd.OutOrStdout(), workflow.Mermaid())
			return nil
		}
		if err := validateFormat(outputFormat); err != nil {
			return err
		}
		return renderEdges(cmd.OutOrStdout(), outputFormat, workflow.Edges())
	},
}

func init() {
	graphCmd.Flags().BoolVar(&graphEdges, "edges", false, "List transitions instead of a flowchart")
	rootCmd.AddCommand(graphCmd)
}
