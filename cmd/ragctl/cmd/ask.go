package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
)

var askInteractive bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the knowledge store",
	Long: `Answer a question, growing the knowledge store from arXiv when needed.

Examples:
  # One-shot question
  ragctl ask "What is a Nash equilibrium?"

  # Interactive loop; type quit, exit or q to leave
  ragctl ask -i`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "Read questions from stdin until quit")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := validateFormat(outputFormat); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(args, " "))
	if !askInteractive && question == "" {
		return fmt.Errorf("a question is required unless --interactive is set")
	}

	return withApp(cmd.Context(), func(app *bootstrap.App) error {
		if askInteractive {
			return interactiveLoop(cmd.Context(), app.QueryUC, cmd.InOrStdin(), cmd.OutOrStdout())
		}
		result, err := app.QueryUC.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}
		return renderAnswer(cmd.OutOrStdout(), outputFormat, result)
	})
}

// interactiveLoop keeps answering until EOF or a quit word; per-question errors are printed, not returned.
func interactiveLoop(ctx context.Context, answerer ports.QuestionAnswerer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if isQuitWord(question) {
			return nil
		}

		result, err := answerer.Ask(ctx, question)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := renderAnswer(out, "table", result); err != nil {
			return err
		}
	}
}

func isQuitWord(s string) bool {
	switch strings.ToLower(s) {
	case "quit", "exit", "q":
		return true
	default:
		return false
	}
}
