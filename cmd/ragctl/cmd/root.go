package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
	"github.com/kirillkom/scholar-rag/internal/config"
	"github.com/kirillkom/scholar-rag/internal/observability/logging"
)

var (
	// outputFormat is the output format (table, json, yaml)
	outputFormat string
	// noQueue skips publishing paper events to NATS
	noQueue bool
	// logLevel overrides LOG_LEVEL for the CLI
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "CLI for scholar-rag, a self-growing research paper RAG",
	Long: `ragctl answers domain questions from a knowledge store of research papers.
When the store lacks relevant context it searches arXiv, keeps on-topic papers,
indexes them and retries.

Examples:
  # Ask a single question
  ragctl ask "What is a Nash equilibrium?"

  # Start an interactive session
  ragctl ask -i

  # Seed the store for a topic
  ragctl ingest "mechanism design"

  # List indexed papers as YAML
  ragctl papers list -o yaml`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noQueue, "no-queue", false, "Do not publish paper events to NATS")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to $LOG_LEVEL or warn)")
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg := config.Load()
	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "warn"
	}
	slog.SetDefault(logging.New("ragctl", logging.Options{Level: level, Output: os.Stderr, File: cfg.LogFile}))

	var opts []bootstrap.Option
	if noQueue {
		opts = append(opts, bootstrap.WithoutQueue())
	}
	app, err := bootstrap.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	return fn(app)
}

func validateFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
