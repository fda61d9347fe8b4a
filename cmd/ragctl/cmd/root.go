// Package cmd provides the ragctl CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/config"
	"github.com/ZacharyN/org-archivist-sub001/internal/logging"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// Exit codes per spec.md §6.
const (
	ExitOK                   = 0
	ExitBadInput             = 64
	ExitDependencyUnavailable = 69
	ExitInternal             = 70
	ExitCancelled            = 130
)

var configPath string

// NewRootCmd builds the ragctl root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Grant-writing RAG service: ingest, index, and serve grounded generation over a document corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults layered under it)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newReindexCmd())
	root.AddCommand(newCacheFlushCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

// Execute runs the root command and returns a process exit code
// derived from the error's ragerr.Kind (spec.md §6's exit-code table).
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintln(os.Stderr, "ragctl:", err)
	return exitCodeFor(ctx, err)
}

func exitCodeFor(ctx context.Context, err error) int {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ExitCancelled
	}

	var rerr *ragerr.Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case ragerr.Validation:
			return ExitBadInput
		case ragerr.DependencyUnavailable:
			return ExitDependencyUnavailable
		case ragerr.NotFound, ragerr.Conflict, ragerr.Transient, ragerr.Internal:
			return ExitInternal
		}
	}
	return ExitInternal
}

// loadConfig loads the service config from --config (or defaults if unset).
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// defaultLogger builds the process-wide logger via internal/logging's
// rotating file writer (+ stderr tee), falling back to a bare stderr
// JSON handler if the log directory can't be created so a misconfigured
// log path never stops the command from running.
func defaultLogger(cfg *config.Config) *slog.Logger {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel

	logger, _, err := logging.Setup(logCfg)
	if err != nil {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logging.LevelFromString(cfg.Server.LogLevel)})
		return slog.New(handler)
	}
	return logger
}
