package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/ingest"
	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/service"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/watch"
)

var serveWatchDir string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the service: load indexes, wire providers, and block until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := defaultLogger(cfg)

			shutdownTelemetry, sink, err := telemetry.Setup(ctx, cfg.Observability)
			if err != nil {
				return err
			}
			defer shutdownTelemetry(ctx)

			svc, err := service.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()
			svc.SetTelemetry(sink)

			if err := svc.LoadOrRebuildKeyword(ctx); err != nil {
				return err
			}

			logger.Info("ragctl serve ready",
				slog.String("address", cfg.Server.Address),
				slog.Int("chunks", svc.Vectors.Count()),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d indexed chunks (address=%s)\n", svc.Vectors.Count(), cfg.Server.Address)

			if serveWatchDir != "" {
				handle := func(watchCtx context.Context, path string) error {
					return ingestWatchedFile(watchCtx, svc, path)
				}
				w, err := watch.New(watch.Options{}, logger, handle)
				if err != nil {
					return err
				}
				go func() {
					if err := w.Run(ctx, serveWatchDir); err != nil && ctx.Err() == nil {
						logger.Warn("watch mode stopped", slog.String("error", err.Error()))
					}
				}()
			}

			<-ctx.Done()
			logger.Info("ragctl serve shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&serveWatchDir, "watch", "", "Directory to watch for new documents to auto-ingest (optional)")

	return cmd
}

// ingestWatchedFile runs a single watched file through the ingest
// pipeline with conservative defaults (doc_type "other", no programs),
// since watch mode has no per-file metadata prompt. A caller that
// needs richer metadata should use `ragctl ingest` directly instead.
func ingestWatchedFile(ctx context.Context, svc *service.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := svc.Processor.ProcessDocument(ctx, ingest.Request{
		Data:        data,
		Filename:    filepath.Base(path),
		UserMeta:    metadata.UserInput{DocType: metadata.DocTypeOther},
		IsSensitive: true,
		CreatedBy:   "ragctl-watch",
	})
	if err != nil {
		return err
	}

	svc.Logger.Info("watch-ingested document",
		slog.String("path", path),
		slog.String("doc_id", result.DocID),
		slog.Int("chunks", result.ChunkCount),
	)
	return nil
}
