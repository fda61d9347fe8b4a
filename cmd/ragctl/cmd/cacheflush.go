package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/service"
)

func newCacheFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-flush",
		Short: "Invalidate the query cache (C8)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := defaultLogger(cfg)

			svc, err := service.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			entries := svc.Cache.Len()
			svc.Cache.InvalidateAll()
			fmt.Fprintf(cmd.OutOrStdout(), "cache flushed (%d entries cleared)\n", entries)
			return nil
		},
	}
}
