package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/service"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Force-rebuild the BM25 keyword index from the vector store (C5)",
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

			if err := svc.RebuildKeyword(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reindex complete: %d chunks\n", svc.Vectors.Count())
			return nil
		},
	}
}
