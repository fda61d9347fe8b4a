package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending metadata-store schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := defaultLogger(cfg)
			store, err := metastore.Open(cfg.Store.SQLitePath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "metadata store migrated: %s\n", cfg.Store.SQLitePath)
			return nil
		},
	}
}
