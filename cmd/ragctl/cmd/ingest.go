package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZacharyN/org-archivist-sub001/internal/ingest"
	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/service"
)

var (
	ingestDocType             string
	ingestYear                int
	ingestPrograms            []string
	ingestTags                []string
	ingestOutcome             string
	ingestCreatedBy           string
	ingestSensitivityConfirmed bool
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Batch-ingest a file or directory of documents (C6)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ingestSensitivityConfirmed {
				return ragerr.ValidationError("--sensitivity-confirmed must be set: a sensitivity review is required before a document can be ingested")
			}

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

			files, err := collectIngestFiles(args[0])
			if err != nil {
				return ragerr.ValidationError(err.Error())
			}

			userMeta := metadata.UserInput{
				DocType:  metadata.DocType(ingestDocType),
				Year:     ingestYear,
				Programs: ingestPrograms,
				Tags:     ingestTags,
				Outcome:  metadata.Outcome(ingestOutcome),
			}

			var ingested, failed int
			for _, path := range files {
				data, err := os.ReadFile(path)
				if err != nil {
					logger.Warn("skipping unreadable file", "path", path, "error", err)
					failed++
					continue
				}

				result, err := svc.Processor.ProcessDocument(cmd.Context(), ingest.Request{
					Data:        data,
					Filename:    filepath.Base(path),
					UserMeta:    userMeta,
					IsSensitive: true,
					CreatedBy:   ingestCreatedBy,
				})
				if err != nil {
					logger.Warn("document ingest failed", "path", path, "error", err)
					failed++
					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "ingested %s -> doc_id=%s chunks=%d\n", path, result.DocID, result.ChunkCount)
				ingested++
			}

			if err := svc.RebuildKeyword(cmd.Context()); err != nil {
				logger.Warn("post-ingest keyword rebuild failed", "error", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingest complete: %d succeeded, %d failed\n", ingested, failed)
			if failed > 0 && ingested == 0 {
				return ragerr.ValidationError("every document in the batch failed to ingest")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ingestDocType, "doc-type", string(metadata.DocTypeOther), "Document type")
	cmd.Flags().IntVar(&ingestYear, "year", 0, "Document year")
	cmd.Flags().StringSliceVar(&ingestPrograms, "programs", nil, "Comma-separated program names")
	cmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringVar(&ingestOutcome, "outcome", "", "Grant outcome")
	cmd.Flags().StringVar(&ingestCreatedBy, "created-by", "ragctl", "Principal id recorded as the document's creator")
	cmd.Flags().BoolVar(&ingestSensitivityConfirmed, "sensitivity-confirmed", false, "Confirms a sensitivity review happened before ingest (required)")

	return cmd
}

// collectIngestFiles expands path into a sorted list of regular files:
// itself if it is a file, or every non-hidden regular file under it if
// it is a directory.
func collectIngestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
