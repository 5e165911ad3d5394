package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

func newIngestCmd(d deps, newLogger func() *slog.Logger) *cobra.Command {
	var src models.SourceObject
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract, chunk and store one object synchronously",
		Long: `Runs the full pipeline for a single stored object using the
configured object store, document store and extraction backends, then
prints the result as JSON. Skipped objects exit successfully.`,
		Example: "  ingestctl ingest --bucket uploads --key p1/deck.pdf --content-type application/pdf",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			cfg := d.loadConfig()

			runner, closeFn, err := d.newRunner(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}
			defer closeFn()

			res, err := runner.Ingest(cmd.Context(), src)
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
			}
			if errors.Is(err, core.ErrEmptyExtraction) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&src.ContainerID, "bucket", "", "bucket or container holding the object")
	cmd.Flags().StringVar(&src.ObjectKey, "key", "", "object key")
	cmd.Flags().StringVar(&src.DeclaredContentType, "content-type", "", "declared content type, parameters allowed")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("content-type")
	return cmd
}
