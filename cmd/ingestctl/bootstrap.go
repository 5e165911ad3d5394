package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	db "github.com/markdave123-py/Dossier/internal/core/database"
)

func newBootstrapCmd(d deps, newLogger func() *slog.Logger) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				schema, err := db.Schema()
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), schema)
				return err
			}
			cfg := d.loadConfig()
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL not set")
			}
			if err := d.bootstrap(cmd.Context(), cfg.DatabaseURL, newLogger()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "schema version %d is in place\n", db.SchemaVersion)
			return err
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}
