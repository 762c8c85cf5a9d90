package main

import (
	"github.com/spf13/cobra"

	"docflow-backend/internal/shared/storage/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			// openApp runs migrations as part of connecting.
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			version, err := db.SchemaVersion(cmd.Context(), app.DB)
			if err != nil {
				return err
			}
			cmd.Printf("schema at version %d\n", version)
			return nil
		},
	}
}
