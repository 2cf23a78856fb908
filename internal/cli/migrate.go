package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/bookstack/internal/config"
	"github.com/mrlokans/bookstack/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewConfig()

			// Open migrates.
			db, err := database.Open(database.Options{
				Driver:   cfg.Database.Driver,
				Path:     cfg.Database.Path,
				DSN:      cfg.Database.DSN,
				LogLevel: database.ParseLogLevel(cfg.Database.LogLevel),
			})
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}
