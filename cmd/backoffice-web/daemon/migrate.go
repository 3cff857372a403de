package daemon

import (
	"log/slog"

	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/spf13/cobra"
)

func installMigrateCmd(app *App) {
	var down bool

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run migration scripts",
		Long: `Apply the schema migrations embedded in the binary to the database.
With --down, every migration is rolled back instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running migrate command", "down", down)
			return database.Migrate(app.config.DBconfig, down)
		},
	}
	migrateCmd.Flags().BoolVar(&down, "down", false, "roll back every migration")
	app.cmd.AddCommand(migrateCmd)
}
