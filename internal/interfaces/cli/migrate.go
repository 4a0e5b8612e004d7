package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
)

func newMigrateCommand() *cobra.Command {
	var (
		configPath    string
		migrationsDir string
		down          bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}

			conn, err := postgres.NewConnection(cfg.Database, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			if down {
				if err := conn.MigrateDown(migrationsDir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
				return nil
			}

			if err := conn.Migrate(migrationsDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
