package cmd

import (
	"fmt"

	"github.com/lineaapp/linea/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, conn, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close(conn)
				return db.RunMigrations(conn.DB, cfg.DBDriver)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, conn, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close(conn)
				return db.MigrateDown(conn.DB, cfg.DBDriver)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, conn, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close(conn)

				version, err := db.Version(conn.DB, cfg.DBDriver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			},
		},
	)
	return cmd
}
