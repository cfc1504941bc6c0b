package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/database"
	"github.com/fjmerc/fileshare/internal/repository/postgres"
)

func newMigrateCommand() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg, statusOnly, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print migration status without applying anything (PostgreSQL)")

	return cmd
}

type migrationRow struct {
	id      int
	name    string
	applied bool
}

func runMigrate(ctx context.Context, cfg *config.Config, statusOnly bool, out io.Writer) error {
	var rows []migrationRow

	switch cfg.DBType {
	case config.DBTypePostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgreSQL, 2)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !statusOnly {
			if err := postgres.RunMigrations(ctx, pool); err != nil {
				return err
			}
		}
		status, err := postgres.GetMigrationStatus(ctx, pool)
		if err != nil {
			return err
		}
		for _, m := range status {
			rows = append(rows, migrationRow{id: m.Version, name: m.Name, applied: m.Applied})
		}

	default:
		// Opening a SQLite database applies pending migrations.
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		status, err := database.GetMigrationStatus(ctx, db)
		if err != nil {
			return err
		}
		for _, m := range status {
			rows = append(rows, migrationRow{id: m.ID, name: m.Name, applied: m.Applied})
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAPPLIED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%t\n", r.id, r.name, r.applied)
	}
	return tw.Flush()
}
