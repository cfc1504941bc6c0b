package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired files once and exit",
		Long: `Delete every file whose expiry has passed: the stored bytes first, then the
record. Files whose bytes cannot be removed are kept and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := runSweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired files\n", deleted)
			return nil
		},
	}
}

func runSweep(ctx context.Context) (int, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return 0, err
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repos.Close()

	backend, readBackends, err := openBackends(ctx, cfg)
	if err != nil {
		return 0, err
	}

	deleted, err := newManager(cfg, repos.Files, backend, readBackends, logger).SweepExpired(ctx)
	if err != nil {
		slog.Error("sweep failed", "deleted_files", deleted, "error", err)
		return deleted, err
	}
	return deleted, nil
}
