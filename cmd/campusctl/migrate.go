package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			applied, err := repo.Migrate(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.format, map[string]any{"applied": applied}, func() string {
				if len(applied) == 0 {
					return "schema is up to date"
				}
				return fmt.Sprintf("applied %d migration(s): %v", len(applied), applied)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			reverted, err := repo.MigrateDown(ctx, steps)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.format, map[string]any{"reverted": reverted}, func() string {
				if len(reverted) == 0 {
					return "nothing to roll back"
				}
				return fmt.Sprintf("rolled back %d migration(s): %v", len(reverted), reverted)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
