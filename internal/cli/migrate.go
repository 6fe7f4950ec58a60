package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimsports/aim-backend/migrations"
)

func newMigrateCmd(opts *options) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(); err != nil {
				return err
			}

			if down {
				if err := migrations.Down(opts.dbPath, ""); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			}

			applied, err := migrations.Up(opts.dbPath, "")
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations to apply")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations")

	return cmd
}
