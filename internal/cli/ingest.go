package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *options) *cobra.Command {
	var matchup, scheduledAt string

	cmd := &cobra.Command{
		Use:   "ingest <possessions.csv>",
		Short: "Create a game from possession spreadsheet",
		Long: "Create a game from CSV with player, jersey and label columns " +
			"(outcome and team are optional) and link matching film to it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if scheduledAt != "" {
				var err error
				at, err = time.Parse(time.RFC3339, scheduledAt)
				if err != nil {
					return fmt.Errorf("invalid --scheduled-at: %w", err)
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open spreadsheet: %w", err)
			}
			defer f.Close()

			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			game, err := srv.ingest.IngestCSV(cmd.Context(), f, matchup, at)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "game %d %q scheduled at %s\n",
				game.ID, game.Matchup, game.ScheduledAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&matchup, "matchup", "", "game matchup, e.g. \"Lions vs Tigers\"")
	cmd.Flags().StringVar(&scheduledAt, "scheduled-at", "", "game time in RFC3339, defaults to now")
	_ = cmd.MarkFlagRequired("matchup")

	return cmd
}
