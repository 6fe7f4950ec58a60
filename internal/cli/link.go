package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aimsports/aim-backend/internal/models"
)

func parseID(s string, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newLinkUploadsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "link-uploads <game_id>",
		Short: "Assign film without a game to the game by its matchup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := parseID(args[0], "game")
			if err != nil {
				return err
			}

			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			game, err := srv.storage.Game(cmd.Context(), gameID)
			if err != nil {
				return fmt.Errorf("get game: %w", err)
			}

			n, err := srv.matcher.LinkUploadsToGame(cmd.Context(), game)
			if err != nil {
				return fmt.Errorf("link uploads: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "linked %d uploads to %q\n", n, game.Matchup)
			return nil
		},
	}
}

func newRelinkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "relink <clip_id>...",
		Short: "Recompute clip possession links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg, "clip")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			for _, id := range ids {
				n, err := srv.correlation.RelinkClip(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("relink clip %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "clip %d: %d possessions\n", id, n)
			}
			return nil
		},
	}
}

func newSetRangeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-range <possession_id> <start_second> <end_second>",
		Short: "Tag possession with video range and relink affected clips",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "possession")
			if err != nil {
				return err
			}
			start, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid start second %q", args[1])
			}
			end, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid end second %q", args[2])
			}

			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			p, err := srv.correlation.SetPossessionRange(cmd.Context(), id, models.Range{Start: start, End: end})
			if err != nil {
				return fmt.Errorf("set range: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "possession %d %q: [%d, %d)\n", p.ID, p.Label, start, end)
			return nil
		},
	}
}
