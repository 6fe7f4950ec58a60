package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func newTable(cmd *cobra.Command) *tablewriter.Table {
	return tablewriter.NewTable(cmd.OutOrStdout(), tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func newStatsCmd(opts *options) *cobra.Command {
	var matchup string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats of the latest game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			stats, err := srv.stat.GetStats(cmd.Context(), matchup)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", stats.Matchup)

			pt := newTable(cmd)
			pt.Header("TEAM", "POSSESSION %")
			for _, s := range stats.Possession {
				pt.Append(s.Team, strconv.Itoa(s.Percentage))
			}
			pt.Render()

			if len(stats.Insights) > 0 {
				fmt.Fprintln(out)
				it := newTable(cmd)
				it.Header("PLAYER", "INSIGHT", "DETAIL")
				for _, i := range stats.Insights {
					it.Append(i.Player, i.Label, i.Detail)
				}
				it.Render()
			}

			fmt.Fprintf(out, "\nORtg %.1f  eFG%% %.1f  TOV%% %.1f\n",
				stats.Summary.OffensiveRating, stats.Summary.EffectiveFG, stats.Summary.TurnoverRate)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchup, "matchup", "", "exact matchup, latest game if empty")

	return cmd
}

func newGamesCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "games [query]",
		Short: "Search games by matchup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			srv, err := opts.services()
			if err != nil {
				return err
			}
			defer srv.Close()

			games, err := srv.matcher.SearchGames(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("search games: %w", err)
			}
			if len(games) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no games)")
				return nil
			}

			t := newTable(cmd)
			t.Header("ID", "MATCHUP", "SCHEDULED")
			for _, g := range games {
				t.Append(strconv.FormatInt(g.ID, 10), g.Matchup, g.ScheduledAt.Format(time.DateTime))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "max games to show")

	return cmd
}
