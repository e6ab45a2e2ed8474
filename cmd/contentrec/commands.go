package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/engine"
	"github.com/rushteam/contentrec/recall"
)

const defaultLimit = 10

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.json>",
		Short: "Load content and events from a JSON fixtures file",
		Long: `Load content items and interaction events into the configured store.

The file holds {"content": [...], "events": [...]}. Content without
created_at is stamped with the current time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFixtures(args[0])
			if err != nil {
				return err
			}
			stores, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := f.apply(cmd.Context(), stores.Writer, time.Now()); err != nil {
				return err
			}
			if a.human {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d content items and %d events\n", len(f.Content), len(f.Events))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int{
				"content": len(f.Content),
				"events":  len(f.Events),
			})
		},
	}
}

func newSimilarCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <content-id>",
		Short: "Content similar to a given item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			res, err := e.ContentBased(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return a.printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", defaultLimit, "Maximum number of results")
	return cmd
}

func newForUserCmd(a *app) *cobra.Command {
	var (
		limit   int
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "for-user <user-id>",
		Short: "Personalized recommendations for a user",
		Long: `Recommend content matching the user's recent interaction profile.

Content the user has already viewed, and ids passed with --exclude,
never appear in the results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			res, err := e.Personalized(cmd.Context(), args[0], limit, exclude)
			if err != nil {
				return err
			}
			return a.printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", defaultLimit, "Maximum number of results")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Content ids to exclude")
	return cmd
}

func newTrendingCmd(a *app) *cobra.Command {
	var (
		limit  int
		window string
	)
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Most engaged content in a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			res, err := e.Trending(cmd.Context(), window, limit)
			if err != nil {
				return err
			}
			return a.printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", defaultLimit, "Maximum number of results")
	cmd.Flags().StringVarP(&window, "window", "w", recall.WindowWeek, "Time window: day, week or month")
	return cmd
}

func newRecommendCmd(a *app) *cobra.Command {
	var (
		req   engine.Request
		types []string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run several strategies and merge their results",
		Long: `Run several strategies concurrently and print per-strategy results plus
one merged list.

Without --strategy, content_based runs when --content is set, personalized
when --user is set, and trending always runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range types {
				req.Types = append(req.Types, core.ContentType(t))
			}
			e, done, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			resp, err := e.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !a.human {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			for _, r := range resp.Results {
				printResultHuman(cmd.OutOrStdout(), r)
			}
			printResultHuman(cmd.OutOrStdout(), &engine.Result{Strategy: "merged", Items: resp.Merged})
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&req.Strategies, "strategy", "s", nil, "Strategies: content_based, personalized, trending")
	f.StringVar(&req.ContentID, "content", "", "Seed content id for content_based")
	f.StringVar(&req.UserID, "user", "", "User id for personalized")
	f.StringVarP(&req.Window, "window", "w", "", "Trending window: day, week or month")
	f.IntVarP(&req.Limit, "limit", "l", defaultLimit, "Maximum number of results per strategy")
	f.StringSliceVar(&req.ExcludeIDs, "exclude", nil, "Content ids to exclude")
	f.StringSliceVar(&types, "type", nil, "Restrict to content types: episode, insight, report")
	f.StringVar(&req.Filter, "filter", "", `CEL filter, e.g. 'item.type == "report"'`)
	f.StringVar(&req.Merge, "merge", recall.MergePriority, "Merge strategy: first, priority, union, score")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Build the similarity index and print its statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			st := e.IndexStats()
			if !a.human {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index v%d built %s (weights %s)\n", st.Version, st.BuiltAt.Format(time.RFC3339), st.WeightsVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "  items: %d  edges: %d  avg neighbors: %.2f\n", st.Items, st.Edges, st.AvgNeighbors)
			for _, t := range core.ContentTypes() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %d\n", t, st.ItemsByType[string(t)])
			}
			return nil
		},
	}
}
