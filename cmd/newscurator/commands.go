package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"NewsCurator/internal/domain"
)

func interestCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Manage the interests searched for news",
	}

	var categories []string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an interest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			interest, err := application.Store().AddInterest(cmd.Context(), args[0], categories, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added interest %q (id %d)\n", interest.Name, interest.ID)
			return nil
		},
	}
	add.Flags().StringSliceVar(&categories, "category", nil, "Category to file the interest under (repeatable)")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an interest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Store().RemoveInterest(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed interest %q\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List interests with their discovery record",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			interests, err := application.Store().ListInterests(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORIES\tDISCOVERIES\tAVG INTERVAL\tLAST NEW\tLAST SEARCH")
			for _, interest := range interests {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					interest.Name,
					strings.Join(interest.Categories, ","),
					interest.DiscoveryCount,
					formatSeconds(interest.AvgDiscoveryIntervalSeconds),
					formatTime(interest.LastNewArticleAt),
					formatTime(interest.LastSearchAttemptAt))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func interactCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "interact <article-id> <click|like|dislike>",
		Short: "Record feedback on an article",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("article id %q: %w", args[0], err)
			}
			kind, err := domain.ParseInteractionType(args[1])
			if err != nil {
				return err
			}

			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			updated, err := application.Learner().Record(cmd.Context(), articleID, kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s on article %d, %d topic(s) updated\n", kind, articleID, updated)
			return nil
		},
	}
}

func affinityCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "affinity",
		Short: "Inspect learned topic preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List topic affinities",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			affinities, err := application.Store().ListAffinities(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tAFFINITY\tINTERACTIONS\tUPDATED")
			for _, a := range affinities {
				fmt.Fprintf(w, "%s\t%+.3f\t%d\t%s\n", a.TopicName, a.AffinityScore, a.InteractionCount, formatTime(a.LastUpdated))
			}
			return w.Flush()
		},
	})
	return cmd
}

func briefingCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Read briefings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show the latest briefing, or the one with the given id, as markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			var briefing domain.Briefing
			if len(args) == 1 {
				id, perr := strconv.ParseInt(args[0], 10, 64)
				if perr != nil {
					return fmt.Errorf("briefing id %q: %w", args[0], perr)
				}
				briefing, err = application.Store().GetBriefing(cmd.Context(), id)
			} else {
				briefing, err = application.Store().LatestBriefing(cmd.Context())
			}
			if err != nil {
				return err
			}

			articles, err := application.Store().ArticlesByIDs(cmd.Context(), briefing.ArticleIDs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderBriefing(briefing, articles))
			return err
		},
	})
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).Round(time.Minute).String()
}
