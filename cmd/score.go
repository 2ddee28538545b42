package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iluma/rivalviews-cli/internal/ilascore"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute or refresh ILA visibility scores",
	Long: `Computes the 0-100 ILA composite from five sub-scores plus capped
authority bonuses.

Examples:
  # Ad-hoc score from the command line
  score --seo 70 --content 60 --presence 80 --reputation 75 --position 50

  # Same, with the authority bonus inputs and a breakdown
  score --seo 70 --content 60 --presence 80 --reputation 75 --position 50 \
        --domain-rating 45 --organic-traffic 2200 --breakdown

  # Persist new sub-scores for a stored business
  score --id 7f3a... --seo 70 --content 60 --presence 80 --reputation 75 --position 50

  # Recompute every stored composite from its stored inputs
  score --refresh`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Int("seo", 0, "SEO sub-score (0-100)")
	f.Int("content", 0, "content sub-score (0-100)")
	f.Int("presence", 0, "online presence sub-score (0-100)")
	f.Int("reputation", 0, "reputation sub-score (0-100)")
	f.Int("position", 0, "market position sub-score (0-100)")
	f.Int("domain-rating", 0, "Ahrefs-style domain rating (0-100)")
	f.Int64("organic-traffic", 0, "monthly organic traffic")
	f.Int("total-keywords", 0, "ranked keyword count")
	f.Int("ref-domains", 0, "referring domain count")
	f.Bool("breakdown", false, "print base and per-bonus contributions")
	f.String("id", "", "persist sub-scores for this stored business")
	f.Bool("refresh", false, "recompute all stored composites")
	f.Int("workers", 8, "concurrent workers for --refresh")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh, _ := cmd.Flags().GetBool("refresh")
	id, _ := cmd.Flags().GetString("id")

	if refresh {
		workers, _ := cmd.Flags().GetInt("workers")
		return runScoreRefresh(ctx, workers)
	}

	sub := ilascore.Subscores{}
	sub.SEO, _ = cmd.Flags().GetInt("seo")
	sub.Content, _ = cmd.Flags().GetInt("content")
	sub.Presence, _ = cmd.Flags().GetInt("presence")
	sub.Reputation, _ = cmd.Flags().GetInt("reputation")
	sub.Position, _ = cmd.Flags().GetInt("position")

	if id != "" {
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		score, err := s.UpdateSubscores(ctx, id, sub)
		if err != nil {
			return err
		}
		fmt.Printf("ILA score for %s: %d\n", id, score)
		return nil
	}

	bonus := &ilascore.BonusMetrics{}
	bonus.DomainRating, _ = cmd.Flags().GetInt("domain-rating")
	bonus.OrganicTraffic, _ = cmd.Flags().GetInt64("organic-traffic")
	bonus.TotalKeywords, _ = cmd.Flags().GetInt("total-keywords")
	bonus.RefDomains, _ = cmd.Flags().GetInt("ref-domains")

	if _, err := ilascore.ComputeStrict(sub, bonus); err != nil {
		return err
	}

	if breakdown, _ := cmd.Flags().GetBool("breakdown"); breakdown {
		printBreakdown(ilascore.ComputeBreakdown(sub, bonus))
		return nil
	}

	fmt.Printf("ILA score: %d\n", ilascore.Compute(sub, bonus))
	return nil
}

// runScoreRefresh recomputes every stored composite concurrently.
func runScoreRefresh(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 8
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ids, err := s.ListIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No businesses stored.")
		return nil
	}

	log := zap.L().With(zap.String("command", "score"))
	log.Info("refreshing composites", zap.Int("total", len(ids)), zap.Int("workers", workers))

	var mu sync.Mutex
	var refreshed int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := s.RefreshScore(gctx, id); err != nil {
				return eris.Wrapf(err, "refresh %s", id)
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Refreshed %d of %d scores\n", refreshed, len(ids))
	return nil
}

func printBreakdown(b ilascore.Breakdown) {
	fmt.Printf("Base:  %d\n", b.Base)
	if len(b.Bonuses) > 0 {
		fmt.Println("Bonuses:")
		keys := make([]string, 0, len(b.Bonuses))
		for k := range b.Bonuses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-16s +%d\n", k, b.Bonuses[k])
		}
	}
	fmt.Printf("Total: %d\n", b.Total)
}
