package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iluma/rivalviews-cli/internal/model"
	"github.com/iluma/rivalviews-cli/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank stored prospects against acquisition criteria",
	Long: `Scores every stored business against the given criteria and prints the
ranked matches above the configured cutoff.

Examples:
  # Health-sector prospects in Montréal with a decent visibility score
  match --sectors Santé --locations Montréal --min-ila 60

  # Top 5 across all sectors, with aggregate insights
  match --limit 5 --insights

  # JSON output for piping
  match --sectors Restaurant --format json`,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.String("sectors", "", "comma-separated target sectors")
	f.String("locations", "", "comma-separated target cities")
	f.Int("min-ila", 0, "minimum ILA score (0 disables the range filter)")
	f.Int("max-ila", 100, "maximum ILA score")
	f.Int("limit", 0, "maximum matches to return (0=use config default)")
	f.Bool("insights", false, "print aggregate insights after the matches")
	f.String("format", "table", "output format: table or json")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return eris.Errorf("match: --format must be table or json (got %q)", format)
	}

	criteria := criteriaFromFlags(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	eng, err := newEngine()
	if err != nil {
		return err
	}

	businesses, err := s.ListBusinesses(ctx, store.BusinessFilter{Limit: cfg.Matching.MaxResults})
	if err != nil {
		return err
	}

	matches := eng.FindMatches(businesses, criteria, limit)
	zap.L().Info("match complete",
		zap.Int("candidates", len(businesses)),
		zap.Int("matches", len(matches)),
	)

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(matches), "match: encode json")
	}

	printMatchTable(matches)

	if withInsights, _ := cmd.Flags().GetBool("insights"); withInsights {
		printInsights(eng.Insights(matches, criteria))
	}
	return nil
}

func criteriaFromFlags(cmd *cobra.Command) model.MatchCriteria {
	var criteria model.MatchCriteria

	if v, _ := cmd.Flags().GetString("sectors"); v != "" {
		criteria.Sectors = splitAndTrim(v)
	}
	if v, _ := cmd.Flags().GetString("locations"); v != "" {
		criteria.Locations = splitAndTrim(v)
	}
	if minILA, _ := cmd.Flags().GetInt("min-ila"); minILA > 0 {
		maxILA, _ := cmd.Flags().GetInt("max-ila")
		criteria.ILAScoreRange = &model.ScoreRange{Min: minILA, Max: maxILA}
	}
	return criteria
}

func printMatchTable(matches []model.MatchResult) {
	if len(matches) == 0 {
		fmt.Println("No matches above the cutoff.")
		return
	}

	fmt.Printf("%-30s %-14s %-12s %5s %5s %10s\n",
		"Name", "Sector", "City", "ILA", "Match", "Est.Value")
	fmt.Println(strings.Repeat("-", 82))
	for _, m := range matches {
		name := truncateName(m.Business.Name, 30)
		fmt.Printf("%-30s %-14s %-12s %5d %5d %9d$\n",
			name, m.Business.Sector, m.Business.City,
			m.Business.ILAScore, m.Score, m.EstimatedValue)
		for _, r := range m.Reasons {
			fmt.Printf("    + %s\n", r)
		}
		for _, r := range m.Recommendations {
			fmt.Printf("    > %s\n", r)
		}
	}
}

func printInsights(summary model.InsightSummary) {
	fmt.Printf("\n--- Insights ---\n")
	fmt.Printf("Total matches: %d\n", summary.TotalMatches)
	fmt.Printf("Average score: %.1f\n", summary.AverageScore)
	if len(summary.TopReasons) > 0 {
		fmt.Println("Top reasons:")
		for _, r := range summary.TopReasons {
			fmt.Printf("  - %s\n", r)
		}
	}
	if len(summary.Recommendations) > 0 {
		fmt.Println("Recommendations:")
		for _, r := range summary.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}

// truncateName shortens a display name to max runes. Accented names are
// common here, so the cut happens on runes, not bytes.
func truncateName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max-3]) + "..."
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
