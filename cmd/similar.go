package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iluma/rivalviews-cli/internal/store"
)

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar <business-id>",
	Short: "Find stored businesses most similar to one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		eng, err := newEngine()
		if err != nil {
			return err
		}

		target, err := s.GetBusiness(ctx, args[0])
		if err != nil {
			return err
		}

		pool, err := s.ListBusinesses(ctx, store.BusinessFilter{Limit: cfg.Matching.MaxResults})
		if err != nil {
			return err
		}

		limit := similarLimit
		if limit <= 0 {
			limit = cfg.Matching.SimilarLimit
		}

		similar := eng.FindSimilar(*target, pool, limit)
		if len(similar) == 0 {
			fmt.Println("No similar businesses found.")
			return nil
		}

		fmt.Printf("Similar to %s (%s, %s):\n", target.Name, target.Sector, target.City)
		for _, b := range similar {
			fmt.Printf("  %-30s %-14s %-12s ILA %d\n", b.Name, b.Sector, b.City, b.ILAScore)
		}
		return nil
	},
}

func init() {
	similarCmd.Flags().IntVar(&similarLimit, "limit", 0, "max results (default from config)")
	rootCmd.AddCommand(similarCmd)
}
