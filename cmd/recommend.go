package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iluma/rivalviews-cli/internal/model"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <business-id>",
	Short: "Recommend service bundles for a stored business",
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

		b, err := s.GetBusiness(ctx, args[0])
		if err != nil {
			return err
		}

		services := eng.RecommendService(*b)
		printServices(os.Stdout, b, services)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func printServices(w io.Writer, b *model.BusinessRecord, services []model.ServiceMatch) {
	fmt.Fprintf(w, "%s (%s, %s) - ILA %d\n\n", b.Name, b.Sector, b.City, b.ILAScore)
	if len(services) == 0 {
		fmt.Fprintln(w, "No service bundle applies.")
		return
	}
	for _, svc := range services {
		fmt.Fprintf(w, "%-10s suitability %3d  ROI %d%%  %s  %d$\n",
			svc.ServiceType, svc.Suitability, svc.EstimatedROI, svc.Timeline, svc.Price)
		for _, r := range svc.Reasoning {
			fmt.Fprintf(w, "    %s\n", r)
		}
	}
}
