package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"dealership-workers/internal/matching"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest VEHICLE_ID",
	Short: "Print the top salesperson recommendations for a vehicle",
	Long: `Rank every active salesperson with spare capacity against the vehicle
and print the best matches with their score breakdown.

Examples:
  # Top 3 (the configured default)
  matchctl suggest veh-123

  # Top 5, including who was left out and why
  matchctl suggest veh-123 --limit 5 --show-excluded`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

type suggestResult struct {
	VehicleID       string                     `json:"vehicleId"`
	Recommendations []matching.ScoredCandidate `json:"recommendations"`
	Excluded        []matching.Exclusion       `json:"excluded,omitempty"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
}

func init() {
	f := suggestCmd.Flags()
	f.Int("limit", 0, "number of recommendations (0 = configured default)")
	f.Bool("show-excluded", false, "include salespeople skipped for capacity")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	showExcluded, _ := cmd.Flags().GetBool("show-excluded")

	return withService(cmd, func(ctx context.Context, svc *matching.Service) error {
		ranking, err := svc.Rank(ctx, args[0])
		if err != nil {
			return err
		}

		res := suggestResult{
			VehicleID:       args[0],
			Recommendations: svc.Engine().TopRecommendations(ranking.Candidates, limit),
			GeneratedAt:     time.Now().UTC(),
		}
		if showExcluded {
			res.Excluded = ranking.Excluded
		}
		return printJSON(cmd.OutOrStdout(), res)
	})
}
