package main

import (
	"context"

	"github.com/spf13/cobra"

	"dealership-workers/internal/matching"
)

var decideCmd = &cobra.Command{
	Use:   "decide VEHICLE_ID",
	Short: "Print whether a lead for the vehicle would be auto-assigned",
	Long: `Run the auto-assignment decision for a vehicle without caching it or
sending notifications.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *matching.Service) error {
			decision, err := svc.ShouldAutoAssign(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), decision)
		})
	},
}
