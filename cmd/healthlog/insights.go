package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:     "insights",
	Aliases: []string{"summary", "dashboard"},
	GroupID: "entries",
	Short:   "Show trends, streaks and today's entries",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		unit, _ := cmd.Flags().GetString("unit")
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(rt.insights.Summary(), time.Now(), rt.loc))
			if days <= 0 {
				return nil
			}
			if unit == "" {
				unit = rt.store.State().Settings.Units
			}
			points, err := rt.insights.Daily(days, unit)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderDaily(points))
			return nil
		})
	},
}

func init() {
	insightsCmd.Flags().Int("days", 0, "Also print a per-day table for this many days")
	insightsCmd.Flags().String("unit", "", "Weight unit for the per-day table (default: your display units)")
	rootCmd.AddCommand(insightsCmd)
}
