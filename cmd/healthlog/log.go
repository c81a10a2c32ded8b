package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"healthlog/internal/domain"
)

var logCmd = &cobra.Command{
	Use:     "log",
	GroupID: "entries",
	Short:   "Log a weight, mood or nutrition entry",
}

var logWeightCmd = &cobra.Command{
	Use:   "weight <value>",
	Short: "Log a weight measurement",
	Example: `  healthlog log weight 81.4
  healthlog log weight 179.5 --unit lb --at "yesterday 7am"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("weight must be a number: %w", err)
		}
		unit, _ := cmd.Flags().GetString("unit")
		note, _ := cmd.Flags().GetString("note")
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			if unit == "" {
				unit = rt.store.State().Settings.Units
			}
			e, err := rt.entries.RecordWeight(domain.WeightInput{Value: value, Unit: unit, Note: note, Timestamp: at})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %.1f %s (id %s)\n", domain.DisplayWeight(e.ValueKg, unit), unit, e.ID)
			return nil
		})
	},
}

var logMoodCmd = &cobra.Command{
	Use:   "mood <1-5>",
	Short: "Log a mood check-in",
	Example: `  healthlog log mood 4 --tag rested --tag calm
  healthlog log mood 2 --note "long day"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("mood must be a whole number from 1 to 5: %w", err)
		}
		tags, _ := cmd.Flags().GetStringSlice("tag")
		note, _ := cmd.Flags().GetString("note")
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			e, err := rt.entries.RecordMood(domain.MoodInput{MoodScore: score, Tags: tags, Note: note, Timestamp: at})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged mood %d (%s) (id %s)\n", e.MoodScore, domain.MoodLabels[e.MoodScore], e.ID)
			return nil
		})
	},
}

var logNutritionCmd = &cobra.Command{
	Use:     "nutrition <text>...",
	Aliases: []string{"meal", "food"},
	Short:   "Log a nutrition note",
	Example: `  healthlog log nutrition oatmeal with berries --meal breakfast`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meal, _ := cmd.Flags().GetString("meal")
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			n, err := rt.entries.RecordNutrition(domain.NutritionInput{Text: strings.Join(args, " "), MealType: meal, Timestamp: at})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged note (id %s)\n", n.ID)
			return nil
		})
	},
}

func atFlag(cmd *cobra.Command) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString("at")
	return parseAt(raw, time.Now())
}

func init() {
	for _, c := range []*cobra.Command{logWeightCmd, logMoodCmd, logNutritionCmd} {
		c.Flags().String("at", "", `When it happened: RFC 3339 or e.g. "yesterday 8pm" (default now)`)
	}
	logWeightCmd.Flags().String("unit", "", "kg or lb (default: your display units)")
	logWeightCmd.Flags().String("note", "", "Optional note")
	logMoodCmd.Flags().StringSlice("tag", nil, "Tag, repeatable")
	logMoodCmd.Flags().String("note", "", "Optional note")
	logNutritionCmd.Flags().String("meal", "", "breakfast, lunch, dinner or snack")

	logCmd.AddCommand(logWeightCmd, logMoodCmd, logNutritionCmd)
	rootCmd.AddCommand(logCmd)
}
