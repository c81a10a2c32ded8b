package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

var listCmd = &cobra.Command{
	Use:       "list <weight|mood|nutrition>",
	GroupID:   "entries",
	Short:     "List entries, most recent first",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.KindWeight), string(domain.KindMood), string(domain.KindNutrition)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		search, _ := cmd.Flags().GetString("search")
		meal, _ := cmd.Flags().GetString("meal")
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			st := rt.store.State()
			var items any
			if kind == domain.KindNutrition && (search != "" || meal != "") {
				items = rt.entries.SearchNutrition(search, meal)
			} else if items, err = rt.entries.List(kind, limit); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEntries(items, st.Settings.Units, rt.loc))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <weight|mood|nutrition> <id>",
	GroupID: "entries",
	Short:   "Delete an entry",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			if !rt.entries.Delete(kind, args[1]) {
				return fmt.Errorf("no %s entry with id %s", kind, args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, args[1])
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Write all local data to a JSON file",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("output")
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			if out == "-" {
				return rt.store.Export(cmd.OutOrStdout())
			}
			if out == "" {
				out = app.ExportFileName(time.Now())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := rt.store.Export(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	GroupID: "data",
	Short:   "Delete all local data",
	Long: `Delete all local entries and reset settings. Data already written to the
hosted database is not touched; 'healthlog pull' brings it back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			confirm := func() bool { return yes || confirmClear(cmd.ErrOrStderr()) }
			if !rt.store.ClearAllData(confirm) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing cleared.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All local data cleared.")
			return nil
		})
	},
}

func confirmClear(out io.Writer) bool {
	var ok bool
	err := huh.NewConfirm().
		Title("Clear all local data?").
		Description("Entries, settings and the health connection are reset. This cannot be undone.").
		Affirmative("Clear").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		fmt.Fprintf(out, "confirmation aborted: %v\n", err)
		return false
	}
	return ok
}

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "data",
	Short:   "Show or change settings",
	Example: `  healthlog settings --units lb --name "Ada"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var patch domain.SettingsPatch
		if cmd.Flags().Changed("units") {
			v, _ := cmd.Flags().GetString("units")
			patch.Units = &v
		}
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			patch.Name = &v
		}
		if err := domain.Validate(patch); err != nil {
			return err
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			s := rt.store.State().Settings
			if patch.Units != nil || patch.Name != nil {
				s = rt.store.UpdateSettings(patch)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Name:  %s\nUnits: %s\n", s.Name, s.Units)
			return nil
		})
	},
}

var connectionCmd = &cobra.Command{
	Use:     "connection",
	GroupID: "data",
	Short:   "Show the health data connection",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderConnection(rt.store.State().HealthConnection, time.Now()))
			return nil
		})
	},
}

var connectionToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Connect or disconnect the health data source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			c := rt.store.ToggleHealthConnection()
			fmt.Fprintln(cmd.OutOrStdout(), renderConnection(c, time.Now()))
			return nil
		})
	},
}

var connectionPermitCmd = &cobra.Command{
	Use:     "permit <permission> <on|off>",
	Short:   "Enable or disable one data permission",
	Example: `  healthlog connection permit Steps off`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch strings.ToLower(args[1]) {
		case "on", "true", "yes":
			enabled = true
		case "off", "false", "no":
		default:
			return fmt.Errorf("expected on or off, got %q", args[1])
		}
		return withRuntime(cmd, func(_ context.Context, rt *runtime) error {
			perms, err := setPermission(rt.store.State().HealthConnection.Permissions, args[0], enabled)
			if err != nil {
				return err
			}
			c := rt.store.UpdateHealthPermissions(perms)
			fmt.Fprintln(cmd.OutOrStdout(), renderConnection(c, time.Now()))
			return nil
		})
	},
}

// setPermission returns a copy of perms with the named permission set.
func setPermission(perms []domain.Permission, name string, enabled bool) ([]domain.Permission, error) {
	out := make([]domain.Permission, len(perms))
	copy(out, perms)
	for i := range out {
		if strings.EqualFold(out[i].Name, name) {
			out[i].Enabled = enabled
			return out, nil
		}
	}
	return nil, fmt.Errorf("unknown permission %q", name)
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "data",
	Short:   "Replace local data with your data from the hosted database",
	Long: `Fetch settings, entries and the health connection of --user from the hosted
database. Remote data wins, except for local entries that never made it to the
server; those are kept and sent again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			if !rt.sync.Enabled() {
				return app.ErrRemoteDisabled
			}
			if _, ok := rt.identity.CurrentUserID(ctx); !ok {
				return fmt.Errorf("%w: pass --user or set HEALTHLOG_USER", app.ErrNotSignedIn)
			}
			if !rt.store.LoadFromRemote(ctx) {
				return fmt.Errorf("pull failed, local data unchanged")
			}
			st := rt.store.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %d weight, %d mood and %d nutrition entries\n",
				len(st.WeightEntries), len(st.MoodEntries), len(st.NutritionEntries))
			return nil
		})
	},
}

func init() {
	listCmd.Flags().Int("limit", 20, "Maximum entries to show (0 for all)")
	listCmd.Flags().String("search", "", "Nutrition only: text to search for")
	listCmd.Flags().String("meal", "", "Nutrition only: meal type to filter on")
	exportCmd.Flags().StringP("output", "o", "", `Output file, "-" for stdout (default health-tracker-export-<date>.json)`)
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	settingsCmd.Flags().String("units", "", "Display units: kg or lb")
	settingsCmd.Flags().String("name", "", "Display name")

	connectionCmd.AddCommand(connectionToggleCmd, connectionPermitCmd)
	rootCmd.AddCommand(listCmd, deleteCmd, exportCmd, clearCmd, settingsCmd, connectionCmd, pullCmd)
}
