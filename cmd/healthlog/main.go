// Command healthlog tracks weight, mood and nutrition locally and mirrors
// them to a hosted PostgreSQL database when one is configured.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "healthlog",
	Short: "Personal health tracker",
	Long: `healthlog records weight, mood and nutrition entries in a local database.

With HEALTHLOG_DATABASE_URL set, every change is also written to the hosted
database in the background and 'healthlog pull' replaces local data with the
signed-in user's remote data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("env-file", ".env", "Load environment variables from this file if it exists")
	pf.String("state-path", "", "SQLite file holding local state (\":memory:\" for none)")
	pf.String("database-url", "", "PostgreSQL URL of the hosted database")
	pf.String("user", "", "Email of the account CLI commands sync as")
	pf.String("timezone", "", "IANA timezone for calendar days (default: local)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "entries", Title: "Entries:"},
		&cobra.Group{ID: "data", Title: "Data:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
