package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docksight/internal/logger"
	"docksight/internal/tracker"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Poll the compositor once and print the open windows",
	Long: `Run a single poll against the detected compositor backend and print the
resulting window list and per-app counts. Useful for debugging a session
without starting the server.`,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	level := "warn"
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		level = viper.GetString("log_level")
	}
	logger.Init(level, true)

	t := tracker.New(0, 0)
	if t.Kind() == tracker.BackendUnknown {
		return fmt.Errorf("no supported compositor detected in this session")
	}

	records, err := t.PollNow(context.Background())
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tTITLE\tID\tFOCUSED")
	for _, rec := range records {
		focused := ""
		if rec.Focused {
			focused = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.AppID, rec.Title, rec.ID, focused)
	}
	w.Flush()

	counts := make(map[string]int)
	for _, rec := range records {
		if rec.AppID != "" {
			counts[strings.ToLower(rec.AppID)]++
		}
	}
	apps := make([]string, 0, len(counts))
	for app := range counts {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	fmt.Printf("\n%d windows across %d apps (backend: %s)\n", len(records), len(apps), t.Kind())
	for _, app := range apps {
		fmt.Printf("  %s: %d\n", app, counts[app])
	}
	return nil
}
