package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"docksight/internal/tracker"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Print the compositor backend detected for this session",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(tracker.DetectBackend())
	},
}

func init() {
	rootCmd.AddCommand(backendCmd)
}
