package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "docksight",
		Short: "docksight - live window discovery for desktop docks",
		Long: `docksight watches the current compositor session and maintains a live
registry of which applications have windows open, and how many.

It speaks the native IPC protocol of whichever compositor is running:
  • KWin (D-Bus window query with a scripting-engine fallback)
  • GNOME Shell (introspection D-Bus interface)
  • Hyprland (JSON over the instance socket)
  • Sway (binary i3-ipc framing over $SWAYSOCK)

Dock UIs consume the registry through the HTTP/WebSocket API.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/docksight/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "API server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
