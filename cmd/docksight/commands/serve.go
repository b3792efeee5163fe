package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docksight/internal/api"
	"docksight/internal/config"
	"docksight/internal/logger"
	"docksight/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the window tracker and API server",
	Long: `Detect the compositor, start polling it for the open window set, and
serve the registry over the HTTP/WebSocket API for dock UIs.`,
	Example: `  # Run with defaults
  docksight serve

  # Custom port and verbose logging
  docksight serve --port 9090 --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
		configMgr.SetServerPort(viper.GetInt("server_port"))
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		configMgr.SetLogLevel(viper.GetString("log_level"))
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.PrettyLogs)
	log := logger.WithComponent("serve")
	log.Info().Str("config", configMgr.Path()).Msg("Configuration loaded")

	t := tracker.New(cfg.PollInterval, cfg.PollTimeout)
	t.Start()
	defer t.Stop()
	log.Info().Stringer("backend", t.Kind()).Msg("Window tracker started")

	server := api.NewServer(t, configMgr)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	return nil
}
