package cli

import (
	"github.com/Ayash-Bera/ticketconsole/internal/backend"
	"github.com/Ayash-Bera/ticketconsole/internal/config"
	"github.com/Ayash-Bera/ticketconsole/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ticketconsole",
	Short: "Support ticket console",
	Long: `Operator console for the support ticket backend.
Serves the console API, or runs one-off suggestion, analytics and
evaluation queries against the backend.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return cfg, utils.InitLogger(level), nil
}

func newBackend(cfg *config.Config, logger *logrus.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)
}
