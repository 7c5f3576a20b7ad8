package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/shadow-session/config"
	"github.com/pilab-dev/shadow-session/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const appName = "sessiond"

var (
	cfgFile   string
	cfg       *config.Config
	appLogger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "sessiond logs out sessions that have gone quiet",
	Long: `sessiond hosts authenticated sessions, receives their activity signals over HTTP
and logs each one out after the configured period without activity.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		appLogger = log.NewZerologAdapter(level, cfg.LogPretty)
		if err != nil {
			appLogger.Warn(cmd.Context(), "Invalid log_level configured, defaulting to 'info'", log.Fields{
				"configured_log_level": cfg.LogLevel,
			})
		}

		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if appLogger != nil {
			appLogger.Error(context.Background(), "sessiond failed", err)
		} else {
			fmt.Fprintln(os.Stderr, "sessiond failed:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is ./%s.yaml, /etc/%s/ or $HOME/.%s/)", appName, appName, appName))
}
