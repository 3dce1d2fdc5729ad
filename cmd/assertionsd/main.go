package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notewire/assertions/internal/config"
	"github.com/notewire/assertions/internal/logging"
)

var (
	// Version information (set by build flags).
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "assertionsd",
	Short: "assertionsd - the social assertion platform's publish, feed, and notification daemon",
	Long: `assertionsd serves the HTTP and WebSocket surface for publishing
assertions, reading feeds and threads, reacting, and receiving
notifications, backed by Neo4j and Postgres.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		if err := logging.Initialize(logging.DefaultConfig(verbose)); err != nil {
			logger.WithError(err).Warn("failed to initialize rotating logger, falling back to stdout JSON")
			slogLevel := slog.LevelInfo
			if verbose {
				slogLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})))
		} else {
			slog.SetDefault(logging.Default().Slog())
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("failed to load config, using defaults")
			cfg = config.Default()
		}

		result := cfg.Validate()
		for _, warning := range result.Warnings {
			logger.Warn(warning)
		}
		if result.HasErrors() {
			logger.WithError(fmt.Errorf("%s", result.Error())).Fatal("invalid configuration")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`assertionsd {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
