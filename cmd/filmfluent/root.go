package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "filmfluent",
		Short:         "Subtitle vocabulary analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newEnqueueCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// load reads the configuration and builds the logger every subcommand uses
func (o *rootOptions) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
