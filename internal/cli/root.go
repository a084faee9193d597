package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fincast/internal/config"
	"fincast/internal/files"
	"fincast/internal/infrastructure"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configFile string
	baseDir    string
	dataFile   string
	verbose    bool
}

// NewRootCommand builds the fincast command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "fincast - financial inclusion forecasting",
		Long: `fincast projects account ownership and mobile-money usage rates from
a unified observation table and an event impact matrix.

Forecasts combine a least-squares trend over the historical series with
scenario-weighted event shocks, for Base, Optimistic and Pessimistic
scenarios.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: config.yaml or configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.baseDir, "base-dir", "", "base directory for relative data paths")
	root.PersistentFlags().StringVar(&opts.dataFile, "data", "", "observation table (.xlsx or .csv)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newMatrixCommand(opts),
		newForecastCommand(opts),
		newLagCommand(),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig applies the config file, env and flag overrides, in that order
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.baseDir != "" {
		cfg.Paths.BaseDir = o.baseDir
	}
	if o.dataFile != "" {
		cfg.Paths.DataFile = o.dataFile
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// logger writes JSON logs to the command's stderr for console output and
// falls back to the global file logger otherwise
func (o *globalOptions) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	if cfg.Logging.Output == "console" {
		return infrastructure.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level), nil
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// setup loads config, builds the logger and resolves paths
func (o *globalOptions) setup(cmd *cobra.Command) (*config.Config, *config.Paths, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := o.logger(cmd, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	paths, err := cfg.ResolvedPaths()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, nil, nil, err
	}
	if o.dataFile == "" {
		files.ResolveDataFile(paths, logger)
	}
	logger = infrastructure.WithComponent(logger, cmd.Name())
	paths.LogPathResolution(logger)
	return cfg, paths, logger, nil
}
