// Package cli defines the command-line interface for comgr.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrijr/comgr/internal/config"
	"github.com/petrijr/comgr/internal/logging"
)

const defaultEnvFile = ".env"

// Options stores global CLI options shared between commands.
type Options struct {
	EnvFile      string
	ToolchainDir string
	LogLevel     logging.Level

	// Config is resolved before any subcommand runs.
	Config config.Config
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootCmd := newRootCommand(&Options{EnvFile: defaultEnvFile, LogLevel: logging.LevelInfo}, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "comgr",
		Short:         "comgr manages AMD GPU code objects",
		Long:          "comgr compiles, links, disassembles and inspects AMD GPU code objects through the LLVM toolchain.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.FromOS(), opts.EnvFile)
			if err != nil {
				return err
			}
			if opts.ToolchainDir != "" {
				cfg.ToolchainDir = opts.ToolchainDir
			}
			opts.Config = cfg

			levelName := cfg.LogLevel
			if f := cmd.Flag("log-level"); f != nil && f.Changed {
				levelName = f.Value.String()
			}
			opts.LogLevel = logging.ParseLevel(levelName)
			logger = logging.NewLogger(cmd.ErrOrStderr(), opts.LogLevel)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", opts.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "Path to a .env file with COMGR_* variables")
	cmd.PersistentFlags().StringVar(&opts.ToolchainDir, "toolchain-dir", "", "Directory holding the LLVM tools (overrides COMGR_TOOLCHAIN_DIR)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newVersionCommand(),
		newISACommand(opts),
		newActionCommand(opts),
		newSymbolsCommand(opts),
		newMetadataCommand(opts),
		newJournalCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}

// openStack opens a manager for the resolved configuration.
func openStack(cmd *cobra.Command, opts *Options) (*config.Stack, error) {
	return config.Open(cmd.Context(), opts.Config, LoggerFromContext(cmd.Context()))
}
