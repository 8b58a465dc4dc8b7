package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Quarlos/integrationMTS/internal/config"
	"github.com/Quarlos/integrationMTS/internal/store"
)

// RootOptions holds global flags and shared state for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Viper resolves settings from flags, environment, config file and
	// defaults. Created by NewRootCommand.
	Viper *viper.Viper

	// Logger is configured in PersistentPreRunE from --verbose/log_level.
	Logger *slog.Logger

	// IDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs store.IDGenerator

	// Now overrides the wall clock used for recorded runs (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the integrate CLI.
//
// The root command itself runs an integration session: it reads the left
// limit, right limit and tolerance from stdin and prints the midpoint,
// trapezoidal and Simpson estimates.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Viper == nil {
		opts.Viper = config.NewViper()
	}
	intOpts := &IntegrateOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Numerical integration by midpoint, trapezoidal and Simpson's rule",
		Long: `Integrate a compiled-in function over [a, b] to a prescribed tolerance.

Each rule starts from 4 subintervals and doubles until two consecutive
estimates differ by no more than the tolerance. The limits and tolerance
are read from standard input.

Example:
  integrate
  printf '0 1 1e-6' | integrate --integrand square
  integrate --rules simpson --max-doublings 10 --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRoot(opts, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegrate(intOpts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file path (YAML)")

	addIntegrateFlags(cmd, intOpts)

	// Add subcommands
	cmd.AddCommand(NewIntegrandsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupRoot loads configuration, resolves the output format and installs
// the logger. Runs before every command.
func setupRoot(opts *RootOptions, cmd *cobra.Command) error {
	if err := config.Merge(opts.Viper, opts.ConfigFile); err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	opts.Format = flagOrViperString(cmd, "format", opts.Viper, config.KeyFormat)
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}

	logger, err := newLogger(cmd.ErrOrStderr(), opts.Verbose, opts.Viper.GetString(config.KeyLogLevel))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	opts.Logger = logger
	slog.SetDefault(logger)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
