package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // configuration file; DefaultPath is tried when empty

	settings *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the traitsmith CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "traitsmith",
		Short: "traitsmith - value traits from declared shapes",
		Long: `Compile CUE shape declarations into value traits, then encode,
decode and hash YAML values of those shapes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			_, err := opts.Settings()
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "configuration file (default ./"+config.DefaultPath+" when present)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Settings returns the configuration, loading it on first use.
func (o *RootOptions) Settings() (config.Config, error) {
	if o.settings != nil {
		return *o.settings, nil
	}
	var (
		cfg config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.Load(o.Config)
	} else {
		cfg, err = config.LoadDefault(".")
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	o.settings = &cfg
	return cfg, nil
}

// Logger returns the logger handed to stores. Verbose mode logs at debug
// level; otherwise only warnings are shown.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
