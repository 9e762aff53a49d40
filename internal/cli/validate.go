package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reedboard/internal/config"
)

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a config file",
		Long: `Validate a CUE (or JSON) config file against the built-in schema and print the
effective configuration with all defaults filled in.

Without an argument the --config file is validated; without either the defaults
are printed.

Exit codes:
  0 - Config is valid
  1 - Config is invalid`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.VerboseLog("validating %s", describePath(path))

	cfg, err := config.Load(path)
	if err != nil {
		var le *config.LoadError
		if !errors.As(err, &le) {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		var details map[string]any
		if le.Pos.IsValid() {
			details = map[string]any{
				"file":   le.Pos.Filename(),
				"line":   le.Pos.Line(),
				"column": le.Pos.Column(),
			}
		}
		if err := formatter.Error(le.Code, le.Error(), details); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Path: path, Config: cfg})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s is valid\n", describePath(path))
	printConfig(w, cfg)
	return nil
}

func describePath(path string) string {
	if path == "" {
		return "default config"
	}
	return path
}

func printConfig(w io.Writer, cfg *config.Config) {
	addrs := make([]string, len(cfg.Sensor.Addresses))
	for i, a := range cfg.Sensor.Addresses {
		addrs[i] = fmt.Sprintf("0x%02x", a)
	}

	trigger := fmt.Sprintf("poll every %s", cfg.Sensor.PollInterval())
	if cfg.Sensor.InterruptPin != "" {
		trigger = "interrupt on " + cfg.Sensor.InterruptPin
	}
	bus := cfg.Sensor.Bus
	if bus == "" {
		bus = "first available"
	}
	fmt.Fprintf(w, "  sensor:    bus %s, expanders %s, %s", bus, strings.Join(addrs, " "), trigger)
	if cfg.Sensor.ActiveLow {
		fmt.Fprint(w, ", active low")
	}
	fmt.Fprintln(w)

	if cfg.Indicator.Enabled() {
		fmt.Fprintf(w, "  indicator: red %s, yellow %s, green %s\n", cfg.Indicator.Red, cfg.Indicator.Yellow, cfg.Indicator.Green)
	} else {
		fmt.Fprintln(w, "  indicator: log only")
	}
	fmt.Fprintf(w, "  search:    %s\n", orDisabled(cfg.Search.Engine))
	fmt.Fprintf(w, "  api:       %s\n", orDisabled(cfg.API.Listen))
	fmt.Fprintf(w, "  journal:   %s\n", orDisabled(cfg.Journal.Path))
}

func orDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}
