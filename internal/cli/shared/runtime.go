package shared

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariel-frischer/outcomegen/internal/config"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/logging"
	"github.com/ariel-frischer/outcomegen/internal/progress"
)

// Runtime bundles what a command needs after flag parsing.
type Runtime struct {
	Config *config.Configuration
	Logger *zap.Logger
}

// LoadRuntime loads configuration from the --config flag and applies the
// global flag overrides (--debug, --log-format, --output-dir, --no-progress).
func LoadRuntime(cmd *cobra.Command) (*Runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		cfg.ShowProgress = false
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, &apperrors.ConfigurationError{Key: "log_level", Message: err.Error()}
	}
	return &Runtime{Config: cfg, Logger: logger}, nil
}

// Display returns a progress display on stderr, or nil when progress is off.
func (r *Runtime) Display() *progress.Display {
	if !r.Config.ShowProgress {
		return nil
	}
	return progress.NewDisplay(progress.DetectTerminalCapabilities())
}

// Close flushes the logger.
func (r *Runtime) Close() {
	_ = r.Logger.Sync()
}

// Report prints err to the command's error stream with remediation hints and
// returns an exit error carrying its code. A nil err returns nil.
func Report(cmd *cobra.Command, err error) error {
	if err == nil || IsReported(err) {
		return err
	}
	cmd.SilenceUsage = true
	apperrors.FprintError(cmd.ErrOrStderr(), apperrors.ToCLIError(err))
	return NewExitError(ExitCode(err))
}
