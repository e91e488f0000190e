package config

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/outcomegen/internal/cli/shared"
	appconfig "github.com/ariel-frischer/outcomegen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect outcomegen configuration",
	Long: `Inspect outcomegen configuration.

Values are layered: defaults < ~/.outcomegen/config.json < .outcomegen/config.json
(or --config) < OUTCOMEGEN_* environment variables.`,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with credentials redacted",
	Example: `  outcomegen config show
  OUTCOMEGEN_BACKEND=command outcomegen config show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := appconfig.Load(configPath)
		if err != nil {
			return shared.Report(cmd, err)
		}
		data, err := marshalConfig(cfg.Redacted())
		if err != nil {
			return shared.Report(cmd, err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return shared.Report(cmd, err)
	},
}

// marshalConfig renders the configuration as YAML keyed by config key names.
func marshalConfig(cfg appconfig.Configuration) ([]byte, error) {
	return yaml.Marshal(appconfig.ToMap(cfg))
}

func init() {
	configCmd.GroupID = shared.GroupConfiguration
}
