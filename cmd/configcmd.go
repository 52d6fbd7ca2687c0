package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/stable/internal/config"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to --config (default ./stable.yaml)",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath
		}
		if err := writeDefaultConfig(path, configForce); err != nil {
			utils.Die("Failed to write config", err)
		}
		fmt.Fprintf(os.Stderr, "📝 Wrote default config to %s\n", path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file + environment)",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := renderConfig(Cfg)
		if err != nil {
			utils.Die("Failed to render config", err)
		}
		fmt.Print(string(data))
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return config.DefaultConfig().Save(path)
}

// renderConfig marshals cfg for display with the registry password masked.
// cfg itself is left untouched.
func renderConfig(cfg *config.Config) ([]byte, error) {
	shown := *cfg
	shown.Store.DSN = redactDSN(cfg.Store.DSN)
	return yaml.Marshal(&shown)
}
