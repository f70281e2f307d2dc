package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ayusman/candybooth/internal/config"
	"github.com/ayusman/candybooth/internal/logging"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "candybooth",
	Short: "Apple candy survey and photo booth",
	Long: `Candybooth runs the survey API that turns answers into an apple candy
image, and the kiosk booth that takes a framed photo of the visitor.

Examples:
  candybooth seed
  candybooth serve --addr :8080
  candybooth booth --result-id 12 --tray`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, boothCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the configuration with command-line flags taking
// precedence over the environment and the config file. bindings maps a
// config key to a flag of cmd.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	v := config.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	bindings["log.level"] = "log-level"
	if err := bindFlags(v, cmd, bindings); err != nil {
		return nil, err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	logging.Init(cfg.Log.Level)
	if configFile != "" {
		log.Debug().Str("path", configFile).Msg("Config file loaded")
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		flag := lookupFlag(cmd, name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}
