package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timzifer/dashwidget/config"
	"github.com/timzifer/dashwidget/registry"
)

type rootOptions struct {
	configPath    string
	registryPaths []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dashwidget",
		Short:         "Widget config registry and dashboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.registryPaths, "registry", nil, "Additional registry files or directories")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file. A missing default config file
// yields an empty configuration; a missing explicit one is an error.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(o.configPath); err != nil && errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = &config.Config{}
	} else {
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
	}
	cfg.Registry.Paths = append(cfg.Registry.Paths, o.registryPaths...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// buildRegistry layers the registry files configured in cfg over the
// builtin configs.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	var layers []*registry.Registry
	if cfg.UseBuiltinRegistry() {
		layers = append(layers, registry.Builtin())
	}
	if len(cfg.Registry.Paths) > 0 {
		loaded, err := registry.Load(cfg.Registry.Paths...)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("configs", loaded.Len()).Strs("paths", cfg.Registry.Paths).Msg("registry files loaded")
		layers = append(layers, loaded)
	}
	return registry.Layer(layers...), nil
}
