package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkpoint/internal/config"
	"checkpoint/internal/observability"
)

// Version is stamped at build time.
var Version = "dev"

const defaultConfigFile = "config.yaml"

// app carries what every subcommand needs after the root pre-run.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "checkpoint",
		Short:         "Checkbox human verification service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.InitializeLogger(cfg.Logger)
			a.logger.Debug("configuration loaded", zap.String("file", a.cfgFile))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./"+defaultConfigFile+" when present)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newInspectCmd(a))
	return root
}

// loadConfig reads path, or the default file when path is empty. A
// missing default file means built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	return nil, fmt.Errorf("loading configuration: %w", err)
}
