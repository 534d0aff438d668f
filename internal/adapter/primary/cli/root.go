package cli

import (
	"github.com/spf13/cobra"

	"dmxctl/internal/config"
	"dmxctl/internal/logging"
)

var (
	cfgPath   string
	urlFlag   string
	verbosity int
)

// NewRootCmd creates the root CLI command.
// This is the primary adapter that translates CLI inputs to use case calls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dmxctl",
		Short:         "Operator console for a DMX lighting controller",
		Long:          "Live control (presets, shows, channels, blackout), show beat plans, a local HTTP API and a MIDI surface bridge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	cmd.PersistentFlags().StringVar(&urlFlag, "url", "", "controller base URL (overrides config and DMXCTL_URL)")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "more logging (-v, -vv, ... up to 4)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetVerbosity(verbosity)
	}

	cmd.AddCommand(
		newWatchCmd(),
		newStatusCmd(),
		newPresetCmd(),
		newShowCmd(),
		newChannelCmd(),
		newBlackoutCmd(),
		newMonitorCmd(),
		newPortsCmd(),
		newServeCmd(),
		newSurfaceCmd(),
		newConfigCmd(),
		newShellCmd(),
	)

	return cmd
}

// loadConfig layers file, environment and the --url flag.
func loadConfig() (config.Config, error) {
	store, err := config.NewFileStore(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := store.Load()
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.ApplyEnv(cfg)
	if urlFlag != "" {
		cfg.ControllerURL = urlFlag
	}
	return config.Normalize(cfg)
}
