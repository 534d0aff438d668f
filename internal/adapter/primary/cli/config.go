package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dmxctl/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change stored settings",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	var effective bool
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if effective {
				var err error
				if cfg, err = loadConfig(); err != nil {
					return err
				}
			} else {
				store, err := config.NewFileStore(cfgPath)
				if err != nil {
					return err
				}
				if cfg, err = store.Load(); err != nil {
					return err
				}
			}

			keys := config.Keys
			if len(args) == 1 {
				keys = args
			}
			for _, k := range keys {
				v, err := cfg.Get(k)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					fmt.Fprintln(cmd.OutOrStdout(), v)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", k, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, "include environment and --url overrides")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.NewFileStore(cfgPath)
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if cfg, err = config.Normalize(cfg); err != nil {
				return err
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s = %s\n", args[0], v)
			return nil
		},
	}
}
