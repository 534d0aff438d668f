package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dmxctl/internal/adapter/secondary/repository"
	"dmxctl/internal/adapter/secondary/restapi"
	"dmxctl/internal/config"
	"dmxctl/internal/core"
	"dmxctl/internal/protocol"
	"dmxctl/internal/usecase"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Run, stop and edit shows",
	}
	cmd.AddCommand(
		newShowRunCmd(),
		newShowStopCmd(),
		newShowToggleCmd(),
		newShowListCmd(),
		newShowPlanCmd(),
		newShowCompileCmd(),
	)
	return cmd
}

func newShowRunCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run <show-id>",
		Short: "Start a show (looping unless --once)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			id := args[0]
			var started protocol.ShowStarted
			_, err = l.confirm(cmd.Context(), func() error { return l.console.RunShow(id, !once) },
				func(ev protocol.Event, _ core.State) bool {
					e, ok := ev.(protocol.ShowStarted)
					if ok && e.ShowID == id {
						started = e
						return true
					}
					return false
				})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "show %s started (%d steps, loop=%t)\n", id, started.Steps, started.Loop)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "play through once instead of looping")
	return cmd
}

func newShowStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running show",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			_, err = l.confirm(cmd.Context(), l.console.StopShow, func(ev protocol.Event, _ core.State) bool {
				_, ok := ev.(protocol.ShowStopped)
				return ok
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "show stopped")
			return nil
		},
	}
}

func newShowToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <show-id>",
		Short: "Stop the show if it is running, else start it looping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			id := args[0]
			var started bool
			issue := func() error {
				var err error
				started, err = l.console.ToggleShow(id)
				return err
			}
			_, err = l.confirm(cmd.Context(), issue, func(ev protocol.Event, _ core.State) bool {
				switch e := ev.(type) {
				case protocol.ShowStarted:
					return started && e.ShowID == id
				case protocol.ShowStopped:
					return !started
				}
				return false
			})
			if err != nil {
				return err
			}
			if started {
				fmt.Fprintf(cmd.OutOrStdout(), "show %s started\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "show %s stopped\n", id)
			}
			return nil
		},
	}
}

func newShowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shows stored on the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := newEditor()
			if err != nil {
				return err
			}
			shows, err := editor.ListShows(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range shows {
				var total int
				for _, st := range s.Steps {
					total += st.DelayMs
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s %3d steps  %s\n",
					s.ID, s.Name, len(s.Steps), time.Duration(total)*time.Millisecond)
			}
			return nil
		},
	}
}

func newShowPlanCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "plan <show-id>",
		Short: "Print a stored show as a beat plan (YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := newEditor()
			if err != nil {
				return err
			}
			if out != "" {
				plan, err := editor.Export(cmd.Context(), args[0], out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d steps, %d ms per beat)\n", out, len(plan.Steps), plan.BeatDurationMs)
				return nil
			}
			plan, err := editor.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return repository.EncodePlan(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the plan to a file instead of stdout")
	return cmd
}

func newShowCompileCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "compile <plan.yaml>",
		Short: "Compile a beat plan into the controller's show JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := newEditor()
			if err != nil {
				return err
			}
			show, err := editor.Compile(args[0])
			if err != nil {
				return err
			}
			if id != "" {
				show.ID = id
			}
			return printJSON(cmd.OutOrStdout(), show)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "show id to stamp on the output")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the serial interfaces the controller can drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := newEditor()
			if err != nil {
				return err
			}
			ports, err := editor.ListInterfaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

// newEditor reads shows over REST. In the shell the live catalog is
// consulted first.
func newEditor() (usecase.ShowEditorUseCase, error) {
	var cfg config.Config
	if shared != nil {
		cfg = shared.cfg
	} else {
		var err error
		if cfg, err = loadConfig(); err != nil {
			return nil, err
		}
	}
	source := restapi.New(cfg.ControllerURL, cfg.CommandTimeout)
	plans := repository.NewFilePlanRepository(cfg.DefaultBeatMs)
	if shared != nil {
		return usecase.NewShowEditorUseCase(source, plans, shared.session), nil
	}
	return usecase.NewShowEditorUseCase(source, plans, nil), nil
}
