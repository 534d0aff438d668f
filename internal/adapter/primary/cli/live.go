package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dmxctl/internal/adapter/primary/surface"
	"dmxctl/internal/adapter/primary/web"
	"dmxctl/internal/core"
	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
)

func newWatchCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow controller pushes and connection changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			l, release, err := attach(ctx)
			if err != nil {
				return err
			}
			defer release()

			changes, unsubscribe := l.session.Subscribe()
			defer unsubscribe()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-l.session.Done():
					return l.session.Err()
				case ch := <-changes:
					if err := printChange(out, ch, asJSON); err != nil {
						return err
					}
					if e, ok := ch.Event.(protocol.LinkGaveUp); ok {
						return fmt.Errorf("gave up after %d attempts: %s", e.Attempts, ch.State.LinkError)
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session summary after each change as JSON lines")
	return cmd
}

func printChange(w io.Writer, ch core.Change, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(struct {
			Event   string       `json:"event"`
			Session core.Summary `json:"session"`
		}{ch.Event.String(), ch.State.Summarize()})
	}
	_, err := fmt.Fprintf(w, "%s  %-12s %s\n", time.Now().Format("15:04:05.000"), ch.State.Status, ch.Event)
	return err
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session summary and the controller status report",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			st, err := l.confirm(cmd.Context(), l.console.RequestStatus, func(ev protocol.Event, _ core.State) bool {
				_, ok := ev.(protocol.StatusReport)
				return ok
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st.Summarize())
		},
	}
}

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "List or apply presets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List presets from the controller catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				l, release, err := acquire(cmd.Context())
				if err != nil {
					return err
				}
				defer release()

				presets, err := l.console.Presets()
				if err != nil {
					return err
				}
				active := l.console.Snapshot().ActivePresetID()
				for _, p := range presets {
					mark := " "
					if p.ID == active {
						mark = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %-24s %d channels\n", mark, p.ID, p.Name, len(p.Channels))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "apply <preset-id>",
			Short: "Apply a preset and wait for the controller to confirm",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, release, err := acquire(cmd.Context())
				if err != nil {
					return err
				}
				defer release()

				id := args[0]
				var applied protocol.PresetApplied
				_, err = l.confirm(cmd.Context(), func() error { return l.console.ApplyPreset(id) },
					func(ev protocol.Event, _ core.State) bool {
						e, ok := ev.(protocol.PresetApplied)
						if ok && e.PresetID == id {
							applied = e
							return true
						}
						return false
					})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preset %s applied (%d channels)\n", id, len(applied.Channels))
				return nil
			},
		},
	)
	return cmd
}

func newChannelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Set individual DMX channels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <address> <value>",
		Short: "Set one channel (address 1-512, value 0-255)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}

			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			st, err := l.confirm(cmd.Context(), func() error { return l.console.SetChannel(addr, value) },
				func(ev protocol.Event, st core.State) bool {
					switch e := ev.(type) {
					case protocol.ChannelUpdate:
						return e.Address == addr
					case protocol.DMXState, protocol.DMXUpdate:
						_, pending := st.Overlay[addr]
						return !pending
					}
					return false
				})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "channel %d = %d\n", addr, st.ChannelValue(addr))
			return nil
		},
	})
	return cmd
}

func newBlackoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blackout",
		Short: "Set every channel to zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, release, err := acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			_, err = l.confirm(cmd.Context(), l.console.Blackout, func(ev protocol.Event, _ core.State) bool {
				_, ok := ev.(protocol.BlackoutApplied)
				return ok
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "blackout")
			return nil
		},
	}
}

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Toggle controller-side DMX monitoring",
	}
	toggle := func(on bool) *cobra.Command {
		use, short := "stop", "Stop monitoring"
		if on {
			use, short = "start", "Start monitoring"
		}
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				l, release, err := acquire(cmd.Context())
				if err != nil {
					return err
				}
				defer release()

				_, err = l.confirm(cmd.Context(), func() error { return l.console.SetMonitoring(on) },
					func(ev protocol.Event, _ core.State) bool {
						switch ev.(type) {
						case protocol.MonitoringStarted:
							return on
						case protocol.MonitoringStopped:
							return !on
						}
						return false
					})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "monitoring %s\n", map[bool]string{true: "on", false: "off"}[on])
				return nil
			},
		}
	}
	cmd.AddCommand(toggle(true), toggle(false))
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP control API over a live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			l, release, err := attach(ctx)
			if err != nil {
				return err
			}
			defer release()

			if addr == "" {
				addr = l.cfg.WebAddr
			}
			srv := web.NewServer(l.console, addr)
			fmt.Fprintf(cmd.OutOrStdout(), "dmxctl API running at http://%s\n", addr)
			logging.Infof("HTTP API: http://%s", addr)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newSurfaceCmd() *cobra.Command {
	var (
		port string
		list bool
	)
	cmd := &cobra.Command{
		Use:   "surface",
		Short: "Bridge a MIDI control surface to the console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range surface.InPorts() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			l, release, err := attach(ctx)
			if err != nil {
				return err
			}
			defer release()

			if port == "" {
				port = l.cfg.MIDIPort
			}
			if port == "" {
				return errors.New("no MIDI port: pass --port or set midi_port")
			}
			bridge := surface.NewBridge(l.console, l.cfg.FaderBase)
			return bridge.Listen(ctx, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "MIDI input port name (substring match)")
	cmd.Flags().BoolVar(&list, "list", false, "list MIDI input ports and exit")
	return cmd
}

// attach is acquire for long-running commands: it does not wait for the
// controller, since the session keeps reconnecting on its own.
func attach(ctx context.Context) (*liveSession, func(), error) {
	if shared != nil {
		return shared, func() {}, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	l, err := openSession(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Close, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
