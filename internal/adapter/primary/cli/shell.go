package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dmxctl/internal/core"
	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
)

func newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive console sharing one live session across commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveShell(cmd.Context(), prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "dmx> ", "prompt string")
	return cmd
}

func runInteractiveShell(ctx context.Context, prompt string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	historyFile := filepath.Join(os.TempDir(), "dmxctl-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	logging.SetOutput(rl.Stderr())
	defer logging.SetOutput(os.Stderr)

	l, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	shared = l
	defer func() {
		shared = nil
		l.Close()
	}()

	changes, unsubscribe := l.session.Subscribe()
	defer unsubscribe()
	done := make(chan struct{})
	defer close(done)
	go notify(rl.Stderr(), changes, done)

	sessionVerbosity := verbosity
	fmt.Printf("Connecting to %s. Type 'help' for commands, 'exit' to leave.\n", cfg.ControllerURL)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		case "help":
			printShellHelp()
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Printf("Parse error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "log" {
			if err := handleShellLog(tokens[1:], &sessionVerbosity); err != nil {
				fmt.Printf("log: %v\n", err)
			}
			continue
		}
		if tokens[0] == "shell" {
			fmt.Println("Already in the shell. Enter a command or 'exit'.")
			continue
		}

		verbosity = sessionVerbosity
		if err := executeArgs(ctx, tokens); err != nil {
			fmt.Printf("command error: %v\n", err)
		}
		sessionVerbosity = verbosity
	}
}

// notify prints connection changes and controller errors as they happen.
func notify(w io.Writer, changes <-chan core.Change, done <-chan struct{}) {
	last := core.StatusIdle
	for {
		var ch core.Change
		select {
		case <-done:
			return
		case ch = <-changes:
		}
		if ch.State.Status != last {
			last = ch.State.Status
			if ch.State.LinkError != "" && last != core.StatusConnected {
				fmt.Fprintf(w, "[%s] %s\n", last, ch.State.LinkError)
			} else {
				fmt.Fprintf(w, "[%s]\n", last)
			}
		}
		if e, ok := ch.Event.(protocol.ControllerError); ok {
			fmt.Fprintf(w, "[controller error] %s\n", e)
		}
	}
}

func executeArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	savedCfg, savedURL, savedVerbosity := cfgPath, urlFlag, verbosity
	root := NewRootCmd()
	// Defining the flags resets them to their defaults.
	cfgPath, urlFlag, verbosity = savedCfg, savedURL, savedVerbosity
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func handleShellLog(args []string, sessionVerbosity *int) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "set level (error|warn|info|debug|trace)")
	fs.BoolVarP(&show, "show", "s", false, "print the current level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case show && vcount == 0 && level == "":
		fmt.Printf("log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	case level != "":
		_, count, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		*sessionVerbosity = count
	case vcount > 0:
		*sessionVerbosity = vcount
	default:
		fmt.Printf("log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	verbosity = *sessionVerbosity
	logging.SetVerbosity(*sessionVerbosity)
	fmt.Printf("log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp() {
	fmt.Println(`Examples:
  status                      # session summary + controller status
  preset list                 # presets, * marks the active one
  preset apply warm           # apply and wait for confirmation
  show run intro --once       # start a show without looping
  show toggle intro           # start or stop, like the show grid
  show stop
  show plan intro -o intro.yaml
  show compile intro.yaml
  channel set 12 255
  blackout
  monitor start | monitor stop
  watch                       # follow pushes until Ctrl-C
  serve --addr 0.0.0.0:8090   # HTTP API on this session
  log -vv                     # more logging
  log --show                  # current log level
  exit / quit`)
}
