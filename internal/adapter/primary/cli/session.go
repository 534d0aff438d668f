package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dmxctl/internal/adapter/secondary/transport"
	"dmxctl/internal/config"
	"dmxctl/internal/core"
	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
	"dmxctl/internal/usecase"
)

var errNoConfirmation = errors.New("no confirmation from controller")

// liveSession is one connection to the controller with the console on top.
type liveSession struct {
	cfg     config.Config
	session *core.Session
	console usecase.ConsoleUseCase
	cancel  context.CancelFunc
}

// shared is set while the interactive shell runs so every typed command
// reuses its connection.
var shared *liveSession

func openSession(ctx context.Context, cfg config.Config) (*liveSession, error) {
	wsURL, err := transport.EndpointURL(cfg.ControllerURL, cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	opts := transport.DefaultOptions()
	opts.MaxAttempts = cfg.MaxReconnectAttempts
	opts.ReconnectInterval = cfg.ReconnectInterval
	opts.MaxReconnectInterval = cfg.MaxReconnectInterval
	opts.DialTimeout = cfg.DialTimeout

	sess, err := core.NewSession(transport.New(wsURL, opts))
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	sess.Start(runCtx)
	logging.Debugf("session: connecting to %s", wsURL)

	return &liveSession{
		cfg:     cfg,
		session: sess,
		console: usecase.NewConsoleUseCase(sess),
		cancel:  cancel,
	}, nil
}

// Close tears the connection down without reconnecting.
func (l *liveSession) Close() {
	l.cancel()
	<-l.session.Done()
}

// acquire returns the shell's session when one is open, else a fresh one
// that release closes. Either way the catalog has arrived on return.
func acquire(ctx context.Context) (*liveSession, func(), error) {
	if shared != nil {
		if err := shared.ready(ctx); err != nil {
			return nil, nil, err
		}
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
	if err := l.ready(ctx); err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, l.Close, nil
}

// ready waits for an open connection and the controller's catalog.
func (l *liveSession) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout(l.cfg))
	defer cancel()

	refreshed := false
	_, err := l.waitState(ctx, func(st core.State) (bool, error) {
		switch {
		case st.Status == core.StatusOffline:
			return false, fmt.Errorf("controller unreachable: %s", st.LinkError)
		case !st.Connected():
			return false, nil
		case st.Catalog != nil:
			return true, nil
		}
		if !refreshed {
			refreshed = true
			// Normally pushed on connect; ask in case it was missed.
			if err := l.console.Refresh(); err != nil {
				logging.Debugf("session: refresh: %v", err)
			}
		}
		return false, nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		st := l.session.Snapshot()
		if st.LinkError != "" {
			return fmt.Errorf("controller not ready (%s): %s", st.Status, st.LinkError)
		}
		return fmt.Errorf("controller not ready (%s)", st.Status)
	}
	return err
}

// waitState returns the first state, current or future, that pred accepts.
func (l *liveSession) waitState(ctx context.Context, pred func(core.State) (bool, error)) (core.State, error) {
	changes, unsubscribe := l.session.Subscribe()
	defer unsubscribe()

	st := l.session.Snapshot()
	for {
		done, err := pred(st)
		if err != nil || done {
			return st, err
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-l.session.Done():
			return st, core.ErrSessionClosed
		case ch := <-changes:
			st = ch.State
		}
	}
}

// confirm issues a command and waits for the push that confirms it. A
// controller error or a dropped link while waiting fails the command.
func (l *liveSession) confirm(ctx context.Context, issue func() error, match func(protocol.Event, core.State) bool) (core.State, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CommandTimeout)
	defer cancel()

	changes, unsubscribe := l.session.Subscribe()
	defer unsubscribe()

	if err := issue(); err != nil {
		return core.State{}, err
	}
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return l.session.Snapshot(), fmt.Errorf("%w within %s", errNoConfirmation, l.cfg.CommandTimeout)
			}
			return l.session.Snapshot(), ctx.Err()
		case <-l.session.Done():
			return l.session.Snapshot(), core.ErrSessionClosed
		case ch := <-changes:
			switch e := ch.Event.(type) {
			case protocol.ControllerError:
				return ch.State, fmt.Errorf("controller: %s", e.Message)
			case protocol.LinkClosed:
				return ch.State, fmt.Errorf("connection lost: %s", e)
			}
			if match(ch.Event, ch.State) {
				return ch.State, nil
			}
		}
	}
}

// readyTimeout bounds the wait for the first connection and catalog.
func readyTimeout(cfg config.Config) time.Duration {
	return cfg.DialTimeout + cfg.CommandTimeout
}
