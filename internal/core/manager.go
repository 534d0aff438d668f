package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"dmxctl/internal/domain"
	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
)

// Transport owns the connection to the controller.
type Transport interface {
	// Run keeps a connection open until ctx is cancelled or the reconnect
	// budget is spent.
	Run(ctx context.Context) error
	// Send enqueues one message on the current connection without waiting.
	Send(msg protocol.Message) error
	// Events delivers inbound frames and link changes in order.
	Events() <-chan protocol.Event
}

// ErrSessionClosed is returned by commands issued after the session stopped.
var ErrSessionClosed = errors.New("session closed")

// View is the read-only capability handed to consumers of session state.
type View interface {
	Snapshot() State
	Subscribe() (<-chan Change, func())
}

// Change is published after every event that altered state.
type Change struct {
	Event protocol.Event
	State State
}

// Session runs the reducer over transport events and exposes the command
// facade. All state changes happen on the loop goroutine.
type Session struct {
	transport Transport

	mu    sync.RWMutex
	state State

	cmdCh chan commandRequest
	done  chan struct{}

	subMu sync.Mutex
	subs  map[chan Change]struct{}

	runErr error
}

type commandRequest struct {
	cmd      Command
	resultCh chan error
}

// NewSession prepares a session over t. Call Start to connect.
func NewSession(t Transport) (*Session, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	return &Session{
		transport: t,
		state:     State{Status: StatusIdle},
		cmdCh:     make(chan commandRequest),
		done:      make(chan struct{}),
		subs:      make(map[chan Change]struct{}),
	}, nil
}

// Start launches the transport and the event loop until ctx is cancelled.
// Cancelling ctx is the explicit teardown: no reconnect follows it.
func (s *Session) Start(ctx context.Context) {
	go func() {
		err := s.transport.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warnf("transport stopped: %v", err)
		}
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
	}()
	go s.loop(ctx)
}

// Done is closed when the event loop exits.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	events := s.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.dispatch(ev)
		case req := <-s.cmdCh:
			req.resultCh <- s.dispatch(req.cmd)
		}
	}
}

// dispatch folds one event and executes the resulting effects.
func (s *Session) dispatch(ev protocol.Event) error {
	if in, ok := ev.(protocol.Inbound); ok {
		decoded, err := protocol.Decode(in.Message)
		if err != nil {
			logging.Warnf("dropping frame: %v", err)
			return nil
		}
		if decoded == nil {
			logging.Debugf("ignoring unknown message type %q", in.Message.Type)
			return nil
		}
		ev = decoded
	}
	logging.Tracef("event %s", ev)

	s.mu.Lock()
	next, effects := Reduce(s.state, ev, time.Now())
	s.state = next
	s.mu.Unlock()

	err := s.executeEffects(effects)
	s.publish(ev)
	return err
}

func (s *Session) executeEffects(effects []Effect) error {
	var lastErr error
	for _, eff := range effects {
		var err error
		switch eff.Type {
		case EffectSend:
			err = s.transport.Send(eff.Message)
		}
		if err != nil {
			logging.Warnf("send %s: %v", eff.Message.Type, err)
			lastErr = err
		}
		s.mu.Lock()
		s.state = HandleEffectResult(s.state, eff, err)
		s.mu.Unlock()
	}
	return lastErr
}

func (s *Session) publish(ev protocol.Event) {
	change := Change{Event: ev, State: s.Snapshot()}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Snapshot returns the current state. Callers must not mutate it.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error the transport stopped with, if it has stopped.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runErr
}

// Subscribe returns a channel of changes and a cancel func. Slow subscribers
// miss changes rather than stalling the loop.
func (s *Session) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 64)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Session) submit(cmd Command) error {
	ch := make(chan error, 1)
	select {
	case s.cmdCh <- commandRequest{cmd: cmd, resultCh: ch}:
	case <-s.done:
		return ErrSessionClosed
	}
	return <-ch
}

// ApplyPreset asks the controller to apply presetID. Whether the preset
// exists is the caller's concern.
func (s *Session) ApplyPreset(presetID string) error {
	if presetID == "" {
		return domain.ErrMissingID
	}
	return s.submit(Command{Message: protocol.ApplyPreset(presetID)})
}

// RunShow starts playback. The controller replaces any running show.
func (s *Session) RunShow(showID string, loop bool) error {
	if showID == "" {
		return domain.ErrMissingID
	}
	return s.submit(Command{Message: protocol.RunShow(showID, loop)})
}

func (s *Session) StopShow() error {
	return s.submit(Command{Message: protocol.StopShow()})
}

// UpdateChannel sets one channel. The value is shown provisionally until the
// controller confirms it.
func (s *Session) UpdateChannel(address, value int) error {
	cv := domain.ChannelValue{Address: address, Value: value}
	if err := cv.Validate(); err != nil {
		return err
	}
	return s.submit(Command{Message: protocol.UpdateChannel(address, value), Overlay: &cv})
}

func (s *Session) Blackout() error {
	return s.submit(Command{Message: protocol.Blackout()})
}

func (s *Session) RequestState() error {
	return s.submit(Command{Message: protocol.GetDMXState()})
}

func (s *Session) RequestProjectConfig() error {
	return s.submit(Command{Message: protocol.GetProjectConfig()})
}

func (s *Session) RequestStatus() error {
	return s.submit(Command{Message: protocol.GetStatus()})
}

func (s *Session) StartMonitoring() error {
	return s.submit(Command{Message: protocol.StartMonitoring()})
}

func (s *Session) StopMonitoring() error {
	return s.submit(Command{Message: protocol.StopMonitoring()})
}
