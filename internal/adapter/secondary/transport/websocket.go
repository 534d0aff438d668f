// Package transport keeps the control socket to the lighting controller open.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
)

// ControlPath is where the controller serves its control socket.
const ControlPath = "/ws/control"

var (
	ErrNotConnected   = errors.New("not connected to controller")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrGaveUp         = errors.New("gave up reconnecting")
	ErrMalformedFrame = errors.New("malformed frame")
)

// MaxReconnectAttempts caps consecutive failed connection attempts.
const MaxReconnectAttempts = 10

// Options tune the reconnect policy.
type Options struct {
	MaxAttempts          int
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	DialTimeout          time.Duration
	WriteTimeout         time.Duration
	QueueSize            int
	ReadLimit            int64
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:          MaxReconnectAttempts,
		ReconnectInterval:    time.Second,
		MaxReconnectInterval: 30 * time.Second,
		DialTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		QueueSize:            64,
		ReadLimit:            4 << 20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 || o.MaxAttempts > MaxReconnectAttempts {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = d.ReconnectInterval
	}
	if o.MaxReconnectInterval < o.ReconnectInterval {
		o.MaxReconnectInterval = o.ReconnectInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = d.ReadLimit
	}
	return o
}

// Client holds at most one connection at a time. Each connection gets its own
// outbox, so nothing queued before a drop is sent after a reconnect.
type Client struct {
	url    string
	opts   Options
	events chan protocol.Event

	mu     sync.Mutex
	outbox chan protocol.Message
}

// New returns a client for the websocket URL u. Call Run to connect.
func New(u string, opts Options) *Client {
	return &Client{
		url:    u,
		opts:   opts.withDefaults(),
		events: make(chan protocol.Event, 256),
	}
}

// Events delivers inbound frames and link changes in order.
func (c *Client) Events() <-chan protocol.Event { return c.events }

// Send enqueues msg on the open connection. It never waits for the network.
func (c *Client) Send(msg protocol.Message) error {
	c.mu.Lock()
	outbox := c.outbox
	c.mu.Unlock()
	if outbox == nil {
		return ErrNotConnected
	}
	select {
	case outbox <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Run connects and reconnects until ctx is cancelled or MaxAttempts
// consecutive attempts have failed. A successful open resets the count.
func (c *Client) Run(ctx context.Context) error {
	failures := 0
	delay := c.opts.ReconnectInterval
	for {
		c.emit(ctx, protocol.LinkConnecting{Attempt: failures + 1})
		conn, err := c.dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close(websocket.StatusNormalClosure, "session closed")
			}
			return ctx.Err()
		}
		if err == nil {
			failures = 0
			delay = c.opts.ReconnectInterval
			err = c.serve(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warnf("connection to %s lost: %v", c.url, err)
			c.emit(ctx, protocol.LinkClosed{Err: err})
		} else {
			failures++
			logging.Warnf("connect %s failed (%d/%d): %v", c.url, failures, c.opts.MaxAttempts, err)
			c.emit(ctx, protocol.LinkError{Err: fmt.Errorf("dial: %w", err)})
			if failures >= c.opts.MaxAttempts {
				c.emit(ctx, protocol.LinkGaveUp{Attempts: failures})
				return fmt.Errorf("%w after %d attempts", ErrGaveUp, failures)
			}
		}

		logging.Debugf("reconnecting in %s", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.opts.MaxReconnectInterval {
			delay = c.opts.MaxReconnectInterval
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(c.opts.ReadLimit)
	return conn, nil
}

// serve pumps one connection until it fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	connID := uuid.NewString()
	logging.Infof("connected to %s (conn %s)", c.url, connID)

	// The outbox must exist before LinkOpen is seen, or a command issued on
	// the connected transition is rejected.
	outbox := make(chan protocol.Message, c.opts.QueueSize)
	c.mu.Lock()
	c.outbox = outbox
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.outbox = nil
		c.mu.Unlock()
	}()
	c.emit(ctx, protocol.LinkOpen{ConnID: connID})

	// connCtx is not derived from ctx: teardown closes the socket with a
	// normal closure below instead of aborting reads.
	connCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg       sync.WaitGroup
		writeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "session closed")
		case <-connCtx.Done():
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-connCtx.Done():
				return
			case msg := <-outbox:
				wctx, wcancel := context.WithTimeout(connCtx, c.opts.WriteTimeout)
				err := wsjson.Write(wctx, conn, msg)
				wcancel()
				if err != nil {
					writeErr = fmt.Errorf("write %s: %w", msg.Type, err)
					conn.Close(websocket.StatusInternalError, "write failed")
					return
				}
				logging.Tracef("sent %s (conn %s)", msg.Type, connID)
			}
		}
	}()

	err := c.readLoop(ctx, connCtx, conn)
	cancel()
	wg.Wait()
	conn.CloseNow()
	if writeErr != nil {
		return writeErr
	}
	return err
}

func (c *Client) readLoop(ctx, connCtx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			return err
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.emit(ctx, protocol.LinkError{Err: fmt.Errorf("%w: %v", ErrMalformedFrame, err)})
			continue
		}
		if msg.Type == "" {
			c.emit(ctx, protocol.LinkError{Err: fmt.Errorf("%w: missing type", ErrMalformedFrame)})
			continue
		}
		c.emit(ctx, protocol.Inbound{Message: msg})
	}
}

func (c *Client) emit(ctx context.Context, ev protocol.Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// EndpointURL derives the control socket URL from the controller's base URL.
// The socket scheme mirrors the page scheme: https gives wss, http gives ws.
func EndpointURL(base, path string) (string, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse controller url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("controller url %q has no host", base)
	}
	if path == "" {
		path = ControlPath
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
