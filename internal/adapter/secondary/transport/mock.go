package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"dmxctl/internal/protocol"
)

// MockController is an in-process stand-in for the lighting controller's
// control socket.
type MockController struct {
	listener net.Listener
	server   *http.Server

	mu        sync.Mutex
	conns     map[*websocket.Conn]context.CancelFunc
	received  []protocol.Message
	notify    chan struct{}
	accepted  int
	onConnect func() []protocol.Message
	reply     func(protocol.Message) []protocol.Message
}

func NewMockController() (*MockController, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	m := &MockController{
		listener: ln,
		conns:    make(map[*websocket.Conn]context.CancelFunc),
		notify:   make(chan struct{}, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(ControlPath, m.handle)
	m.server = &http.Server{Handler: mux}
	go m.server.Serve(ln)
	return m, nil
}

// URL returns the ws:// URL of the control socket.
func (m *MockController) URL() string {
	return fmt.Sprintf("ws://%s%s", m.listener.Addr().String(), ControlPath)
}

// BaseURL returns the http:// URL the controller would be browsed at.
func (m *MockController) BaseURL() string {
	return "http://" + m.listener.Addr().String()
}

func (m *MockController) Close() error {
	m.DropClients()
	return m.server.Close()
}

func (m *MockController) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.conns[conn] = cancel
	m.accepted++
	greet := m.onConnect
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.conns, conn)
		m.mu.Unlock()
		cancel()
		conn.CloseNow()
	}()

	if greet != nil {
		for _, msg := range greet() {
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
		}
	}

	for {
		var msg protocol.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		m.mu.Lock()
		m.received = append(m.received, msg)
		reply := m.reply
		m.mu.Unlock()
		select {
		case m.notify <- struct{}{}:
		default:
		}
		if reply != nil {
			for _, out := range reply(msg) {
				if err := wsjson.Write(ctx, conn, out); err != nil {
					return
				}
			}
		}
	}
}

// OnConnect sets the messages pushed to each new client. The real controller
// greets clients with dmx_state and project_config.
func (m *MockController) OnConnect(fn func() []protocol.Message) {
	m.mu.Lock()
	m.onConnect = fn
	m.mu.Unlock()
}

// Reply sets a handler answering each received message on its connection.
func (m *MockController) Reply(fn func(protocol.Message) []protocol.Message) {
	m.mu.Lock()
	m.reply = fn
	m.mu.Unlock()
}

// Received returns every message received so far, across connections.
func (m *MockController) Received() []protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Message(nil), m.received...)
}

// WaitReceived blocks until at least n messages arrived or timeout elapses.
func (m *MockController) WaitReceived(n int, timeout time.Duration) []protocol.Message {
	deadline := time.After(timeout)
	for {
		got := m.Received()
		if len(got) >= n {
			return got
		}
		select {
		case <-m.notify:
		case <-deadline:
			return got
		}
	}
}

// Accepted returns how many connections have been accepted.
func (m *MockController) Accepted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// Clients returns the number of open connections.
func (m *MockController) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Broadcast pushes msg to every connected client.
func (m *MockController) Broadcast(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	m.SendRaw(data)
}

// SendRaw pushes an arbitrary text frame to every client.
func (m *MockController) SendRaw(data []byte) {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		c.Write(ctx, websocket.MessageText, data)
		cancel()
	}
}

// DropClients aborts every open connection without a close handshake.
func (m *MockController) DropClients() {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for c, cancel := range m.conns {
		cancel()
		conns = append(conns, c)
	}
	m.mu.Unlock()
	for _, c := range conns {
		c.CloseNow()
	}
}
