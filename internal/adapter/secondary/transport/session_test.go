package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dmxctl/internal/core"
	"dmxctl/internal/domain"
	"dmxctl/internal/protocol"
)

func greeting(t *testing.T, project string, st domain.DmxState) func() []protocol.Message {
	t.Helper()
	cfg, err := json.Marshal(domain.ProjectConfig{ProjectID: project, ProjectName: project})
	if err != nil {
		t.Fatal(err)
	}
	snap, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	return func() []protocol.Message {
		return []protocol.Message{
			{Type: protocol.TypeProjectConfig, Payload: cfg},
			{Type: protocol.TypeDMXState, Payload: snap},
		}
	}
}

func waitState(t *testing.T, ch <-chan core.Change, what string, ok func(core.State) bool) core.State {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-ch:
			if ok(c.State) {
				return c.State
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestSessionReconnectScenario(t *testing.T) {
	mock, err := NewMockController()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })
	mock.OnConnect(greeting(t, "before", domain.DmxState{
		Channels:     []domain.ChannelValue{{Address: 1, Value: 255}},
		ActiveShowID: "s1",
		Timestamp:    5000,
	}))

	client := New(mock.URL(), Options{ReconnectInterval: 200 * time.Millisecond})
	session, err := core.NewSession(client)
	if err != nil {
		t.Fatal(err)
	}
	changes, unsubscribe := session.Subscribe()
	t.Cleanup(unsubscribe)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	session.Start(ctx)

	waitState(t, changes, "show s1 active", func(s core.State) bool {
		return s.ActiveShowID() == "s1" && s.Catalog != nil
	})

	mock.OnConnect(greeting(t, "after", domain.DmxState{
		Channels:  []domain.ChannelValue{{Address: 2, Value: 10}},
		Timestamp: 100,
	}))
	mock.DropClients()

	down := waitState(t, changes, "disconnect", func(s core.State) bool {
		return s.Status == core.StatusDisconnected
	})
	if down.ActiveShowID() != "" {
		t.Errorf("disconnected state claims show %q", down.ActiveShowID())
	}

	up := waitState(t, changes, "fresh pair", func(s core.State) bool {
		return s.Connected() && s.Catalog != nil && s.DMX != nil
	})
	if up.Catalog.ProjectName != "after" {
		t.Errorf("got project %q, want %q", up.Catalog.ProjectName, "after")
	}
	if up.ActiveShowID() != "" {
		t.Errorf("got show %q, want none", up.ActiveShowID())
	}
	if up.ChannelValue(1) != 0 || up.ChannelValue(2) != 10 || up.DMX.Timestamp != 100 {
		t.Errorf("state mixes pre-gap data: %+v", up.DMX)
	}
}

func TestSessionCommandsReachController(t *testing.T) {
	mock, err := NewMockController()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })
	mock.Reply(func(m protocol.Message) []protocol.Message {
		if m.Type != protocol.TypeUpdateChannel {
			return nil
		}
		return []protocol.Message{{Type: protocol.TypeChannelUpdate, Payload: m.Payload}}
	})

	session, err := core.NewSession(New(mock.URL(), Options{}))
	if err != nil {
		t.Fatal(err)
	}
	changes, unsubscribe := session.Subscribe()
	t.Cleanup(unsubscribe)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	session.Start(ctx)

	waitState(t, changes, "connect", core.State.Connected)
	if err := session.UpdateChannel(12, 180); err != nil {
		t.Fatal(err)
	}
	st := waitState(t, changes, "confirmation", func(s core.State) bool {
		_, pending := s.Overlay[12]
		return s.DMX != nil && !pending
	})
	if st.ChannelValue(12) != 180 {
		t.Errorf("got %d, want 180", st.ChannelValue(12))
	}
}
