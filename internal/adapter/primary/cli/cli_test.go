package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dmxctl/internal/adapter/secondary/transport"
	"dmxctl/internal/domain"
	"dmxctl/internal/logging"
	"dmxctl/internal/protocol"
)

func msg(t *testing.T, typ string, payload any) protocol.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return protocol.Message{Type: typ, Payload: data}
}

var catalog = domain.ProjectConfig{
	ProjectID:   "club",
	ProjectName: "Club",
	Presets: []domain.Preset{
		{ID: "warm", Name: "Warm", Channels: []domain.PresetChannel{{DMXAddress: 1, Value: 255}, {DMXAddress: 2, Value: 120}}},
	},
	Shows: []domain.Show{
		{ID: "intro", Name: "Intro", Steps: []domain.ShowStep{
			{PresetID: "warm", DelayMs: 1000},
			{PresetID: "warm", DelayMs: 500, FadeMs: 100},
			{PresetID: "warm", DelayMs: 2000},
		}},
	},
}

// setupTest starts a mock controller that confirms every command the way the
// real one does, and points the CLI at it.
func setupTest(t *testing.T) *transport.MockController {
	t.Helper()
	mock, err := transport.NewMockController()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	mock.OnConnect(func() []protocol.Message {
		return []protocol.Message{
			msg(t, protocol.TypeDMXState, domain.DmxState{Timestamp: 1}),
			msg(t, protocol.TypeProjectConfig, catalog),
		}
	})
	mock.Reply(func(in protocol.Message) []protocol.Message {
		var p map[string]any
		_ = json.Unmarshal(in.Payload, &p)
		switch in.Type {
		case protocol.TypeApplyPreset:
			return []protocol.Message{msg(t, protocol.TypePresetApplied, map[string]any{
				"preset_id": p["preset_id"],
				"channels":  map[string]int{"1": 255, "2": 120},
			})}
		case protocol.TypeRunShow:
			return []protocol.Message{msg(t, protocol.TypeShowStarted, map[string]any{
				"show_id": p["show_id"], "steps": 3, "loop": p["loop"],
			})}
		case protocol.TypeStopShow:
			return []protocol.Message{msg(t, protocol.TypeShowStopped, map[string]any{})}
		case protocol.TypeUpdateChannel:
			return []protocol.Message{msg(t, protocol.TypeChannelUpdate, p)}
		case protocol.TypeBlackout:
			return []protocol.Message{{Type: protocol.TypeBlackout, Payload: json.RawMessage(`{}`)}}
		case protocol.TypeGetStatus:
			return []protocol.Message{msg(t, protocol.TypeStatus, protocol.StatusReport{DMXInitialized: true, ConnectedClients: 1})}
		case protocol.TypeStartMonitoring:
			return []protocol.Message{{Type: protocol.TypeMonitoringStarted, Payload: json.RawMessage(`{}`)}}
		}
		return nil
	})
	return mock
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.json")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPresetApply(t *testing.T) {
	mock := setupTest(t)
	out, err := runCLI(t, "--url", mock.BaseURL(), "preset", "apply", "warm")
	if err != nil {
		t.Fatal(err)
	}
	if want := "preset warm applied (2 channels)\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	got := mock.Received()
	var sent *protocol.Message
	for i := range got {
		if got[i].Type == protocol.TypeApplyPreset {
			sent = &got[i]
		}
	}
	if sent == nil || !strings.Contains(string(sent.Payload), `"preset_id":"warm"`) {
		t.Errorf("got %v", got)
	}
}

func TestPresetApplyUnknownIsNotSent(t *testing.T) {
	mock := setupTest(t)
	_, err := runCLI(t, "--url", mock.BaseURL(), "preset", "apply", "nope")
	if !errors.Is(err, domain.ErrUnknownPreset) {
		t.Fatalf("got %v, want %v", err, domain.ErrUnknownPreset)
	}
	for _, m := range mock.Received() {
		if m.Type == protocol.TypeApplyPreset {
			t.Errorf("unexpected %s sent", m.Type)
		}
	}
}

func TestShowRunOnce(t *testing.T) {
	mock := setupTest(t)
	out, err := runCLI(t, "--url", mock.BaseURL(), "show", "run", "intro", "--once")
	if err != nil {
		t.Fatal(err)
	}
	if want := "show intro started (3 steps, loop=false)\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestChannelSet(t *testing.T) {
	mock := setupTest(t)
	out, err := runCLI(t, "--url", mock.BaseURL(), "channel", "set", "12", "200")
	if err != nil {
		t.Fatal(err)
	}
	if want := "channel 12 = 200\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	if _, err := runCLI(t, "--url", mock.BaseURL(), "channel", "set", "0", "10"); !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("got %v, want %v", err, domain.ErrInvalidAddress)
	}
}

func TestBlackoutAndStatus(t *testing.T) {
	mock := setupTest(t)
	if out, err := runCLI(t, "--url", mock.BaseURL(), "blackout"); err != nil || out != "blackout\n" {
		t.Fatalf("got %q, %v", out, err)
	}
	out, err := runCLI(t, "--url", mock.BaseURL(), "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"project_name": "Club"`) || !strings.Contains(out, `"connected_clients": 1`) {
		t.Errorf("got %s", out)
	}
}

func TestMonitorStart(t *testing.T) {
	mock := setupTest(t)
	out, err := runCLI(t, "--url", mock.BaseURL(), "monitor", "start")
	if err != nil {
		t.Fatal(err)
	}
	if out != "monitoring on\n" {
		t.Errorf("got %q, want %q", out, "monitoring on\n")
	}
}

func TestControllerUnreachable(t *testing.T) {
	mock := setupTest(t)
	base := mock.BaseURL()
	mock.Close()
	t.Setenv("DMXCTL_RECONNECT_ATTEMPTS", "2")
	t.Setenv("DMXCTL_RECONNECT_INTERVAL", "20ms")
	t.Setenv("DMXCTL_DIAL_TIMEOUT", "200ms")
	if _, err := runCLI(t, "--url", base, "blackout"); err == nil {
		t.Fatal("expected error")
	}
}

func TestShowPlanAndCompile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/shows/intro", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(catalog.Shows[0])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	out, err := runCLI(t, "--url", srv.URL, "show", "plan", "intro")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "beat_duration_ms: 500") || !strings.Contains(out, "beats: 4") {
		t.Errorf("got:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "intro.yaml")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "show", "compile", path, "--id", "intro-2")
	if err != nil {
		t.Fatal(err)
	}
	var show domain.Show
	if err := json.Unmarshal([]byte(out), &show); err != nil {
		t.Fatal(err)
	}
	if show.ID != "intro-2" || len(show.Steps) != 3 {
		t.Fatalf("got %+v", show)
	}
	for i, st := range show.Steps {
		if st != catalog.Shows[0].Steps[i] {
			t.Errorf("step %d: got %+v, want %+v", i, st, catalog.Shows[0].Steps[i])
		}
	}
}

func TestConfigSetGet(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.json")
	run := func(args ...string) (string, error) {
		root := NewRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(append([]string{"--config", cfg}, args...))
		err := root.Execute()
		return out.String(), err
	}

	if _, err := run("config", "set", "reconnect_attempts", "4"); err != nil {
		t.Fatal(err)
	}
	out, err := run("config", "get", "reconnect_attempts")
	if err != nil {
		t.Fatal(err)
	}
	if out != "4\n" {
		t.Errorf("got %q, want %q", out, "4\n")
	}
	if _, err := run("config", "set", "reconnect_attempts", "0"); err == nil {
		t.Error("expected validation error")
	}
	if _, err := run("config", "set", "bogus", "1"); err == nil {
		t.Error("expected unknown key error")
	}
}

func TestHandleShellLog(t *testing.T) {
	t.Cleanup(func() { logging.SetVerbosity(0) })
	v := 0
	if err := handleShellLog([]string{"--level", "debug"}, &v); err != nil {
		t.Fatal(err)
	}
	if v != 2 || logging.LevelName() != "debug" {
		t.Errorf("got verbosity %d level %s", v, logging.LevelName())
	}
	if err := handleShellLog([]string{"--level", "loud"}, &v); err == nil {
		t.Error("expected error for unknown level")
	}
}
