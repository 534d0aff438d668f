package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"dmxctl/internal/domain"
)

// Inbound push types.
const (
	TypePresetApplied     = "preset_applied"
	TypeShowStarted       = "show_started"
	TypeShowStopped       = "show_stopped"
	TypeShowStep          = "show_step"
	TypeChannelUpdate     = "channel_update"
	TypeDMXState          = "dmx_state"
	TypeDMXUpdate         = "dmx_update"
	TypeProjectConfig     = "project_config"
	TypeMonitoringStarted = "monitoring_started"
	TypeMonitoringStopped = "monitoring_stopped"
	TypeStatus            = "status"
	TypeError             = "error"
)

// Event is anything the session folds into its state: decoded controller
// pushes, link lifecycle changes and local overlays.
type Event interface {
	String() string
}

type PresetApplied struct {
	PresetID string
	Channels map[int]int
}

func (e PresetApplied) String() string {
	return fmt.Sprintf("PresetApplied(%s, %d channels)", e.PresetID, len(e.Channels))
}

type ShowStarted struct {
	ShowID string `json:"show_id"`
	Steps  int    `json:"steps"`
	Loop   bool   `json:"loop"`
}

func (e ShowStarted) String() string {
	return fmt.Sprintf("ShowStarted(%s, steps=%d, loop=%t)", e.ShowID, e.Steps, e.Loop)
}

type ShowStopped struct {
	ShowID string `json:"show_id"`
}

func (e ShowStopped) String() string { return fmt.Sprintf("ShowStopped(%s)", e.ShowID) }

type ShowStep struct {
	ShowID string `json:"show_id"`
	Step   int    `json:"step"`
	Total  int    `json:"total"`
}

func (e ShowStep) String() string {
	return fmt.Sprintf("ShowStep(%s, %d/%d)", e.ShowID, e.Step+1, e.Total)
}

type ChannelUpdate struct {
	Address int `json:"dmx_address"`
	Value   int `json:"value"`
}

func (e ChannelUpdate) String() string {
	return fmt.Sprintf("ChannelUpdate(%d=%d)", e.Address, e.Value)
}

type BlackoutApplied struct{}

func (BlackoutApplied) String() string { return "Blackout" }

// DMXState replaces the held snapshot.
type DMXState struct{ State domain.DmxState }

func (e DMXState) String() string {
	return fmt.Sprintf("DMXState(t=%d, %d channels)", e.State.Timestamp, len(e.State.Channels))
}

// DMXUpdate merges into the held snapshot.
type DMXUpdate struct{ State domain.DmxState }

func (e DMXUpdate) String() string {
	return fmt.Sprintf("DMXUpdate(t=%d, %d channels)", e.State.Timestamp, len(e.State.Channels))
}

type ProjectConfig struct{ Config domain.ProjectConfig }

func (e ProjectConfig) String() string {
	return fmt.Sprintf("ProjectConfig(%s, %d presets, %d shows)", e.Config.ProjectName, len(e.Config.Presets), len(e.Config.Shows))
}

type MonitoringStarted struct{}

func (MonitoringStarted) String() string { return "MonitoringStarted" }

type MonitoringStopped struct{}

func (MonitoringStopped) String() string { return "MonitoringStopped" }

// StatusReport is the controller's answer to get_status.
type StatusReport struct {
	DMXInitialized   bool   `json:"dmx_initialized"`
	ShowRunning      bool   `json:"show_running"`
	ActiveShowID     string `json:"active_show_id"`
	ShowStep         int    `json:"show_step"`
	ShowLoop         bool   `json:"show_loop"`
	ActivePresetID   string `json:"active_preset_id"`
	Monitoring       bool   `json:"monitoring"`
	ConnectedClients int    `json:"connected_clients"`
}

func (e StatusReport) String() string {
	return fmt.Sprintf("Status(dmx=%t, show=%q, clients=%d)", e.DMXInitialized, e.ActiveShowID, e.ConnectedClients)
}

// ControllerError is an error notice pushed by the controller.
type ControllerError struct {
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e ControllerError) String() string {
	if e.Details == "" {
		return fmt.Sprintf("ControllerError(%s)", e.Message)
	}
	return fmt.Sprintf("ControllerError(%s: %s)", e.Message, e.Details)
}

// Decode turns an inbound envelope into a typed event. Unknown types yield a
// nil event and a nil error; a known type with a malformed payload is an error.
func Decode(m Message) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch m.Type {
	case TypePresetApplied:
		ev, err = decodePresetApplied(m.Payload)
	case TypeShowStarted:
		var e ShowStarted
		err = unmarshal(m.Payload, &e)
		ev = e
	case TypeShowStopped:
		var e ShowStopped
		err = unmarshal(m.Payload, &e)
		ev = e
	case TypeShowStep:
		var e ShowStep
		err = unmarshal(m.Payload, &e)
		ev = e
	case TypeChannelUpdate:
		var e ChannelUpdate
		if err = unmarshal(m.Payload, &e); err == nil {
			err = domain.ChannelValue{Address: e.Address, Value: e.Value}.Validate()
		}
		ev = e
	case TypeBlackout:
		ev = BlackoutApplied{}
	case TypeDMXState:
		var s domain.DmxState
		if err = unmarshal(m.Payload, &s); err == nil {
			err = validateChannels(s.Channels)
		}
		s.Channels = domain.NormalizeChannels(s.Channels)
		ev = DMXState{State: s}
	case TypeDMXUpdate:
		var s domain.DmxState
		if err = unmarshal(m.Payload, &s); err == nil {
			err = validateChannels(s.Channels)
		}
		s.Channels = domain.NormalizeChannels(s.Channels)
		ev = DMXUpdate{State: s}
	case TypeProjectConfig:
		var c domain.ProjectConfig
		err = unmarshal(m.Payload, &c)
		ev = ProjectConfig{Config: c}
	case TypeMonitoringStarted:
		ev = MonitoringStarted{}
	case TypeMonitoringStopped:
		ev = MonitoringStopped{}
	case TypeStatus:
		var e StatusReport
		err = unmarshal(m.Payload, &e)
		ev = e
	case TypeError:
		var e ControllerError
		err = unmarshal(m.Payload, &e)
		ev = e
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Type, err)
	}
	return ev, nil
}

func unmarshal(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}

func decodePresetApplied(payload json.RawMessage) (Event, error) {
	var raw struct {
		PresetID string         `json:"preset_id"`
		Channels map[string]int `json:"channels"`
	}
	if err := unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	e := PresetApplied{PresetID: raw.PresetID, Channels: make(map[int]int, len(raw.Channels))}
	for k, v := range raw.Channels {
		addr, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("channel key %q: %w", k, err)
		}
		e.Channels[addr] = v
	}
	return e, nil
}

// Addresses returns the applied addresses in ascending order.
func (e PresetApplied) Addresses() []int {
	out := make([]int, 0, len(e.Channels))
	for a := range e.Channels {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

func validateChannels(channels []domain.ChannelValue) error {
	for _, c := range channels {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("channel %d: %w", c.Address, err)
		}
	}
	return nil
}
