package core

import (
	"fmt"
	"sort"
	"time"

	"dmxctl/internal/domain"
	"dmxctl/internal/protocol"
)

// EffectType represents the type of side effect to be performed.
type EffectType string

const (
	EffectSend EffectType = "Send"
)

// Effect is a side effect produced by the reducer and executed by the Session.
type Effect struct {
	Type    EffectType
	Message protocol.Message
	// Overlay is recorded once Message has been handed to the transport.
	Overlay *domain.ChannelValue
}

// Command is a locally issued request. It travels through the same loop as
// controller pushes so all state changes happen on one goroutine.
type Command struct {
	Message protocol.Message
	Overlay *domain.ChannelValue
}

func (c Command) String() string { return fmt.Sprintf("Command(%s)", c.Message.Type) }

// Status is the connectivity indicator shown to the operator.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusOffline      Status = "offline"
)

// ShowNotice is the latest show_started push, advanced by show_step pushes.
type ShowNotice struct {
	ShowID      string
	Steps       int
	Loop        bool
	CurrentStep int
}

// ErrorNotice is the latest controller error.
type ErrorNotice struct {
	protocol.ControllerError
	At time.Time
}

// State is the client-side view of the rig. The reducer never mutates a State
// in place, so values can be shared with readers freely.
type State struct {
	Status  Status
	ConnID  string
	Attempt int

	DMX           *domain.DmxState
	Catalog       *domain.ProjectConfig
	PresetApplied *protocol.PresetApplied
	ShowStarted   *ShowNotice
	LastError     *ErrorNotice
	Controller    *protocol.StatusReport
	Monitoring    bool

	// Overlay holds provisional channel values sent but not yet confirmed.
	Overlay map[int]int

	LinkError string
	UpdatedAt time.Time
}

// Connected reports whether a logical connection is open.
func (s State) Connected() bool { return s.Status == StatusConnected }

// ActivePresetID prefers the snapshot field and falls back to the latest
// preset_applied notice. Nothing is claimed while disconnected.
func (s State) ActivePresetID() string {
	if !s.Connected() {
		return ""
	}
	if s.DMX != nil && s.DMX.ActivePresetID != "" {
		return s.DMX.ActivePresetID
	}
	if s.PresetApplied != nil {
		return s.PresetApplied.PresetID
	}
	return ""
}

// ActiveShowID follows the same precedence as ActivePresetID.
func (s State) ActiveShowID() string {
	if !s.Connected() {
		return ""
	}
	if s.DMX != nil && s.DMX.ActiveShowID != "" {
		return s.DMX.ActiveShowID
	}
	if s.ShowStarted != nil {
		return s.ShowStarted.ShowID
	}
	return ""
}

// ChannelValue returns the provisional value if one is pending, else the
// snapshot value, else 0.
func (s State) ChannelValue(addr int) int {
	if v, ok := s.Overlay[addr]; ok {
		return v
	}
	if s.DMX != nil {
		v, _ := s.DMX.Value(addr)
		return v
	}
	return 0
}

// Summary is a JSON friendly projection of State for the CLI and HTTP API.
type Summary struct {
	Status         Status                    `json:"status"`
	ConnID         string                    `json:"conn_id,omitempty"`
	ProjectName    string                    `json:"project_name,omitempty"`
	ActivePresetID string                    `json:"active_preset_id,omitempty"`
	ActiveShowID   string                    `json:"active_show_id,omitempty"`
	ShowStep       int                       `json:"show_step,omitempty"`
	ShowLoop       bool                      `json:"show_loop,omitempty"`
	Monitoring     bool                      `json:"monitoring"`
	Timestamp      int64                     `json:"timestamp,omitempty"`
	Channels       []domain.ChannelValue     `json:"channels"`
	Pending        map[int]int               `json:"pending,omitempty"`
	Error          *protocol.ControllerError `json:"error,omitempty"`
	LinkError      string                    `json:"link_error,omitempty"`
	Controller     *protocol.StatusReport    `json:"controller,omitempty"`
}

// Summarize returns a snapshot suitable for external consumption.
func (s State) Summarize() Summary {
	sum := Summary{
		Status:         s.Status,
		ConnID:         s.ConnID,
		ActivePresetID: s.ActivePresetID(),
		ActiveShowID:   s.ActiveShowID(),
		Monitoring:     s.Monitoring,
		LinkError:      s.LinkError,
		Controller:     s.Controller,
		Channels:       []domain.ChannelValue{},
	}
	if s.Catalog != nil {
		sum.ProjectName = s.Catalog.ProjectName
	}
	if s.DMX != nil {
		sum.Timestamp = s.DMX.Timestamp
		sum.ShowStep = s.DMX.ShowStep
		sum.ShowLoop = s.DMX.ShowLoop
	}
	if sum.ActiveShowID != "" && s.ShowStarted != nil && s.ShowStarted.ShowID == sum.ActiveShowID {
		sum.ShowStep = s.ShowStarted.CurrentStep
		sum.ShowLoop = s.ShowStarted.Loop
	}
	if s.LastError != nil {
		e := s.LastError.ControllerError
		sum.Error = &e
	}

	addrs := map[int]struct{}{}
	if s.DMX != nil {
		for _, c := range s.DMX.Channels {
			addrs[c.Address] = struct{}{}
		}
	}
	for a := range s.Overlay {
		addrs[a] = struct{}{}
	}
	for a := range addrs {
		sum.Channels = append(sum.Channels, domain.ChannelValue{Address: a, Value: s.ChannelValue(a)})
	}
	sort.Slice(sum.Channels, func(i, j int) bool { return sum.Channels[i].Address < sum.Channels[j].Address })
	if len(s.Overlay) > 0 {
		sum.Pending = make(map[int]int, len(s.Overlay))
		for a, v := range s.Overlay {
			sum.Pending[a] = v
		}
	}
	return sum
}
