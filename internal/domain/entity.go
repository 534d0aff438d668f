package domain

import "sort"

// DMX universe bounds.
const (
	MinAddress = 1
	MaxAddress = 512
	MinValue   = 0
	MaxValue   = 255
)

// ChannelValue is one slot of the DMX universe.
type ChannelValue struct {
	Address int `json:"address"`
	Value   int `json:"value"`
}

// Validate checks the address and value ranges.
func (c ChannelValue) Validate() error {
	if c.Address < MinAddress || c.Address > MaxAddress {
		return ErrInvalidAddress
	}
	if c.Value < MinValue || c.Value > MaxValue {
		return ErrInvalidValue
	}
	return nil
}

// DmxState is the controller's authoritative live snapshot.
// Empty ActivePresetID / ActiveShowID mean "absent".
type DmxState struct {
	Channels       []ChannelValue `json:"channels"`
	ActivePresetID string         `json:"active_preset_id,omitempty"`
	ActiveShowID   string         `json:"active_show_id,omitempty"`
	ShowStep       int            `json:"show_step,omitempty"`
	ShowLoop       bool           `json:"show_loop,omitempty"`
	Timestamp      int64          `json:"timestamp"`
}

// Clone returns a deep copy so snapshots can be shared with readers.
func (s DmxState) Clone() DmxState {
	out := s
	out.Channels = append([]ChannelValue(nil), s.Channels...)
	return out
}

// Value returns the value held for addr, or 0 when the address is not listed.
func (s DmxState) Value(addr int) (int, bool) {
	i := sort.Search(len(s.Channels), func(i int) bool { return s.Channels[i].Address >= addr })
	if i < len(s.Channels) && s.Channels[i].Address == addr {
		return s.Channels[i].Value, true
	}
	return 0, false
}

// WithChannel returns a copy of the snapshot with addr set to value.
// All other addresses are preserved and the table stays sorted.
func (s DmxState) WithChannel(addr, value int) DmxState {
	out := s.Clone()
	i := sort.Search(len(out.Channels), func(i int) bool { return out.Channels[i].Address >= addr })
	if i < len(out.Channels) && out.Channels[i].Address == addr {
		out.Channels[i].Value = value
		return out
	}
	out.Channels = append(out.Channels, ChannelValue{})
	copy(out.Channels[i+1:], out.Channels[i:])
	out.Channels[i] = ChannelValue{Address: addr, Value: value}
	return out
}

// NormalizeChannels sorts by address and keeps the last value seen for
// duplicated addresses.
func NormalizeChannels(in []ChannelValue) []ChannelValue {
	if len(in) == 0 {
		return nil
	}
	byAddr := make(map[int]int, len(in))
	for _, c := range in {
		byAddr[c.Address] = c.Value
	}
	out := make([]ChannelValue, 0, len(byAddr))
	for addr, v := range byAddr {
		out = append(out, ChannelValue{Address: addr, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Fixture is a physical device patched onto a set of DMX addresses.
type Fixture struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Type        string           `json:"type" yaml:"type"`
	Channels    []FixtureChannel `json:"channels" yaml:"channels"`
}

type FixtureChannel struct {
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	Min            int    `json:"min" yaml:"min"`
	Max            int    `json:"max" yaml:"max"`
	ChannelAddress int    `json:"channel_address" yaml:"channel_address"`
}

// Preset is a named set of channel values applied atomically.
type Preset struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Channels    []PresetChannel `json:"channels" yaml:"channels"`
}

type PresetChannel struct {
	DMXAddress int `json:"dmx_address" yaml:"dmx_address"`
	Value      int `json:"value" yaml:"value"`
}

// ShowStep is one persisted playback step. DelayMs is authoritative.
type ShowStep struct {
	PresetID string `json:"preset_id" yaml:"preset_id"`
	DelayMs  int    `json:"delay_ms" yaml:"delay_ms"`
	FadeMs   int    `json:"fade_ms" yaml:"fade_ms"`
}

type Show struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Steps []ShowStep `json:"steps" yaml:"steps"`
}

// Validate checks the persisted show invariants.
func (s Show) Validate() error {
	if s.Name == "" {
		return ErrMissingName
	}
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	for _, st := range s.Steps {
		if st.PresetID == "" {
			return ErrMissingID
		}
		if st.DelayMs <= 0 {
			return ErrInvalidDelay
		}
		if st.FadeMs < 0 {
			return ErrInvalidFade
		}
	}
	return nil
}

// ProjectConfig is the catalog the controller broadcasts to every client.
type ProjectConfig struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Fixtures    []Fixture `json:"fixtures"`
	Presets     []Preset  `json:"presets"`
	Shows       []Show    `json:"shows"`
}

func (p ProjectConfig) Preset(id string) (Preset, bool) {
	for _, pr := range p.Presets {
		if pr.ID == id {
			return pr, true
		}
	}
	return Preset{}, false
}

func (p ProjectConfig) Show(id string) (Show, bool) {
	for _, s := range p.Shows {
		if s.ID == id {
			return s, true
		}
	}
	return Show{}, false
}
