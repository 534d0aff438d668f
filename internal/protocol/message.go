// Package protocol describes the JSON envelopes exchanged with the lighting
// controller over its control socket.
package protocol

import "encoding/json"

// Message is the wire envelope for both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound message types.
const (
	TypeApplyPreset      = "apply_preset"
	TypeRunShow          = "run_show"
	TypeStopShow         = "stop_show"
	TypeUpdateChannel    = "update_channel"
	TypeBlackout         = "blackout"
	TypeGetDMXState      = "get_dmx_state"
	TypeGetProjectConfig = "get_project_config"
	TypeGetStatus        = "get_status"
	TypeStartMonitoring  = "start_monitoring"
	TypeStopMonitoring   = "stop_monitoring"
)

var emptyPayload = json.RawMessage("{}")

func newMessage(typ string, payload any) Message {
	if payload == nil {
		return Message{Type: typ, Payload: emptyPayload}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload types below are plain structs; Marshal cannot fail on them.
		panic(err)
	}
	return Message{Type: typ, Payload: data}
}

type applyPresetPayload struct {
	PresetID string `json:"preset_id"`
}

type runShowPayload struct {
	ShowID string `json:"show_id"`
	Loop   bool   `json:"loop"`
}

type updateChannelPayload struct {
	DMXAddress int `json:"dmx_address"`
	Value      int `json:"value"`
}

func ApplyPreset(presetID string) Message {
	return newMessage(TypeApplyPreset, applyPresetPayload{PresetID: presetID})
}

func RunShow(showID string, loop bool) Message {
	return newMessage(TypeRunShow, runShowPayload{ShowID: showID, Loop: loop})
}

func StopShow() Message { return newMessage(TypeStopShow, nil) }

func UpdateChannel(address, value int) Message {
	return newMessage(TypeUpdateChannel, updateChannelPayload{DMXAddress: address, Value: value})
}

func Blackout() Message         { return newMessage(TypeBlackout, nil) }
func GetDMXState() Message      { return newMessage(TypeGetDMXState, nil) }
func GetProjectConfig() Message { return newMessage(TypeGetProjectConfig, nil) }
func GetStatus() Message        { return newMessage(TypeGetStatus, nil) }
func StartMonitoring() Message  { return newMessage(TypeStartMonitoring, nil) }
func StopMonitoring() Message   { return newMessage(TypeStopMonitoring, nil) }
