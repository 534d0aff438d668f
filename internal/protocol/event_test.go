package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeDMXState(t *testing.T) {
	raw := `{"channels":[{"address":3,"value":30},{"address":1,"value":10}],"active_show_id":"s1","show_step":2,"timestamp":1700}`
	ev, err := Decode(Message{Type: TypeDMXState, Payload: json.RawMessage(raw)})
	if err != nil {
		t.Fatal(err)
	}
	st, ok := ev.(DMXState)
	if !ok {
		t.Fatalf("got %T, want DMXState", ev)
	}
	if st.State.Timestamp != 1700 {
		t.Errorf("got timestamp %d, want 1700", st.State.Timestamp)
	}
	if st.State.ActiveShowID != "s1" {
		t.Errorf("got %q, want %q", st.State.ActiveShowID, "s1")
	}
	if st.State.ActivePresetID != "" {
		t.Errorf("got %q, want empty preset", st.State.ActivePresetID)
	}
	if st.State.Channels[0].Address != 1 {
		t.Errorf("channels not sorted: %+v", st.State.Channels)
	}
}

func TestDecodePresetApplied(t *testing.T) {
	raw := `{"preset_id":"p1","channels":{"1":255,"12":40}}`
	ev, err := Decode(Message{Type: TypePresetApplied, Payload: json.RawMessage(raw)})
	if err != nil {
		t.Fatal(err)
	}
	pa := ev.(PresetApplied)
	if pa.PresetID != "p1" {
		t.Errorf("got %q, want %q", pa.PresetID, "p1")
	}
	if pa.Channels[12] != 40 {
		t.Errorf("got %d, want 40", pa.Channels[12])
	}
	if addrs := pa.Addresses(); len(addrs) != 2 || addrs[0] != 1 {
		t.Errorf("got %v", addrs)
	}
}

func TestDecodeUnknownTypeIsIgnored(t *testing.T) {
	ev, err := Decode(Message{Type: "fixture_moved", Payload: json.RawMessage(`{}`)})
	if err != nil || ev != nil {
		t.Errorf("got %v, %v; want nil, nil", ev, err)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	tests := []Message{
		{Type: TypeDMXState, Payload: json.RawMessage(`{"timestamp":"soon"}`)},
		{Type: TypeChannelUpdate, Payload: json.RawMessage(`[1,2]`)},
		{Type: TypeChannelUpdate, Payload: json.RawMessage(`{"dmx_address":900,"value":1}`)},
		{Type: TypeDMXState, Payload: json.RawMessage(`{"channels":[{"address":0,"value":10}],"timestamp":1}`)},
		{Type: TypeDMXState, Payload: json.RawMessage(`{"channels":[{"address":600,"value":10}],"timestamp":1}`)},
		{Type: TypeDMXUpdate, Payload: json.RawMessage(`{"channels":[{"address":5,"value":300}],"timestamp":1}`)},
		{Type: TypePresetApplied, Payload: json.RawMessage(`{"preset_id":"p","channels":{"x":1}}`)},
	}
	for _, m := range tests {
		if _, err := Decode(m); err == nil {
			t.Errorf("%s %s: expected error", m.Type, m.Payload)
		}
	}
}

func TestDecodeEmptyPayloads(t *testing.T) {
	for _, typ := range []string{TypeBlackout, TypeShowStopped, TypeMonitoringStarted, TypeMonitoringStopped} {
		ev, err := Decode(Message{Type: typ, Payload: json.RawMessage(`{}`)})
		if err != nil {
			t.Errorf("%s: %v", typ, err)
		}
		if ev == nil {
			t.Errorf("%s: got nil event", typ)
		}
	}
}

func TestOutboundMessages(t *testing.T) {
	tests := []struct {
		msg  Message
		typ  string
		body string
	}{
		{ApplyPreset("p1"), TypeApplyPreset, `{"preset_id":"p1"}`},
		{RunShow("s1", true), TypeRunShow, `{"show_id":"s1","loop":true}`},
		{StopShow(), TypeStopShow, `{}`},
		{UpdateChannel(5, 200), TypeUpdateChannel, `{"dmx_address":5,"value":200}`},
		{Blackout(), TypeBlackout, `{}`},
		{GetDMXState(), TypeGetDMXState, `{}`},
		{StartMonitoring(), TypeStartMonitoring, `{}`},
	}
	for _, tt := range tests {
		if tt.msg.Type != tt.typ {
			t.Errorf("got type %q, want %q", tt.msg.Type, tt.typ)
		}
		if string(tt.msg.Payload) != tt.body {
			t.Errorf("%s: got %s, want %s", tt.typ, tt.msg.Payload, tt.body)
		}
	}
}
