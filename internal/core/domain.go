package core

import (
	"time"

	"dmxctl/internal/domain"
	"dmxctl/internal/protocol"
)

// Reduce is a pure function that folds one event into the state and returns
// the effects the Session must execute. Unknown events leave state untouched.
func Reduce(state State, ev protocol.Event, now time.Time) (State, []Effect) {
	switch e := ev.(type) {
	case Command:
		return state, []Effect{{Type: EffectSend, Message: e.Message, Overlay: e.Overlay}}

	case protocol.LinkConnecting:
		next := state
		if next.Status != StatusConnected {
			next.Status = StatusConnecting
		}
		next.Attempt = e.Attempt
		return stamp(next, now), nil
	case protocol.LinkOpen:
		// Everything learned before the gap is discarded. The controller
		// re-broadcasts project_config and dmx_state to new clients.
		return stamp(State{Status: StatusConnected, ConnID: e.ConnID}, now), nil
	case protocol.LinkClosed:
		next := State{Status: StatusDisconnected, LinkError: state.LinkError}
		if e.Err != nil {
			next.LinkError = e.Err.Error()
		}
		return stamp(next, now), nil
	case protocol.LinkGaveUp:
		return stamp(State{Status: StatusOffline, Attempt: e.Attempts, LinkError: state.LinkError}, now), nil
	case protocol.LinkError:
		next := state
		next.LinkError = e.Err.Error()
		return stamp(next, now), nil

	case protocol.PresetApplied:
		next := state
		next.PresetApplied = &e
		return stamp(next, now), nil
	case protocol.ShowStarted:
		next := state
		next.ShowStarted = &ShowNotice{ShowID: e.ShowID, Steps: e.Steps, Loop: e.Loop}
		return stamp(next, now), nil
	case protocol.ShowStopped:
		return stamp(reduceShowStopped(state), now), nil
	case protocol.ShowStep:
		if state.ShowStarted == nil || state.ShowStarted.ShowID != e.ShowID {
			return state, nil
		}
		next := state
		notice := *state.ShowStarted
		notice.CurrentStep = e.Step
		if e.Total > 0 {
			notice.Steps = e.Total
		}
		next.ShowStarted = &notice
		return stamp(next, now), nil
	case protocol.ChannelUpdate:
		return stamp(reduceChannelUpdate(state, e), now), nil
	case protocol.BlackoutApplied:
		return stamp(reduceBlackout(state), now), nil
	case protocol.DMXState:
		if !newer(state.DMX, e.State) {
			return state, nil
		}
		next := state
		snap := e.State.Clone()
		next.DMX = &snap
		next.Overlay = nil
		return stamp(next, now), nil
	case protocol.DMXUpdate:
		if !newer(state.DMX, e.State) {
			return state, nil
		}
		return stamp(reduceDMXUpdate(state, e.State), now), nil
	case protocol.ProjectConfig:
		next := state
		cfg := e.Config
		next.Catalog = &cfg
		return stamp(next, now), nil
	case protocol.MonitoringStarted:
		next := state
		next.Monitoring = true
		return stamp(next, now), nil
	case protocol.MonitoringStopped:
		next := state
		next.Monitoring = false
		return stamp(next, now), nil
	case protocol.StatusReport:
		next := state
		next.Controller = &e
		next.Monitoring = e.Monitoring
		return stamp(next, now), nil
	case protocol.ControllerError:
		next := state
		next.LastError = &ErrorNotice{ControllerError: e, At: now}
		return stamp(next, now), nil
	default:
		return state, nil
	}
}

// HandleEffectResult updates state based on the result of executing an effect.
func HandleEffectResult(state State, eff Effect, err error) State {
	if err != nil {
		next := state
		next.LinkError = err.Error()
		return next
	}
	if eff.Overlay == nil {
		return state
	}
	next := state
	next.Overlay = copyOverlay(state.Overlay, 1)
	next.Overlay[eff.Overlay.Address] = eff.Overlay.Value
	return next
}

func stamp(s State, now time.Time) State {
	s.UpdatedAt = now
	return s
}

// newer reports whether incoming strictly follows the held snapshot.
func newer(held *domain.DmxState, incoming domain.DmxState) bool {
	return held == nil || incoming.Timestamp > held.Timestamp
}

func reduceChannelUpdate(state State, e protocol.ChannelUpdate) State {
	next := state
	var base domain.DmxState
	if state.DMX != nil {
		base = *state.DMX
	}
	snap := base.WithChannel(e.Address, e.Value)
	next.DMX = &snap
	if _, ok := state.Overlay[e.Address]; ok {
		next.Overlay = copyOverlay(state.Overlay, 0)
		delete(next.Overlay, e.Address)
	}
	return next
}

func reduceDMXUpdate(state State, upd domain.DmxState) State {
	next := state
	if state.DMX == nil {
		snap := upd.Clone()
		next.DMX = &snap
	} else {
		snap := *state.DMX
		for _, c := range upd.Channels {
			snap = snap.WithChannel(c.Address, c.Value)
		}
		snap.ActivePresetID = upd.ActivePresetID
		snap.ActiveShowID = upd.ActiveShowID
		snap.ShowStep = upd.ShowStep
		snap.ShowLoop = upd.ShowLoop
		snap.Timestamp = upd.Timestamp
		next.DMX = &snap
	}
	if len(state.Overlay) > 0 {
		next.Overlay = copyOverlay(state.Overlay, 0)
		for _, c := range upd.Channels {
			delete(next.Overlay, c.Address)
		}
	}
	return next
}

func reduceShowStopped(state State) State {
	next := state
	next.ShowStarted = nil
	if state.DMX != nil && state.DMX.ActiveShowID != "" {
		snap := state.DMX.Clone()
		snap.ActiveShowID = ""
		snap.ShowStep = 0
		snap.ShowLoop = false
		next.DMX = &snap
	}
	return next
}

// reduceBlackout mirrors what the controller does on blackout: every channel
// goes to zero, the running show is cancelled and no preset is active.
func reduceBlackout(state State) State {
	next := reduceShowStopped(state)
	next.PresetApplied = nil
	next.Overlay = nil
	if next.DMX != nil {
		snap := next.DMX.Clone()
		for i := range snap.Channels {
			snap.Channels[i].Value = 0
		}
		snap.ActivePresetID = ""
		next.DMX = &snap
	}
	return next
}

func copyOverlay(in map[int]int, extra int) map[int]int {
	out := make(map[int]int, len(in)+extra)
	for k, v := range in {
		out[k] = v
	}
	return out
}
