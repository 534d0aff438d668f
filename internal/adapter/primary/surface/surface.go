// Package surface drives the console from a MIDI control surface: faders set
// channels, buttons apply presets, the foot switch blacks out.
package surface

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"dmxctl/internal/domain"
	"dmxctl/internal/logging"
)

const (
	CCFootSwitch = 64
	CCFaderFirst = 70
	CCFaderLast  = 77

	NoteButtonFirst = 0
	NoteButtonLast  = 31
)

// Controls is the part of the console a surface can reach.
type Controls interface {
	Presets() ([]domain.Preset, error)
	ApplyPreset(presetID string) error
	SetChannel(address, value int) error
	Blackout() error
}

// Bridge maps surface messages onto console commands.
type Bridge struct {
	controls  Controls
	faderBase int

	mu     sync.Mutex
	faders map[int]int
}

// NewBridge maps fader n to DMX address faderBase+n.
func NewBridge(controls Controls, faderBase int) *Bridge {
	if faderBase < domain.MinAddress {
		faderBase = domain.MinAddress
	}
	return &Bridge{controls: controls, faderBase: faderBase, faders: make(map[int]int)}
}

// ScaleFader maps a 7-bit MIDI value onto the DMX range.
func ScaleFader(v uint8) int {
	if v > 127 {
		v = 127
	}
	return int(v) * domain.MaxValue / 127
}

// Handle translates one message. Messages the surface does not map are ignored.
func (b *Bridge) Handle(msg midi.Message) error {
	switch {
	case msg.Is(midi.NoteOnMsg):
		var channel, key, velocity uint8
		msg.GetNoteOn(&channel, &key, &velocity)
		if velocity == 0 || key > NoteButtonLast {
			return nil
		}
		return b.pressButton(int(key - NoteButtonFirst))

	case msg.Is(midi.ControlChangeMsg):
		var channel, controller, value uint8
		msg.GetControlChange(&channel, &controller, &value)
		switch {
		case controller >= CCFaderFirst && controller <= CCFaderLast:
			return b.moveFader(int(controller-CCFaderFirst), value)
		case controller == CCFootSwitch && value > 0:
			logging.Infof("surface: blackout")
			return b.controls.Blackout()
		}
	}
	return nil
}

// pressButton applies the preset at index in catalog order.
func (b *Bridge) pressButton(index int) error {
	presets, err := b.controls.Presets()
	if err != nil {
		return err
	}
	if index >= len(presets) {
		logging.Debugf("surface: button %d has no preset", index)
		return nil
	}
	p := presets[index]
	logging.Infof("surface: button %d -> preset %s", index, p.ID)
	return b.controls.ApplyPreset(p.ID)
}

func (b *Bridge) moveFader(fader int, raw uint8) error {
	addr := b.faderBase + fader
	if addr > domain.MaxAddress {
		return nil
	}
	value := ScaleFader(raw)

	b.mu.Lock()
	last, seen := b.faders[addr]
	if seen && last == value {
		b.mu.Unlock()
		return nil
	}
	b.faders[addr] = value
	b.mu.Unlock()

	logging.Tracef("surface: fader %d -> channel %d = %d", fader, addr, value)
	return b.controls.SetChannel(addr, value)
}

// Listen feeds messages from the named input port into the bridge until ctx
// is cancelled.
func (b *Bridge) Listen(ctx context.Context, portName string) error {
	port, err := FindInPort(portName)
	if err != nil {
		return err
	}
	logging.Infof("surface: listening on %s", port)

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if err := b.Handle(msg); err != nil {
			logging.Warnf("surface: %s: %v", msg, err)
		}
	})
	if err != nil {
		return fmt.Errorf("listen %s: %w", port, err)
	}
	defer stop()

	<-ctx.Done()
	return nil
}

// FindInPort returns the first input port whose name contains substr.
func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", substr)
}

// InPorts lists the available input port names.
func InPorts() []string {
	var names []string
	for _, p := range midi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}
