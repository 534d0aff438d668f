package surface

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"dmxctl/internal/domain"
)

type fakeControls struct {
	presets  []domain.Preset
	applied  []string
	channels [][2]int
	blackout int
}

func (f *fakeControls) Presets() ([]domain.Preset, error) {
	if f.presets == nil {
		return nil, domain.ErrCatalogUnavailable
	}
	return f.presets, nil
}

func (f *fakeControls) ApplyPreset(id string) error {
	f.applied = append(f.applied, id)
	return nil
}

func (f *fakeControls) SetChannel(address, value int) error {
	f.channels = append(f.channels, [2]int{address, value})
	return nil
}

func (f *fakeControls) Blackout() error {
	f.blackout++
	return nil
}

func setupTest(t *testing.T, base int) (*fakeControls, *Bridge) {
	t.Helper()
	fc := &fakeControls{presets: []domain.Preset{{ID: "warm"}, {ID: "cool"}}}
	return fc, NewBridge(fc, base)
}

func TestScaleFader(t *testing.T) {
	tests := []struct {
		in   uint8
		want int
	}{
		{0, 0},
		{127, 255},
		{64, 128},
		{1, 2},
	}
	for _, tt := range tests {
		if got := ScaleFader(tt.in); got != tt.want {
			t.Errorf("ScaleFader(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFaderSetsChannel(t *testing.T) {
	fc, b := setupTest(t, 10)
	if err := b.Handle(midi.ControlChange(0, CCFaderFirst+2, 127)); err != nil {
		t.Fatal(err)
	}
	// Same value again is not resent.
	if err := b.Handle(midi.ControlChange(0, CCFaderFirst+2, 127)); err != nil {
		t.Fatal(err)
	}
	if err := b.Handle(midi.ControlChange(0, CCFaderFirst+2, 0)); err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{12, 255}, {12, 0}}
	if len(fc.channels) != len(want) {
		t.Fatalf("got %v, want %v", fc.channels, want)
	}
	for i := range want {
		if fc.channels[i] != want[i] {
			t.Errorf("got %v, want %v", fc.channels[i], want[i])
		}
	}
}

func TestFaderPastLastAddressIgnored(t *testing.T) {
	fc, b := setupTest(t, 510)
	if err := b.Handle(midi.ControlChange(0, CCFaderLast, 100)); err != nil {
		t.Fatal(err)
	}
	if len(fc.channels) != 0 {
		t.Errorf("got %v, want none", fc.channels)
	}
}

func TestButtonsApplyPresetsInCatalogOrder(t *testing.T) {
	fc, b := setupTest(t, 1)
	for _, key := range []uint8{1, 0, 5} {
		if err := b.Handle(midi.NoteOn(0, key, 100)); err != nil {
			t.Fatal(err)
		}
	}
	// Release does nothing.
	if err := b.Handle(midi.NoteOn(0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if len(fc.applied) != 2 || fc.applied[0] != "cool" || fc.applied[1] != "warm" {
		t.Errorf("got %q", fc.applied)
	}
}

func TestButtonWithoutCatalog(t *testing.T) {
	fc, b := setupTest(t, 1)
	fc.presets = nil
	err := b.Handle(midi.NoteOn(0, 0, 100))
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("got %v, want %v", err, domain.ErrCatalogUnavailable)
	}
}

func TestFootSwitchBlackout(t *testing.T) {
	fc, b := setupTest(t, 1)
	_ = b.Handle(midi.ControlChange(0, CCFootSwitch, 127))
	_ = b.Handle(midi.ControlChange(0, CCFootSwitch, 0))
	if fc.blackout != 1 {
		t.Errorf("got %d blackouts, want 1", fc.blackout)
	}
}
