package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dmxctl/internal/domain"
)

func TestSaveLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans", "intro.yaml")
	repo := NewFilePlanRepository(0)
	plan := domain.BeatPlan{
		ShowID:         "s1",
		Name:           "Intro",
		BeatDurationMs: 500,
		Steps: []domain.BeatStep{
			{PresetID: "warm", Beats: 2, FadeMs: 100},
			{PresetID: "cool", Beats: 1},
			{PresetID: "red", Beats: 4},
		},
	}
	if err := repo.Save(path, plan); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "beat_duration_ms: 500") {
		t.Errorf("unexpected file contents:\n%s", data)
	}

	got, err := repo.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BeatDurationMs != 500 || len(got.Steps) != 3 || got.Name != "Intro" {
		t.Fatalf("got %+v", got)
	}
	if got.Steps[0].FadeMs != 100 || got.Steps[2].Beats != 4 {
		t.Errorf("got %+v", got.Steps)
	}
}

func TestLoadHandWrittenPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chase.yaml")
	src := `name: Chase
beat_duration_ms: 250
steps:
  - preset: a
    beats: 1
  - preset: b
    beats: 3
    fade_ms: 50
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	plan, err := NewFilePlanRepository(0).Load(path)
	if err != nil {
		t.Fatal(err)
	}
	show, err := domain.CompileShow("", plan.Name, plan)
	if err != nil {
		t.Fatal(err)
	}
	if show.Steps[1].DelayMs != 750 || show.Steps[1].FadeMs != 50 {
		t.Errorf("got %+v", show.Steps)
	}
}

func TestLoadRejectsInvalidPlans(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"zero beat", "name: x\nbeat_duration_ms: 0\nsteps:\n  - preset: a\n    beats: 1\n", domain.ErrInvalidBeatDuration},
		{"zero beats", "name: x\nbeat_duration_ms: 100\nsteps:\n  - preset: a\n    beats: 0\n", domain.ErrInvalidBeats},
		{"no steps", "name: x\nbeat_duration_ms: 100\nsteps: []\n", domain.ErrNoSteps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.src), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFilePlanRepository(0).Load(path)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	src := "name: x\nbeat_ms: 100\nsteps:\n  - preset: a\n    beats: 1\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFilePlanRepository(0).Load(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadAppliesDefaultBeat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.yaml")
	src := "name: Plain\nsteps:\n  - preset: a\n    beats: 2\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFilePlanRepository(0).Load(path); !errors.Is(err, domain.ErrInvalidBeatDuration) {
		t.Errorf("got %v, want %v", err, domain.ErrInvalidBeatDuration)
	}

	plan, err := NewFilePlanRepository(500).Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if plan.BeatDurationMs != 500 {
		t.Errorf("got %d, want 500", plan.BeatDurationMs)
	}
}
