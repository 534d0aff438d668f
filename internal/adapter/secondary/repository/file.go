package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"dmxctl/internal/domain"
)

// FilePlanRepository implements domain.PlanRepository using YAML files.
// This is a secondary adapter.
type FilePlanRepository struct {
	mu            sync.Mutex
	defaultBeatMs int
}

// NewFilePlanRepository creates a YAML backed plan repository. Plans that omit
// beat_duration_ms get defaultBeatMs; zero means the field is required.
func NewFilePlanRepository(defaultBeatMs int) domain.PlanRepository {
	return &FilePlanRepository{defaultBeatMs: defaultBeatMs}
}

// persistedPlan is the YAML structure on disk.
type persistedPlan struct {
	ShowID         string          `yaml:"show_id,omitempty"`
	Name           string          `yaml:"name"`
	BeatDurationMs *int            `yaml:"beat_duration_ms,omitempty"`
	Steps          []persistedStep `yaml:"steps"`
}

type persistedStep struct {
	Preset string `yaml:"preset"`
	Beats  int    `yaml:"beats"`
	FadeMs int    `yaml:"fade_ms,omitempty"`
}

// Load reads and validates a plan file.
func (f *FilePlanRepository) Load(path string) (domain.BeatPlan, error) {
	if path == "" {
		return domain.BeatPlan{}, errors.New("path is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.BeatPlan{}, fmt.Errorf("read plan: %w", err)
	}

	var persisted persistedPlan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&persisted); err != nil {
		return domain.BeatPlan{}, fmt.Errorf("unmarshal plan: %w", err)
	}

	plan := domain.BeatPlan{
		ShowID:         persisted.ShowID,
		Name:           persisted.Name,
		BeatDurationMs: f.defaultBeatMs,
		Steps:          make([]domain.BeatStep, len(persisted.Steps)),
	}
	if persisted.BeatDurationMs != nil {
		plan.BeatDurationMs = *persisted.BeatDurationMs
	}
	for i, st := range persisted.Steps {
		plan.Steps[i] = domain.BeatStep{PresetID: st.Preset, Beats: st.Beats, FadeMs: st.FadeMs}
	}
	if err := plan.Validate(); err != nil {
		return domain.BeatPlan{}, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// Save writes the plan atomically.
func (f *FilePlanRepository) Save(path string, plan domain.BeatPlan) error {
	if path == "" {
		return errors.New("path is required")
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plan dir: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := EncodePlan(&buf, plan); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// EncodePlan writes plan in the on-disk YAML layout.
func EncodePlan(w io.Writer, plan domain.BeatPlan) error {
	persisted := persistedPlan{
		ShowID:         plan.ShowID,
		Name:           plan.Name,
		BeatDurationMs: &plan.BeatDurationMs,
		Steps:          make([]persistedStep, len(plan.Steps)),
	}
	for i, st := range plan.Steps {
		persisted.Steps[i] = persistedStep{Preset: st.PresetID, Beats: st.Beats, FadeMs: st.FadeMs}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(persisted); err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	return nil
}
