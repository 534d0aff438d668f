package domain

import "fmt"

// DefaultBeatDurationMs is used when a show has no steps to infer a beat from.
const DefaultBeatDurationMs = 1000

// BeatStep is one authored step: a preset held for a whole number of beats.
type BeatStep struct {
	PresetID string `json:"preset_id"`
	Beats    int    `json:"beats"`
	FadeMs   int    `json:"fade_ms"`
}

// BeatPlan is the editing form of a show. It is never sent to the controller.
type BeatPlan struct {
	ShowID         string     `json:"show_id,omitempty"`
	Name           string     `json:"name,omitempty"`
	BeatDurationMs int        `json:"beat_duration_ms"`
	Steps          []BeatStep `json:"steps"`
}

// Validate checks the plan invariants. The show name is checked by CompileShow.
func (p BeatPlan) Validate() error {
	if p.BeatDurationMs <= 0 {
		return ErrInvalidBeatDuration
	}
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	for i, st := range p.Steps {
		if st.PresetID == "" {
			return fmt.Errorf("step %d: %w", i+1, ErrMissingID)
		}
		if st.Beats < 1 {
			return fmt.Errorf("step %d: %w", i+1, ErrInvalidBeats)
		}
		if st.FadeMs < 0 {
			return fmt.Errorf("step %d: %w", i+1, ErrInvalidFade)
		}
	}
	return nil
}

// Degenerate reports a plan whose inferred beat collapsed to 1 ms, which
// happens when the stored delays share no common unit (e.g. 999 and 500).
// Such plans still round-trip exactly, the beat grid just stops meaning much.
func (p BeatPlan) Degenerate() bool {
	return p.BeatDurationMs == 1 && len(p.Steps) > 1
}

// GCD is Euclid's algorithm on non-negative integers; GCD(a, 0) == a.
func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// InferBeatDuration returns the GCD of all step delays.
func InferBeatDuration(steps []ShowStep) int {
	g := 0
	for _, st := range steps {
		g = GCD(g, st.DelayMs)
	}
	if g == 0 {
		return DefaultBeatDurationMs
	}
	return g
}

// DelayForBeats converts an authored beat count into a persisted delay.
func DelayForBeats(beats, beatMs int) int {
	return beats * beatMs
}

// BeatsForDelay converts a persisted delay back to beats, rounding half up.
func BeatsForDelay(delayMs, beatMs int) int {
	if beatMs <= 0 {
		return 0
	}
	return (delayMs + beatMs/2) / beatMs
}

// CompileShow expands a beat plan into the flat step list the controller runs.
func CompileShow(id, name string, plan BeatPlan) (Show, error) {
	if name == "" {
		return Show{}, ErrMissingName
	}
	if err := plan.Validate(); err != nil {
		return Show{}, err
	}
	show := Show{ID: id, Name: name, Steps: make([]ShowStep, len(plan.Steps))}
	for i, st := range plan.Steps {
		show.Steps[i] = ShowStep{
			PresetID: st.PresetID,
			DelayMs:  DelayForBeats(st.Beats, plan.BeatDurationMs),
			FadeMs:   st.FadeMs,
		}
	}
	return show, nil
}

// ProjectBeatPlan is the inverse of CompileShow, used when a stored show is
// loaded for editing.
func ProjectBeatPlan(show Show) BeatPlan {
	beat := InferBeatDuration(show.Steps)
	plan := BeatPlan{
		ShowID:         show.ID,
		Name:           show.Name,
		BeatDurationMs: beat,
		Steps:          make([]BeatStep, len(show.Steps)),
	}
	for i, st := range show.Steps {
		plan.Steps[i] = BeatStep{
			PresetID: st.PresetID,
			Beats:    BeatsForDelay(st.DelayMs, beat),
			FadeMs:   st.FadeMs,
		}
	}
	return plan
}
