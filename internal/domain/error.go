package domain

import "errors"

var (
	// ErrInvalidAddress indicates a DMX address outside 1-512.
	ErrInvalidAddress = errors.New("dmx address must be between 1 and 512")

	// ErrInvalidValue indicates a channel value outside 0-255.
	ErrInvalidValue = errors.New("channel value must be between 0 and 255")

	// ErrMissingID indicates an empty preset or show id.
	ErrMissingID = errors.New("id is required")

	// ErrMissingName indicates a show without a name.
	ErrMissingName = errors.New("name is required")

	// ErrNoSteps indicates a show or beat plan without steps.
	ErrNoSteps = errors.New("at least one step is required")

	ErrInvalidDelay        = errors.New("step delay must be > 0 ms")
	ErrInvalidFade         = errors.New("step fade must be >= 0 ms")
	ErrInvalidBeats        = errors.New("step beats must be >= 1")
	ErrInvalidBeatDuration = errors.New("beat duration must be > 0 ms")

	// ErrUnknownPreset indicates a preset id absent from the current catalog.
	ErrUnknownPreset = errors.New("preset not found in project")

	// ErrUnknownShow indicates a show id absent from the current catalog.
	ErrUnknownShow = errors.New("show not found in project")

	// ErrCatalogUnavailable indicates no project_config has arrived on this connection yet.
	ErrCatalogUnavailable = errors.New("project catalog not received yet")
)
