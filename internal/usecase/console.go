package usecase

import (
	"dmxctl/internal/core"
	"dmxctl/internal/domain"
)

// Session is the secondary port onto the live controller session.
type Session interface {
	core.View
	ApplyPreset(presetID string) error
	RunShow(showID string, loop bool) error
	StopShow() error
	UpdateChannel(address, value int) error
	Blackout() error
	RequestState() error
	RequestProjectConfig() error
	RequestStatus() error
	StartMonitoring() error
	StopMonitoring() error
}

// ConsoleUseCase is the primary port for live operation.
// Every control surface (CLI, shell, HTTP, MIDI) goes through it.
type ConsoleUseCase interface {
	Snapshot() core.State
	Subscribe() (<-chan core.Change, func())

	ApplyPreset(presetID string) error
	RunShow(showID string, loop bool) error
	// ToggleShow stops showID when it is the active show, else runs it looping.
	ToggleShow(showID string) (started bool, err error)
	StopShow() error
	SetChannel(address, value int) error
	Blackout() error

	Presets() ([]domain.Preset, error)
	Shows() ([]domain.Show, error)

	Refresh() error
	RequestStatus() error
	SetMonitoring(on bool) error
}

// consoleInteractor implements ConsoleUseCase.
// It validates commands against the catalog the controller last sent.
type consoleInteractor struct {
	session Session
}

// NewConsoleUseCase creates a console over a running session.
func NewConsoleUseCase(session Session) ConsoleUseCase {
	return &consoleInteractor{session: session}
}

func (c *consoleInteractor) Snapshot() core.State { return c.session.Snapshot() }

func (c *consoleInteractor) Subscribe() (<-chan core.Change, func()) { return c.session.Subscribe() }

func (c *consoleInteractor) catalog() (*domain.ProjectConfig, error) {
	st := c.session.Snapshot()
	if st.Catalog == nil {
		return nil, domain.ErrCatalogUnavailable
	}
	return st.Catalog, nil
}

// ApplyPreset sends only when presetID is in the current catalog.
func (c *consoleInteractor) ApplyPreset(presetID string) error {
	if presetID == "" {
		return domain.ErrMissingID
	}
	cat, err := c.catalog()
	if err != nil {
		return err
	}
	if _, ok := cat.Preset(presetID); !ok {
		return domain.ErrUnknownPreset
	}
	return c.session.ApplyPreset(presetID)
}

func (c *consoleInteractor) RunShow(showID string, loop bool) error {
	if showID == "" {
		return domain.ErrMissingID
	}
	cat, err := c.catalog()
	if err != nil {
		return err
	}
	if _, ok := cat.Show(showID); !ok {
		return domain.ErrUnknownShow
	}
	return c.session.RunShow(showID, loop)
}

func (c *consoleInteractor) ToggleShow(showID string) (bool, error) {
	if showID != "" && c.session.Snapshot().ActiveShowID() == showID {
		return false, c.session.StopShow()
	}
	if err := c.RunShow(showID, true); err != nil {
		return false, err
	}
	return true, nil
}

func (c *consoleInteractor) StopShow() error { return c.session.StopShow() }

func (c *consoleInteractor) SetChannel(address, value int) error {
	return c.session.UpdateChannel(address, value)
}

func (c *consoleInteractor) Blackout() error { return c.session.Blackout() }

func (c *consoleInteractor) Presets() ([]domain.Preset, error) {
	cat, err := c.catalog()
	if err != nil {
		return nil, err
	}
	return cat.Presets, nil
}

func (c *consoleInteractor) Shows() ([]domain.Show, error) {
	cat, err := c.catalog()
	if err != nil {
		return nil, err
	}
	return cat.Shows, nil
}

// Refresh asks the controller to resend its catalog and snapshot.
func (c *consoleInteractor) Refresh() error {
	if err := c.session.RequestProjectConfig(); err != nil {
		return err
	}
	return c.session.RequestState()
}

func (c *consoleInteractor) RequestStatus() error { return c.session.RequestStatus() }

func (c *consoleInteractor) SetMonitoring(on bool) error {
	if on {
		return c.session.StartMonitoring()
	}
	return c.session.StopMonitoring()
}
