package usecase

import (
	"context"
	"fmt"

	"dmxctl/internal/core"
	"dmxctl/internal/domain"
	"dmxctl/internal/logging"
)

// ShowEditorUseCase converts stored shows to editable beat plans and back.
// None of it touches the control socket.
type ShowEditorUseCase interface {
	// Plan projects a stored show onto a beat grid.
	Plan(ctx context.Context, showID string) (domain.BeatPlan, error)
	// Export writes the projected plan of showID to path.
	Export(ctx context.Context, showID, path string) (domain.BeatPlan, error)
	// Compile loads the plan at path and expands it into a show.
	Compile(path string) (domain.Show, error)
	ListShows(ctx context.Context) ([]domain.Show, error)
	ListInterfaces(ctx context.Context) ([]string, error)
}

type showEditorInteractor struct {
	source domain.ShowSource
	plans  domain.PlanRepository
	view   core.View
}

// NewShowEditorUseCase wires the editor. view may be nil; when set, shows in
// the live catalog are used without a REST round trip.
func NewShowEditorUseCase(source domain.ShowSource, plans domain.PlanRepository, view core.View) ShowEditorUseCase {
	return &showEditorInteractor{source: source, plans: plans, view: view}
}

func (e *showEditorInteractor) show(ctx context.Context, showID string) (domain.Show, error) {
	if showID == "" {
		return domain.Show{}, domain.ErrMissingID
	}
	if e.view != nil {
		if cat := e.view.Snapshot().Catalog; cat != nil {
			if s, ok := cat.Show(showID); ok {
				return s, nil
			}
		}
	}
	if e.source == nil {
		return domain.Show{}, domain.ErrUnknownShow
	}
	return e.source.GetShow(ctx, showID)
}

func (e *showEditorInteractor) Plan(ctx context.Context, showID string) (domain.BeatPlan, error) {
	s, err := e.show(ctx, showID)
	if err != nil {
		return domain.BeatPlan{}, err
	}
	plan := domain.ProjectBeatPlan(s)
	if plan.Degenerate() {
		logging.Warnf("show %s: step delays share no common beat, using 1 ms beats", showID)
	}
	return plan, nil
}

func (e *showEditorInteractor) Export(ctx context.Context, showID, path string) (domain.BeatPlan, error) {
	plan, err := e.Plan(ctx, showID)
	if err != nil {
		return domain.BeatPlan{}, err
	}
	if err := e.plans.Save(path, plan); err != nil {
		return domain.BeatPlan{}, err
	}
	return plan, nil
}

func (e *showEditorInteractor) Compile(path string) (domain.Show, error) {
	plan, err := e.plans.Load(path)
	if err != nil {
		return domain.Show{}, err
	}
	show, err := domain.CompileShow(plan.ShowID, plan.Name, plan)
	if err != nil {
		return domain.Show{}, fmt.Errorf("compile %s: %w", path, err)
	}
	return show, nil
}

func (e *showEditorInteractor) ListShows(ctx context.Context) ([]domain.Show, error) {
	if e.source == nil {
		return nil, domain.ErrCatalogUnavailable
	}
	return e.source.ListShows(ctx)
}

func (e *showEditorInteractor) ListInterfaces(ctx context.Context) ([]string, error) {
	if e.source == nil {
		return nil, domain.ErrCatalogUnavailable
	}
	return e.source.ListInterfaces(ctx)
}
