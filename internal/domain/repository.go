package domain

import (
	"context"
	"errors"
)

// ErrShowNotFound is returned by a ShowSource for an unknown show id.
var ErrShowNotFound = errors.New("show not found")

// PlanRepository persists beat plans edited offline.
// This is a secondary port.
type PlanRepository interface {
	Load(path string) (BeatPlan, error)
	Save(path string, plan BeatPlan) error
}

// ShowSource reads stored shows and hardware info from the controller.
// This is a secondary port.
type ShowSource interface {
	ListShows(ctx context.Context) ([]Show, error)
	GetShow(ctx context.Context, id string) (Show, error)
	ListInterfaces(ctx context.Context) ([]string, error)
}
