package repository

import (
	"context"
	"time"

	"autotrader/internal/models"
	"autotrader/internal/profile"
)

// Repository is the persistence collaborator: profile snapshots per family,
// the auxiliary watchlists, and the dispatch log. Profile documents cross
// this boundary as domain values; the gorm implementation owns the row shape.
type Repository interface {
	// Snapshot port backing the profile store.
	LoadProfiles(ctx context.Context, family profile.Family) ([]profile.Profile, error)
	SaveProfiles(ctx context.Context, family profile.Family, items []profile.Profile) error
	LoadWatchlists(ctx context.Context) ([]profile.Watchlist, error)
	SaveWatchlists(ctx context.Context, items []profile.Watchlist) error

	// Dispatch log.
	InsertDispatch(ctx context.Context, item *models.DispatchRecord) error
	SettleDispatch(ctx context.Context, id string, status string, errMsg string, txRef string, settledAt time.Time) error
	ListDispatches(ctx context.Context, params ListDispatchesParams) ([]models.DispatchRecord, error)
	CountDispatches(ctx context.Context, params ListDispatchesParams) (int64, error)
	PruneDispatches(ctx context.Context, before time.Time) (int64, error)
}

type ListDispatchesParams struct {
	Limit     int
	Offset    int
	ProfileID *string
	Family    *string
	Status    *string
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}
