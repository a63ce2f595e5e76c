package gormrepository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"autotrader/internal/models"
	"autotrader/internal/profile"
	"autotrader/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

// --- profile snapshots ------------------------------------------------------

func (s *Store) LoadProfiles(ctx context.Context, family profile.Family) ([]profile.Profile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.ProfileRow
	if err := s.db.WithContext(ctx).
		Model(&models.ProfileRow{}).
		Where("family = ?", string(family)).
		Order("position asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		var p profile.Profile
		if err := json.Unmarshal(row.Doc, &p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

// SaveProfiles replaces the family's rows wholesale inside one transaction.
// The store owns ordering; Position records it.
func (s *Store) SaveProfiles(ctx context.Context, family profile.Family, items []profile.Profile) error {
	if s == nil || s.db == nil {
		return nil
	}
	rows := make([]models.ProfileRow, 0, len(items))
	for i, p := range items {
		doc, err := json.Marshal(p)
		if err != nil {
			return err
		}
		rows = append(rows, models.ProfileRow{
			ID:        p.ID,
			Family:    string(family),
			Name:      p.Name,
			Active:    p.Active,
			Position:  i,
			Doc:       datatypes.JSON(doc),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("family = ?", string(family)).Delete(&models.ProfileRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (s *Store) LoadWatchlists(ctx context.Context) ([]profile.Watchlist, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.WatchlistRow
	if err := s.db.WithContext(ctx).
		Model(&models.WatchlistRow{}).
		Order("name asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]profile.Watchlist, 0, len(rows))
	for _, row := range rows {
		var addrs []string
		if err := json.Unmarshal(row.Addresses, &addrs); err != nil {
			return nil, err
		}
		items = append(items, profile.Watchlist{ID: row.ID, Name: row.Name, Addresses: addrs})
	}
	return items, nil
}

func (s *Store) SaveWatchlists(ctx context.Context, items []profile.Watchlist) error {
	if s == nil || s.db == nil {
		return nil
	}
	rows := make([]models.WatchlistRow, 0, len(items))
	for _, w := range items {
		raw, err := json.Marshal(w.Addresses)
		if err != nil {
			return err
		}
		rows = append(rows, models.WatchlistRow{
			ID:        w.ID,
			Name:      w.Name,
			Addresses: datatypes.JSON(raw),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.WatchlistRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// --- dispatch log -----------------------------------------------------------

func (s *Store) InsertDispatch(ctx context.Context, item *models.DispatchRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SettleDispatch(ctx context.Context, id string, status string, errMsg string, txRef string, settledAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":     status,
		"error":      errMsg,
		"tx_ref":     txRef,
		"settled_at": settledAt,
	}
	return s.db.WithContext(ctx).
		Model(&models.DispatchRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) ListDispatches(ctx context.Context, params repository.ListDispatchesParams) ([]models.DispatchRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyDispatchFilters(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "requested_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.DispatchRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountDispatches(ctx context.Context, params repository.ListDispatchesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.applyDispatchFilters(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) PruneDispatches(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("requested_at < ?", before).
		Delete(&models.DispatchRecord{})
	return res.RowsAffected, res.Error
}

func (s *Store) applyDispatchFilters(ctx context.Context, params repository.ListDispatchesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.DispatchRecord{})
	if params.ProfileID != nil && strings.TrimSpace(*params.ProfileID) != "" {
		query = query.Where("profile_id = ?", strings.TrimSpace(*params.ProfileID))
	}
	if params.Family != nil && strings.TrimSpace(*params.Family) != "" {
		query = query.Where("family = ?", strings.TrimSpace(*params.Family))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("requested_at >= ?", *params.Since)
	}
	return query
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
