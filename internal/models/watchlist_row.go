package models

import (
	"time"

	"gorm.io/datatypes"
)

// WatchlistRow persists one named auxiliary address list.
type WatchlistRow struct {
	ID        string         `gorm:"type:varchar(64);primaryKey"`
	Name      string         `gorm:"type:varchar(100);not null"`
	Addresses datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WatchlistRow) TableName() string {
	return "watchlists"
}
