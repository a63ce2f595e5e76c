package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileRow persists one trigger profile. The condition/action document is
// stored as an opaque JSON blob; Position preserves store-insertion order,
// which is also evaluation order.
type ProfileRow struct {
	ID     string `gorm:"type:varchar(64);primaryKey"`
	Family string `gorm:"type:varchar(20);not null;index"`
	Name   string `gorm:"type:varchar(100);not null"`
	Active bool   `gorm:"not null;default:false;index"`

	Position int            `gorm:"not null;index"`
	Doc      datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ProfileRow) TableName() string {
	return "trigger_profiles"
}
