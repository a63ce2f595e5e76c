package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Dispatch statuses.
const (
	DispatchStatusSent   = "sent"
	DispatchStatusFilled = "filled"
	DispatchStatusFailed = "failed"
)

// DispatchRecord logs one emitted dispatch request and, once the execution
// collaborator reports back, its outcome. Failures never roll back the
// profile's cooldown bookkeeping.
type DispatchRecord struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	ProfileID string `gorm:"type:varchar(64);not null;index"`
	Family    string `gorm:"type:varchar(20);not null;index"`
	ActionID  string `gorm:"type:varchar(64);not null"`

	Mint      string          `gorm:"type:varchar(100);index"`
	Direction string          `gorm:"type:varchar(10);not null"`
	AmountSOL decimal.Decimal `gorm:"type:numeric(30,12);not null"`

	SlippageBps   int            `gorm:"not null;default:0"`
	Priority      int            `gorm:"not null;default:0"`
	TargetWallets datatypes.JSON `gorm:"type:jsonb"`

	Status string `gorm:"type:varchar(20);not null;index;default:'sent'"`
	Error  string `gorm:"type:text"`
	TxRef  string `gorm:"type:varchar(120)"`

	RequestedAt time.Time  `gorm:"type:timestamptz;not null;index"`
	SettledAt   *time.Time `gorm:"type:timestamptz"`
}

func (DispatchRecord) TableName() string {
	return "dispatches"
}
