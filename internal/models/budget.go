package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly spending target tracked against the user's default account.
type Budget struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
}
