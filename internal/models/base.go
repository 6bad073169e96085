package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nextfinance/internal/uuid"
)

func init() {
	// Money crosses the API boundary as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All returns every persisted model, in dependency order, for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Account{},
		&Transaction{},
		&Budget{},
		&AuditLog{},
	}
}
