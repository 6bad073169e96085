package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// Account is a user-owned ledger with a running balance. Balance is only
// changed together with the transaction that causes the change.
type Account struct {
	Base
	UserID    string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string          `gorm:"not null" json:"name"`
	Type      AccountType     `gorm:"not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`
	IsDefault bool            `gorm:"not null;default:false" json:"is_default"`

	// Populated by list queries, not stored.
	TransactionCount int64 `gorm:"-" json:"transaction_count"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}

// Apply adds the signed effect of a transaction to the in-memory balance.
func (a *Account) Apply(t TransactionType, amount decimal.Decimal) {
	a.Balance = a.Balance.Add(SignedAmount(t, amount))
}

// Revert removes the signed effect of a transaction from the in-memory balance.
func (a *Account) Revert(t TransactionType, amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(SignedAmount(t, amount))
}
