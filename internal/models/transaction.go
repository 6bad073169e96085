package models

import (
	"time"

	"github.com/shopspring/decimal"

	"nextfinance/internal/recurrence"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus tracks whether a transaction has settled.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction represents a single balance-affecting event on an account.
// Recurring transactions also act as the template for their future occurrences.
type Transaction struct {
	Base
	UserID            string              `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID         string              `gorm:"type:uuid;not null;index" json:"account_id"`
	Type              TransactionType     `gorm:"not null" json:"type"`
	Amount            decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"amount"`
	Description       string              `json:"description"`
	Date              time.Time           `gorm:"not null;index" json:"date"`
	Category          string              `gorm:"not null" json:"category"`
	ReceiptURL        string              `json:"receipt_url,omitempty"`
	IsRecurring       bool                `gorm:"not null;default:false" json:"is_recurring"`
	RecurringInterval recurrence.Interval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time          `gorm:"index" json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time          `json:"last_processed,omitempty"`
	Status            TransactionStatus   `gorm:"not null;default:'COMPLETED'" json:"status"`

	// Relationships
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// SignedAmount returns amount as it affects a balance: positive for income,
// negative for expense.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// Signed returns this transaction's effect on its account balance.
func (t *Transaction) Signed() decimal.Decimal {
	return SignedAmount(t.Type, t.Amount)
}
