package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"nextfinance/internal/models"
	"nextfinance/internal/recurrence"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// Dec parses a decimal literal, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a current account with zero balance. The user's
// first account is made the default.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, "0")
}

// CreateTestAccountWithBalance creates a current account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID, balance string) *models.Account {
	t.Helper()

	var existing int64
	if err := db.Model(&models.Account{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		t.Fatalf("failed to count accounts: %v", err)
	}

	account := &models.Account{
		UserID:    userID,
		Name:      fmt.Sprintf("Test Account %d", nextID()),
		Type:      models.AccountTypeCurrent,
		Balance:   Dec(balance),
		IsDefault: existing == 0,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestTransaction inserts a completed transaction dated now. The
// account balance is not touched.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()
	return CreateTestTransactionAt(t, db, userID, accountID, txType, amount, time.Now().UTC())
}

// CreateTestTransactionAt inserts a completed transaction on date.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	category := "other-expense"
	if txType == models.TransactionTypeIncome {
		category = "salary"
	}
	tx := &models.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		Type:        txType,
		Amount:      Dec(amount),
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
		Category:    category,
		Status:      models.TransactionStatusCompleted,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringTransaction inserts a recurring template whose next
// occurrence is due on next.
func CreateTestRecurringTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount string, interval recurrence.Interval, next time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:            userID,
		AccountID:         accountID,
		Type:              txType,
		Amount:            Dec(amount),
		Description:       fmt.Sprintf("Subscription %d", nextID()),
		Date:              next.AddDate(0, -1, 0),
		Category:          "utilities",
		IsRecurring:       true,
		RecurringInterval: interval,
		NextRecurringDate: &next,
		Status:            models.TransactionStatusCompleted,
	}
	if txType == models.TransactionTypeIncome {
		tx.Category = "salary"
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create recurring transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates the user's monthly budget.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, amount string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID: userID,
		Amount: Dec(amount),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// ReloadBudget re-reads a budget from the database.
func ReloadBudget(t *testing.T, db *gorm.DB, id string) *models.Budget {
	t.Helper()

	var budget models.Budget
	if err := db.First(&budget, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	return &budget
}

// ReloadAccount re-reads an account from the database.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", id, err)
	}
	return &account
}

// CountTransactions returns the number of live transactions on an account.
func CountTransactions(t *testing.T, db *gorm.DB, accountID string) int64 {
	t.Helper()

	var n int64
	if err := db.Model(&models.Transaction{}).Where("account_id = ?", accountID).Count(&n).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
