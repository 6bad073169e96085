package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"nextfinance/internal/cache"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/logger"
	"nextfinance/internal/models"
	"nextfinance/internal/pagination"
	"nextfinance/internal/recurrence"
)

// DefaultTransactionPageSize is the page size of an account's transaction table.
const DefaultTransactionPageSize = 15

// transactionService handles transaction-related business logic.
type transactionService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewTransactionService creates a new TransactionServicer. c may be nil.
func NewTransactionService(db *gorm.DB, c *cache.Cache) TransactionServicer {
	return &transactionService{db: db, cache: c}
}

func validateTransactionInput(input TransactionInput) error {
	if input.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return apperrors.ErrInvalidTransactionType
	}
	if err := validatePositiveAmount(input.Amount, "amount"); err != nil {
		return err
	}
	if _, ok := models.FindCategory(input.Category); !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown category")
	}
	if input.IsRecurring && input.RecurringInterval != "" && !input.RecurringInterval.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown recurring interval")
	}
	return nil
}

// applyInput copies the caller-supplied fields onto t and derives the next
// recurring date.
func applyInput(t *models.Transaction, input TransactionInput) {
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	t.AccountID = input.AccountID
	t.Type = input.Type
	t.Amount = input.Amount
	t.Description = input.Description
	t.Date = date
	t.Category = input.Category
	t.ReceiptURL = input.ReceiptURL
	t.IsRecurring = input.IsRecurring
	t.RecurringInterval = ""
	t.NextRecurringDate = nil

	if input.IsRecurring && input.RecurringInterval != "" {
		next := recurrence.Next(date, input.RecurringInterval)
		t.RecurringInterval = input.RecurringInterval
		t.NextRecurringDate = &next
	}
}

// CreateTransaction records a transaction and moves its account balance by
// the signed amount. The insert and the balance write commit together or not
// at all.
func (s *transactionService) CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Select("id").Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account, err := s.findOwnedAccount(s.db, userID, input.AccountID)
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID: userID,
		Status: models.TransactionStatusCompleted,
	}
	applyInput(transaction, input)
	newBalance := account.Balance.Add(transaction.Signed())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", newBalance).Error
	})
	if err != nil {
		logger.Get().Errorw("transaction commit failed",
			"user_id", userID,
			"account_id", account.ID,
			"error", err,
		)
		return nil, apperrors.Wrap(apperrors.ErrCommitFailed, err)
	}

	s.cache.InvalidateUser(userID)
	return transaction, nil
}

// findOwnedAccount loads an account and checks that it belongs to userID.
// A missing account and a foreign account are reported differently.
func (s *transactionService) findOwnedAccount(db *gorm.DB, userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if account.UserID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrUnauthorized, "account does not belong to the caller")
	}
	return &account, nil
}

// GetAccountTransactions retrieves a paginated, filtered and sorted list of
// transactions for one of the user's accounts.
func (s *transactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter, sort TransactionSort) (*pagination.PageResponse[models.Transaction], error) {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("id = ? AND user_id = ?", accountID, userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrAccountNotFound
	}

	page.DefaultsTo(DefaultTransactionPageSize)

	base := s.db.Model(&models.Transaction{}).Where("user_id = ? AND account_id = ?", userID, accountID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order(orderClause(sort)).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Search != "" {
		q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Recurring != nil {
		q = q.Where("is_recurring = ?", *f.Recurring)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

// orderClause maps a sort request onto a whitelisted ORDER BY clause.
func orderClause(sort TransactionSort) string {
	column := "date"
	switch sort.Field {
	case "amount", "category":
		column = sort.Field
	}
	direction := "DESC"
	if sort.Direction == "asc" {
		direction = "ASC"
	}
	return column + " " + direction
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	return findTransaction(s.db, userID, transactionID)
}

func findTransaction(db *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction replaces a transaction's fields. The old amount is taken
// off its account and the new amount applied to the (possibly different)
// target account in the same database transaction.
func (s *transactionService) UpdateTransaction(userID, transactionID string, input TransactionInput) (*models.Transaction, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, err
	}

	var updated *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := findTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		oldAccount, err := s.findOwnedAccount(tx, userID, transaction.AccountID)
		if err != nil {
			return err
		}
		oldAccount.Revert(transaction.Type, transaction.Amount)

		newAccount := oldAccount
		if input.AccountID != oldAccount.ID {
			newAccount, err = s.findOwnedAccount(tx, userID, input.AccountID)
			if err != nil {
				return err
			}
		}

		if input.Date.IsZero() {
			input.Date = transaction.Date
		}
		prev := *transaction
		applyInput(transaction, input)
		transaction.NextRecurringDate = carrySchedule(&prev, transaction)
		newAccount.Apply(transaction.Type, transaction.Amount)

		if err := tx.Save(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrCommitFailed, err)
		}
		if err := writeBalance(tx, oldAccount); err != nil {
			return err
		}
		if newAccount != oldAccount {
			if err := writeBalance(tx, newAccount); err != nil {
				return err
			}
		}

		updated = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(userID)
	return updated, nil
}

// carrySchedule decides the next recurring date of an edited transaction.
// An unchanged anchor and interval keep the stored schedule. Otherwise the
// fresh projection is moved past the last processing run so occurrences that
// were already materialised are not created again.
func carrySchedule(prev, updated *models.Transaction) *time.Time {
	if !updated.IsRecurring || updated.NextRecurringDate == nil {
		return updated.NextRecurringDate
	}
	if prev.IsRecurring && prev.NextRecurringDate != nil &&
		prev.RecurringInterval == updated.RecurringInterval && prev.Date.Equal(updated.Date) {
		next := *prev.NextRecurringDate
		return &next
	}
	if prev.LastProcessed != nil {
		next := recurrence.NextAfter(updated.Date, updated.RecurringInterval, *prev.LastProcessed)
		return &next
	}
	return updated.NextRecurringDate
}

func writeBalance(tx *gorm.DB, account *models.Account) error {
	if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", account.Balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrCommitFailed, err)
	}
	return nil
}

// DeleteTransaction deletes a transaction and reverses its balance effect.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := findTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		account, err := s.findOwnedAccount(tx, userID, transaction.AccountID)
		if err != nil {
			return err
		}

		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrCommitFailed, err)
		}
		account.Revert(transaction.Type, transaction.Amount)
		return writeBalance(tx, account)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateUser(userID)
	return nil
}

// BulkDeleteTransactions deletes the caller's transactions among ids and
// reverses their combined effect on each affected account. IDs that do not
// exist or belong to someone else are ignored. Returns the number deleted.
func (s *transactionService) BulkDeleteTransactions(userID string, transactionIDs []string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one transaction ID is required")
	}

	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var transactions []models.Transaction
		if err := tx.Where("id IN ? AND user_id = ?", transactionIDs, userID).Find(&transactions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(transactions) == 0 {
			return nil
		}

		accounts := make(map[string]*models.Account)
		ids := make([]string, len(transactions))
		for i := range transactions {
			t := &transactions[i]
			ids[i] = t.ID

			account, ok := accounts[t.AccountID]
			if !ok {
				var err error
				account, err = s.findOwnedAccount(tx, userID, t.AccountID)
				if err != nil {
					return err
				}
				accounts[t.AccountID] = account
			}
			account.Revert(t.Type, t.Amount)
		}

		result := tx.Where("id IN ?", ids).Delete(&models.Transaction{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrCommitFailed, result.Error)
		}
		deleted = result.RowsAffected

		for _, account := range accounts {
			if err := writeBalance(tx, account); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.cache.InvalidateUser(userID)
	}
	return deleted, nil
}
