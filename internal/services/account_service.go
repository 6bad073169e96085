package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nextfinance/internal/cache"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/models"
	"nextfinance/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewAccountService creates a new AccountServicer. c may be nil.
func NewAccountService(db *gorm.DB, c *cache.Cache) AccountServicer {
	return &accountService{db: db, cache: c}
}

// CreateAccount creates an account for a user. A user's first account is
// always the default; asking for a default account demotes the previous one.
// A positive opening balance is recorded as an "Initial balance" income.
func (s *accountService) CreateAccount(userID, name string, accountType models.AccountType, balance decimal.Decimal, isDefault bool) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if accountType != models.AccountTypeCurrent && accountType != models.AccountTypeSavings {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account type must be CURRENT or SAVINGS")
	}
	if balance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial balance cannot be negative")
	}
	if !hasMoneyScale(balance) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial balance must have at most 2 decimal places")
	}

	account := &models.Account{
		UserID:  userID,
		Name:    name,
		Type:    accountType,
		Balance: balance,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Account{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		account.IsDefault = isDefault || existing == 0

		if account.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}

		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if balance.IsPositive() {
			transaction := &models.Transaction{
				UserID:      userID,
				AccountID:   account.ID,
				Type:        models.TransactionTypeIncome,
				Amount:      balance,
				Description: "Initial balance",
				Date:        time.Now().UTC(),
				Category:    "other-income",
				Status:      models.TransactionStatusCompleted,
			}
			if err := tx.Create(transaction).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			account.TransactionCount = 1
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(userID)
	return account, nil
}

func clearDefault(tx *gorm.DB, userID string) error {
	if err := tx.Model(&models.Account{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user, newest
// first, each with its transaction count.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at DESC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := attachTransactionCounts(s.db, accounts); err != nil {
		return nil, err
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// attachTransactionCounts fills TransactionCount for each account.
func attachTransactionCounts(db *gorm.DB, accounts []models.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	ids := make([]string, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
	}

	var rows []struct {
		AccountID string
		Count     int64
	}
	if err := db.Model(&models.Transaction{}).
		Select("account_id, COUNT(*) AS count").
		Where("account_id IN ?", ids).
		Group("account_id").
		Scan(&rows).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.AccountID] = r.Count
	}
	for i := range accounts {
		accounts[i].TransactionCount = counts[accounts[i].ID]
	}
	return nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	accounts := []models.Account{account}
	if err := attachTransactionCounts(s.db, accounts); err != nil {
		return nil, err
	}
	return &accounts[0], nil
}

// GetDefaultAccount returns the user's default account.
func (s *accountService) GetDefaultAccount(userID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("user_id = ? AND is_default = ?", userID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// SetDefaultAccount makes an account the user's default. Unsetting the
// current default is rejected because a user always has exactly one.
func (s *accountService) SetDefaultAccount(userID, accountID string, isDefault bool) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	if !isDefault {
		if account.IsDefault {
			return nil, apperrors.ErrDefaultAccountRequired
		}
		return account, nil
	}
	if account.IsDefault {
		return account, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("is_default", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	account.IsDefault = true
	s.cache.InvalidateUser(userID)
	return account, nil
}
