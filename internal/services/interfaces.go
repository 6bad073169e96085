package services

import (
	"time"

	"github.com/shopspring/decimal"

	"nextfinance/internal/models"
	"nextfinance/internal/pagination"
	"nextfinance/internal/recurrence"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password, totpCode string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	SetupTwoFactor(userID string) (*TwoFactorSetup, error)
	EnableTwoFactor(userID, code string) error
	DisableTwoFactor(userID, code string) error
}

// TwoFactorSetup is returned when a user starts enrolling an authenticator app.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name string, accountType models.AccountType, balance decimal.Decimal, isDefault bool) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	GetDefaultAccount(userID string) (*models.Account, error)
	SetDefaultAccount(userID, accountID string, isDefault bool) (*models.Account, error)
}

// TransactionInput carries the caller-supplied fields of a transaction.
type TransactionInput struct {
	AccountID         string
	Type              models.TransactionType
	Amount            decimal.Decimal
	Description       string
	Date              time.Time
	Category          string
	ReceiptURL        string
	IsRecurring       bool
	RecurringInterval recurrence.Interval
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Search    string
	Type      *models.TransactionType
	Recurring *bool
	FromDate  *time.Time
	ToDate    *time.Time
	Category  string
}

// TransactionSort selects the ordering of a transaction list.
type TransactionSort struct {
	Field     string // date, amount or category
	Direction string // asc or desc
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter, sort TransactionSort) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, input TransactionInput) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	BulkDeleteTransactions(userID string, transactionIDs []string) (int64, error)
}

// BudgetProgress compares the monthly budget with this month's expenses on
// the default account.
type BudgetProgress struct {
	Budget          *models.Budget   `json:"budget"`
	CurrentExpenses decimal.Decimal  `json:"current_expenses"`
	PercentageUsed  float64          `json:"percentage_used"`
	Remaining       *decimal.Decimal `json:"remaining,omitempty"`
}

// BudgetAlertRun summarises one pass of the budget alert job.
type BudgetAlertRun struct {
	Checked    int `json:"checked"`
	AlertsSent int `json:"alerts_sent"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	GetBudgetProgress(userID string) (*BudgetProgress, error)
	UpsertBudget(userID string, amount decimal.Decimal) (*models.Budget, error)
	SendBudgetAlerts(now time.Time) (*BudgetAlertRun, error)
}

// RecurringRun summarises one pass of recurring transaction processing.
type RecurringRun struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RecurringServicer materialises due recurring transactions.
type RecurringServicer interface {
	ProcessDue(now time.Time) (*RecurringRun, error)
}

// Dashboard is the summary shown on the user's landing page.
type Dashboard struct {
	Accounts           []models.Account     `json:"accounts"`
	Budget             *BudgetProgress      `json:"budget"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// DashboardServicer builds (and caches) the user's dashboard.
type DashboardServicer interface {
	GetDashboard(userID string) (*Dashboard, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
