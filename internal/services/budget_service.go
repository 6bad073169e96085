package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nextfinance/internal/cache"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/logger"
	"nextfinance/internal/models"
	"nextfinance/internal/notify"
)

// DefaultBudgetAlertThreshold is the percentage of the budget that triggers
// an alert email.
const DefaultBudgetAlertThreshold = 80.0

// budgetService handles budget-related business logic.
type budgetService struct {
	db        *gorm.DB
	notifier  notify.Sender
	threshold float64
	cache     *cache.Cache
	now       func() time.Time
}

// NewBudgetService creates a new BudgetServicer. A non-positive threshold
// falls back to DefaultBudgetAlertThreshold.
func NewBudgetService(db *gorm.DB, notifier notify.Sender, threshold float64, c *cache.Cache) BudgetServicer {
	if threshold <= 0 {
		threshold = DefaultBudgetAlertThreshold
	}
	return &budgetService{
		db:        db,
		notifier:  notifier,
		threshold: threshold,
		cache:     c,
		now:       time.Now,
	}
}

// monthBounds returns [first instant of t's month, first instant of the next month) in UTC.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// monthlyExpenses sums the expenses on accountID dated within now's month.
func monthlyExpenses(db *gorm.DB, accountID string, now time.Time) (decimal.Decimal, error) {
	start, end := monthBounds(now)

	var amounts []decimal.Decimal
	if err := db.Model(&models.Transaction{}).
		Where("account_id = ? AND type = ? AND date >= ? AND date < ?",
			accountID, models.TransactionTypeExpense, start, end).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (s *budgetService) progressFor(budget *models.Budget, userID string, now time.Time) (*BudgetProgress, error) {
	progress := &BudgetProgress{Budget: budget, CurrentExpenses: decimal.Zero}

	var account models.Account
	err := s.db.Where("user_id = ? AND is_default = ?", userID, true).First(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Without a default account there is nothing to measure.
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		expenses, err := monthlyExpenses(s.db, account.ID, now)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		progress.CurrentExpenses = expenses
	}

	if budget != nil {
		remaining := budget.Amount.Sub(progress.CurrentExpenses)
		progress.Remaining = &remaining
		progress.PercentageUsed = percentOf(progress.CurrentExpenses, budget.Amount)
	}
	return progress, nil
}

// GetBudgetProgress compares the user's budget with this month's expenses on
// their default account. Budget is nil when none has been set.
func (s *budgetService) GetBudgetProgress(userID string) (*BudgetProgress, error) {
	var budget *models.Budget
	var b models.Budget
	err := s.db.Where("user_id = ?", userID).First(&b).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		budget = &b
	}
	return s.progressFor(budget, userID, s.now())
}

// UpsertBudget creates or replaces the user's monthly budget amount.
func (s *budgetService) UpsertBudget(userID string, amount decimal.Decimal) (*models.Budget, error) {
	if err := validatePositiveAmount(amount, "budget amount"); err != nil {
		return nil, err
	}

	var budget models.Budget
	err := s.db.Where("user_id = ?", userID).First(&budget).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		budget = models.Budget{UserID: userID, Amount: amount}
		if err := s.db.Create(&budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		budget.Amount = amount
		if err := s.db.Model(&budget).Update("amount", amount).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	s.cache.InvalidateUser(userID)
	return &budget, nil
}

// alertedThisMonth reports whether an alert was already sent in now's month.
func alertedThisMonth(lastSent *time.Time, now time.Time) bool {
	if lastSent == nil {
		return false
	}
	a, b := lastSent.UTC(), now.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// SendBudgetAlerts emails every user whose spending this month has reached
// the alert threshold, at most once per calendar month. A failure for one
// user is logged and does not stop the others.
func (s *budgetService) SendBudgetAlerts(now time.Time) (*BudgetAlertRun, error) {
	var budgets []models.Budget
	if err := s.db.Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	run := &BudgetAlertRun{}
	for i := range budgets {
		budget := &budgets[i]
		run.Checked++

		if alertedThisMonth(budget.LastAlertSent, now) {
			continue
		}

		progress, err := s.progressFor(budget, budget.UserID, now)
		if err != nil {
			logger.Get().Errorw("budget progress failed", "budget_id", budget.ID, "error", err)
			continue
		}
		if progress.PercentageUsed < s.threshold {
			continue
		}

		var user models.User
		if err := s.db.Select("id", "email", "first_name", "last_name").First(&user, "id = ?", budget.UserID).Error; err != nil {
			logger.Get().Errorw("budget owner lookup failed", "budget_id", budget.ID, "error", err)
			continue
		}

		alert := notify.BudgetAlert{
			UserName:       user.DisplayName(),
			PercentageUsed: progress.PercentageUsed,
			BudgetAmount:   budget.Amount,
			TotalExpenses:  progress.CurrentExpenses,
		}
		budgetID := budget.ID
		if err := s.notifier.Queue(user.Email, alert, func() { s.recordAlert(budgetID, now) }); err != nil {
			logger.Get().Errorw("failed to queue budget alert", "user_id", user.ID, "error", err)
			continue
		}
		run.AlertsSent++
	}

	logger.Get().Infow("budget alerts processed", "checked", run.Checked, "alerts_sent", run.AlertsSent)
	return run, nil
}

// recordAlert marks a budget as alerted once its email has been delivered.
// An undelivered alert leaves the budget unmarked for the next run.
func (s *budgetService) recordAlert(budgetID string, sentAt time.Time) {
	if err := s.db.Model(&models.Budget{}).Where("id = ?", budgetID).Update("last_alert_sent", sentAt).Error; err != nil {
		logger.Get().Errorw("failed to record budget alert", "budget_id", budgetID, "error", err)
	}
}
