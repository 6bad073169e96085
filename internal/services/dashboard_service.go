package services

import (
	"gorm.io/gorm"

	"nextfinance/internal/cache"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/models"
)

const (
	dashboardCacheResource = "dashboard"
	recentTransactionLimit = 10
)

// dashboardService assembles the landing page summary.
type dashboardService struct {
	db      *gorm.DB
	budgets BudgetServicer
	cache   *cache.Cache
}

// NewDashboardService creates a new DashboardServicer. c may be nil.
func NewDashboardService(db *gorm.DB, budgets BudgetServicer, c *cache.Cache) DashboardServicer {
	return &dashboardService{db: db, budgets: budgets, cache: c}
}

// GetDashboard returns the user's accounts, budget progress and most recent
// transactions. The result is cached until the user's next write.
func (s *dashboardService) GetDashboard(userID string) (*Dashboard, error) {
	if cached, ok := s.cache.Get(userID, dashboardCacheResource); ok {
		if d, ok := cached.(*Dashboard); ok {
			return d, nil
		}
	}

	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := attachTransactionCounts(s.db, accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}

	budget, err := s.budgets.GetBudgetProgress(userID)
	if err != nil {
		return nil, err
	}

	var recent []models.Transaction
	if err := s.db.Where("user_id = ?", userID).
		Order("date DESC").
		Order("created_at DESC").
		Limit(recentTransactionLimit).
		Find(&recent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if recent == nil {
		recent = []models.Transaction{}
	}

	d := &Dashboard{
		Accounts:           accounts,
		Budget:             budget,
		RecentTransactions: recent,
	}
	s.cache.Set(userID, dashboardCacheResource, d)
	return d, nil
}
