package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"nextfinance/internal/cache"
	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/logger"
	"nextfinance/internal/models"
	"nextfinance/internal/recurrence"
)

// errNotDue is returned inside the processing transaction when another run
// has already advanced the template.
var errNotDue = errors.New("recurring transaction no longer due")

// recurringService materialises recurring transaction templates.
type recurringService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewRecurringService creates a new RecurringServicer. c may be nil.
func NewRecurringService(db *gorm.DB, c *cache.Cache) RecurringServicer {
	return &recurringService{db: db, cache: c}
}

// ProcessDue creates one occurrence for every recurring template due at now
// and advances each template to its next date. Templates are processed in
// separate database transactions, so one failure does not stop the rest.
func (s *recurringService) ProcessDue(now time.Time) (*RecurringRun, error) {
	var templates []models.Transaction
	if err := s.db.
		Where("is_recurring = ? AND status = ? AND next_recurring_date IS NOT NULL AND next_recurring_date <= ?",
			true, models.TransactionStatusCompleted, now).
		Order("next_recurring_date ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	run := &RecurringRun{}
	touched := make(map[string]struct{})
	for i := range templates {
		template := &templates[i]
		err := s.processOne(template.ID, now)
		switch {
		case errors.Is(err, errNotDue):
		case err != nil:
			run.Failed++
			logger.Get().Errorw("recurring transaction failed",
				"transaction_id", template.ID,
				"user_id", template.UserID,
				"error", err,
			)
		default:
			run.Processed++
			touched[template.UserID] = struct{}{}
		}
	}

	for userID := range touched {
		s.cache.InvalidateUser(userID)
	}

	logger.Get().Infow("recurring transactions processed", "processed", run.Processed, "failed", run.Failed)
	return run, nil
}

func (s *recurringService) processOne(templateID string, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var template models.Transaction
		if err := tx.First(&template, "id = ?", templateID).Error; err != nil {
			return err
		}
		if !template.IsRecurring || template.NextRecurringDate == nil || template.NextRecurringDate.After(now) {
			return errNotDue
		}
		if !template.RecurringInterval.Valid() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown recurring interval")
		}

		var account models.Account
		if err := tx.First(&account, "id = ? AND user_id = ?", template.AccountID, template.UserID).Error; err != nil {
			return err
		}

		due := *template.NextRecurringDate
		occurrence := &models.Transaction{
			UserID:      template.UserID,
			AccountID:   template.AccountID,
			Type:        template.Type,
			Amount:      template.Amount,
			Description: template.Description + " (Recurring)",
			Date:        due,
			Category:    template.Category,
			Status:      models.TransactionStatusCompleted,
		}
		if err := tx.Create(occurrence).Error; err != nil {
			return err
		}

		account.Apply(occurrence.Type, occurrence.Amount)
		if err := writeBalance(tx, &account); err != nil {
			return err
		}

		next := recurrence.Next(due, template.RecurringInterval)
		return tx.Model(&template).Updates(map[string]interface{}{
			"last_processed":      now,
			"next_recurring_date": next,
		}).Error
	})
}
