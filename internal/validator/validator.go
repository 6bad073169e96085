// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"nextfinance/internal/models"
	"nextfinance/internal/recurrence"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("recurring_interval", validateRecurringInterval)
	_ = v.RegisterValidation("category", validateCategory)
	_ = v.RegisterValidation("sort_field", validateSortField)
	_ = v.RegisterValidation("sort_direction", validateSortDirection)
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeCurrent, models.AccountTypeSavings:
		return true
	}
	return false
}

func validateRecurringInterval(fl validator.FieldLevel) bool {
	return recurrence.Interval(fl.Field().String()).Valid()
}

func validateCategory(fl validator.FieldLevel) bool {
	_, ok := models.FindCategory(fl.Field().String())
	return ok
}

func validateSortField(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "date", "amount", "category":
		return true
	}
	return false
}

func validateSortDirection(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "asc", "desc":
		return true
	}
	return false
}
