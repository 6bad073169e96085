package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/models"
)

// CategoryHandler serves the built-in category catalog.
type CategoryHandler struct{}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// GetCategories lists the categories a transaction can use
// @Summary     List categories
// @Description List the built-in transaction categories, optionally filtered by type
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "INCOME or EXPENSE"
// @Success     200 {array} models.Category "Categories"
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	switch t := models.CategoryType(c.Query("type")); t {
	case "":
		c.JSON(http.StatusOK, gin.H{"categories": models.DefaultCategories})
	case models.CategoryTypeIncome, models.CategoryTypeExpense:
		c.JSON(http.StatusOK, gin.H{"categories": models.CategoriesByType(t)})
	default:
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be INCOME or EXPENSE"))
	}
}
