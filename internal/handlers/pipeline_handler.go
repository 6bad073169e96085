package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nextfinance/internal/services"
)

// PipelineHandler exposes the scheduled jobs to the worker.
type PipelineHandler struct {
	recurringService services.RecurringServicer
	budgetService    services.BudgetServicer
	now              func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(recurringService services.RecurringServicer, budgetService services.BudgetServicer) *PipelineHandler {
	return &PipelineHandler{
		recurringService: recurringService,
		budgetService:    budgetService,
		now:              time.Now,
	}
}

// ProcessRecurring materialises due recurring transactions
// @Summary     Process recurring transactions
// @Description Create one occurrence for every due recurring transaction and advance its next date (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.RecurringRun "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/recurring/process [post]
func (h *PipelineHandler) ProcessRecurring(c *gin.Context) {
	run, err := h.recurringService.ProcessDue(h.now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// SendBudgetAlerts emails users who crossed their budget alert threshold
// @Summary     Send budget alerts
// @Description Queue a budget alert email for every user over the threshold who has not been alerted this month (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.BudgetAlertRun "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/budgets/alerts [post]
func (h *PipelineHandler) SendBudgetAlerts(c *gin.Context) {
	run, err := h.budgetService.SendBudgetAlerts(h.now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
