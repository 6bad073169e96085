package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "nextfinance/internal/errors"
	"nextfinance/internal/models"
	"nextfinance/internal/pagination"
	"nextfinance/internal/receipt"
	"nextfinance/internal/recurrence"
	"nextfinance/internal/services"
)

// MaxReceiptSize is the largest receipt image accepted for scanning.
const MaxReceiptSize = 5 << 20

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
	scanner            receipt.Scanner
}

// NewTransactionHandler creates a new TransactionHandler. scanner may be nil,
// in which case receipt scanning reports that it is not configured.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer, scanner receipt.Scanner) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService, scanner: scanner}
}

// TransactionRequest represents the request payload for creating or updating a transaction
type TransactionRequest struct {
	AccountID         string                 `json:"account_id" binding:"required,uuid"`
	Type              models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount            decimal.Decimal        `json:"amount" swaggertype:"string" example:"42.50"`
	Description       string                 `json:"description" binding:"max=500"`
	Date              *string                `json:"date"`
	Category          string                 `json:"category" binding:"required,category"`
	ReceiptURL        string                 `json:"receipt_url" binding:"omitempty,url,max=2048"`
	IsRecurring       bool                   `json:"is_recurring"`
	RecurringInterval recurrence.Interval    `json:"recurring_interval" binding:"required_if=IsRecurring true,omitempty,recurring_interval"`
}

// BulkDeleteRequest lists the transactions to delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=100,dive,uuid"`
}

// TransactionListQuery holds the filter and sort query parameters of an account's transaction list.
type TransactionListQuery struct {
	Search    string `form:"search" binding:"max=100"`
	Type      string `form:"type" binding:"omitempty,transaction_type"`
	Recurring string `form:"recurring" binding:"omitempty,oneof=recurring non-recurring"`
	FromDate  string `form:"from_date"`
	ToDate    string `form:"to_date"`
	Category  string `form:"category" binding:"omitempty,category"`
	Sort      string `form:"sort" binding:"omitempty,sort_field"`
	Direction string `form:"direction" binding:"omitempty,sort_direction"`
}

func (r *TransactionRequest) toInput() (services.TransactionInput, error) {
	input := services.TransactionInput{
		AccountID:         r.AccountID,
		Type:              r.Type,
		Amount:            r.Amount,
		Description:       r.Description,
		Category:          r.Category,
		ReceiptURL:        r.ReceiptURL,
		IsRecurring:       r.IsRecurring,
		RecurringInterval: r.RecurringInterval,
	}
	if r.Date != nil && *r.Date != "" {
		parsed, err := parseFlexibleTime(*r.Date)
		if err != nil {
			return input, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		input.Date = parsed
	}
	return input, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense and update the account balance atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized or foreign account"
// @Failure     404 {object} ErrorResponse "User or account not found"
// @Failure     500 {object} ErrorResponse "Commit failed"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount.StringFixed(2), "account_id": req.AccountID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetAccountTransactions handles the retrieval of transactions for a specific account
// @Summary     Get account transactions
// @Description Get a paginated, filtered and sorted list of transactions for one account
// @Tags        accounts,transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Account ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 15, max 100)"
// @Param       search    query string false "Case-insensitive match on description"
// @Param       type      query string false "INCOME or EXPENSE"
// @Param       recurring query string false "recurring or non-recurring"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       category  query string false "Category ID"
// @Param       sort      query string false "date, amount or category (default date)"
// @Param       direction query string false "asc or desc (default desc)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id}/transactions [get]
func (h *TransactionHandler) GetAccountTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(query)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sort := services.TransactionSort{Field: query.Sort, Direction: query.Direction}

	result, err := h.transactionService.GetAccountTransactions(userID, accountID, page, filter, sort)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(q TransactionListQuery) (services.TransactionFilter, error) {
	filter := services.TransactionFilter{
		Search:   strings.TrimSpace(q.Search),
		Category: q.Category,
	}

	if q.FromDate != "" {
		t, err := parseFlexibleTime(q.FromDate)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if q.ToDate != "" {
		t, err := parseFlexibleTime(q.ToDate)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if q.Type != "" {
		txType := models.TransactionType(q.Type)
		filter.Type = &txType
	}

	if q.Recurring != "" {
		recurring := q.Recurring == "recurring"
		filter.Recurring = &recurring
	}

	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Replace a transaction. The old amount is reversed and the new one applied, moving between accounts if account_id changes.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Transaction ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount.StringFixed(2), "account_id": req.AccountID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction and reverse its effect on the account balance
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// BulkDeleteTransactions handles deleting several transactions at once
// @Summary     Bulk delete transactions
// @Description Delete the caller's transactions among ids and reverse their balance effects. Unknown IDs are ignored.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkDeleteRequest true "Transaction IDs"
// @Success     200 {object} map[string]int64 "Number deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/bulk-delete [post]
func (h *TransactionHandler) BulkDeleteTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deleted, err := h.transactionService.BulkDeleteTransactions(userID, req.IDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "BULK_DELETE_TRANSACTIONS", "transaction", "", c.ClientIP(),
		map[string]interface{}{"requested": len(req.IDs), "deleted": deleted})

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ScanReceipt extracts transaction fields from a receipt photo
// @Summary     Scan receipt
// @Description Upload a receipt image (max 5MB) and get back the amount, date, description, merchant and category it shows
// @Tags        transactions
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       receipt formData file true "Receipt image"
// @Success     200 {object} receipt.Result "Extracted fields"
// @Failure     400 {object} ErrorResponse "Missing or non-image file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     422 {object} ErrorResponse "Not a receipt"
// @Failure     502 {object} ErrorResponse "Scanner failed"
// @Failure     503 {object} ErrorResponse "Scanner not configured"
// @Router      /transactions/scan [post]
func (h *TransactionHandler) ScanReceipt(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}
	if h.scanner == nil {
		respondWithError(c, apperrors.ErrScannerNotConfigured)
		return
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "receipt file is required"))
		return
	}
	if file.Size > MaxReceiptSize {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}
	mimeType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "receipt must be an image"))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer func() { _ = f.Close() }()

	image, err := io.ReadAll(io.LimitReader(f, MaxReceiptSize+1))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if len(image) > MaxReceiptSize {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	result, err := h.scanner.Scan(c.Request.Context(), image, mimeType)
	if err != nil {
		if errors.Is(err, receipt.ErrNotAReceipt) {
			respondWithError(c, apperrors.ErrNotAReceipt)
			return
		}
		respondWithError(c, apperrors.Wrap(apperrors.ErrScanFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt": result})
}
