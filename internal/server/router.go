// Package server assembles the HTTP router from services and handlers.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"nextfinance/internal/cache"
	"nextfinance/internal/handlers"
	"nextfinance/internal/middleware"
	"nextfinance/internal/notify"
	"nextfinance/internal/receipt"
	"nextfinance/internal/services"

	_ "nextfinance/internal/docs" // Import swagger docs
)

// Deps are the collaborators the router needs beyond the database.
type Deps struct {
	DB                   *gorm.DB
	Cache                *cache.Cache
	Notifier             notify.Sender
	Scanner              receipt.Scanner // nil disables /transactions/scan
	PipelineAPIKey       string
	BudgetAlertThreshold float64
}

// NewRouter wires services and handlers into a gin engine.
func NewRouter(d Deps) *gin.Engine {
	userService := services.NewUserService(d.DB)
	accountService := services.NewAccountService(d.DB, d.Cache)
	transactionService := services.NewTransactionService(d.DB, d.Cache)
	budgetService := services.NewBudgetService(d.DB, d.Notifier, d.BudgetAlertThreshold, d.Cache)
	recurringService := services.NewRecurringService(d.DB, d.Cache)
	dashboardService := services.NewDashboardService(d.DB, budgetService, d.Cache)
	auditService := services.NewAuditService(d.DB)

	authHandler := handlers.NewAuthHandler(userService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService, d.Scanner)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	categoryHandler := handlers.NewCategoryHandler()
	pipelineHandler := handlers.NewPipelineHandler(recurringService, budgetService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	twoFactor := protected.Group("/auth/2fa")
	twoFactor.POST("/setup", authHandler.SetupTwoFactor)
	twoFactor.POST("/enable", authHandler.EnableTwoFactor)
	twoFactor.POST("/disable", authHandler.DisableTwoFactor)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id/default", accountHandler.SetDefaultAccount)
	accounts.GET("/:id/transactions", transactionHandler.GetAccountTransactions)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/bulk-delete", transactionHandler.BulkDeleteTransactions)
	transactions.POST("/scan", transactionHandler.ScanReceipt)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	protected.GET("/budget", budgetHandler.GetBudget)
	protected.PUT("/budget", budgetHandler.UpsertBudget)
	protected.GET("/dashboard", dashboardHandler.GetDashboard)
	protected.GET("/categories", categoryHandler.GetCategories)

	// Scheduled jobs authenticate with X-API-Key
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(d.PipelineAPIKey))
	pipeline.POST("/recurring/process", pipelineHandler.ProcessRecurring)
	pipeline.POST("/budgets/alerts", pipelineHandler.SendBudgetAlerts)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
