package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"nextfinance/internal/models"
	"nextfinance/internal/services"
)

type mockDashboardService struct {
	getDashboardFn func(userID string) (*services.Dashboard, error)
}

func (m *mockDashboardService) GetDashboard(userID string) (*services.Dashboard, error) {
	return m.getDashboardFn(userID)
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	t.Run("returns 200 with summary", func(t *testing.T) {
		var gotUser string
		svc := &mockDashboardService{
			getDashboardFn: func(userID string) (*services.Dashboard, error) {
				gotUser = userID
				return &services.Dashboard{
					Accounts:           []models.Account{{Name: "Everyday"}},
					Budget:             &services.BudgetProgress{},
					RecentTransactions: []models.Transaction{},
				}, nil
			},
		}
		r := gin.New()
		r.GET("/dashboard", injectUserID(testUserID), NewDashboardHandler(svc).GetDashboard)
		rec := doRequest(r, http.MethodGet, "/dashboard", "")

		if rec.Code != http.StatusOK || gotUser != testUserID {
			t.Fatalf("expected 200 for %s, got %d / %s", testUserID, rec.Code, gotUser)
		}
		if accounts := parseJSON(t, rec)["accounts"].([]interface{}); len(accounts) != 1 {
			t.Errorf("expected 1 account, got %d", len(accounts))
		}
	})

	t.Run("returns 500 on service failure", func(t *testing.T) {
		svc := &mockDashboardService{
			getDashboardFn: func(string) (*services.Dashboard, error) {
				return nil, errors.New("boom")
			},
		}
		r := gin.New()
		r.GET("/dashboard", injectUserID(testUserID), NewDashboardHandler(svc).GetDashboard)
		rec := doRequest(r, http.MethodGet, "/dashboard", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INTERNAL_ERROR")
	})
}
