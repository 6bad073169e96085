package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "nextfinance/internal/errors"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app_error", apperrors.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrapped_app_error", apperrors.Wrap(apperrors.ErrCommitFailed, errors.New("disk full")), apperrors.ErrCommitFailed.StatusCode, apperrors.ErrCommitFailed.Code},
		{"plain_error_is_masked", errors.New("pq: connection reset"), http.StatusInternalServerError, apperrors.ErrInternalServer.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/fail", func(c *gin.Context) {
				_ = c.Error(tt.err)
				c.Abort()
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", http.NoBody))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := parseBody(t, rec)
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected error object, got %v", body)
			}
			if errObj["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, errObj["code"])
			}
			if tt.name == "plain_error_is_masked" && errObj["message"] != apperrors.ErrInternalServer.Message {
				t.Errorf("internal detail leaked: %v", errObj["message"])
			}
		})
	}
}

func TestErrorHandler_NoErrorPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
