package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"nextfinance/internal/models"
)

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return r
}

func doAuthRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func testUser() *models.User {
	u := &models.User{Email: "jane@example.com"}
	u.ID = "0190a5b2-7c3e-7d40-8a1b-2c3d4e5f6a7b"
	return u
}

func TestAuthMiddleware(t *testing.T) {
	user := testUser()
	access, err := GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	refresh, err := GenerateRefreshToken(user)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid_access_token", "Bearer " + access, http.StatusOK, ""},
		{"missing_header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong_scheme", "Basic " + access, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage_token", "Bearer not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"refresh_token_rejected", "Bearer " + refresh, http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	router := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthRequest(router, tt.header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := parseBody(t, rec)
			if tt.wantCode == "" {
				if body["user_id"] != user.ID {
					t.Errorf("expected user_id %s in context, got %v", user.ID, body["user_id"])
				}
				return
			}
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected error object in response")
			}
			if code, _ := errObj["code"].(string); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	user := testUser()

	refresh, _ := GenerateRefreshToken(user)
	claims, err := ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("expected valid refresh token, got %v", err)
	}
	if claims.UserID != user.ID || claims.Subject != user.ID {
		t.Errorf("unexpected claims: %+v", claims)
	}

	access, _ := GenerateAccessToken(user)
	if _, err := ValidateRefreshToken(access); err == nil {
		t.Error("access token must not validate as a refresh token")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != HashToken("token-a") {
		t.Error("hash must be deterministic")
	}
	if a == HashToken("token-b") {
		t.Error("different tokens must hash differently")
	}
}

func TestRequestLogging_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}

	const incoming = "0190a5b2-7c3e-7d40-8a1b-2c3d4e5f6a7b"
	req = httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set("X-Request-ID", incoming)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != incoming {
		t.Errorf("expected incoming request id to be reused, got %q", got)
	}
}
