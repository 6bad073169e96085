package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func geminiServer(t *testing.T, answer string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					InlineData *struct {
						MIMEType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].InlineData == nil ||
			req.Contents[0].Parts[0].InlineData.MIMEType != "image/jpeg" {
			t.Errorf("image part missing from request")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
			})
			return
		}
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": answer}}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestScanner(t *testing.T, url string) *GeminiScanner {
	t.Helper()
	s, err := NewGeminiScanner(context.Background(), "g-key", "gemini-test", url)
	if err != nil {
		t.Fatalf("NewGeminiScanner: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestGeminiScanner_Scan(t *testing.T) {
	answer := "```json\n{\"amount\": 42.499, \"date\": \"2024-04-12\", \"description\": \"Weekly shop\", \"merchantName\": \"FreshMart\", \"category\": \"Groceries\"}\n```"
	srv := geminiServer(t, answer, http.StatusOK)
	defer srv.Close()

	result, err := newTestScanner(t, srv.URL).Scan(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Amount.Equal(decimal.RequireFromString("42.50")) {
		t.Errorf("expected amount rounded to 42.50, got %s", result.Amount)
	}
	if !result.Date.Equal(time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %s", result.Date)
	}
	if result.MerchantName != "FreshMart" || result.Category != "groceries" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestGeminiScanner_NotAReceipt(t *testing.T) {
	srv := geminiServer(t, "{}", http.StatusOK)
	defer srv.Close()

	_, err := newTestScanner(t, srv.URL).Scan(context.Background(), []byte("cat-photo"), "image/jpeg")
	if !errors.Is(err, ErrNotAReceipt) {
		t.Fatalf("expected ErrNotAReceipt, got %v", err)
	}
}

func TestGeminiScanner_UnknownCategoryAndDate(t *testing.T) {
	srv := geminiServer(t, `{"amount": 10, "date": "yesterday", "category": "spaceships"}`, http.StatusOK)
	defer srv.Close()

	result, err := newTestScanner(t, srv.URL).Scan(context.Background(), []byte("x"), "image/jpeg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Category != "other-expense" {
		t.Errorf("expected fallback category, got %s", result.Category)
	}
	if !result.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected fallback date, got %s", result.Date)
	}
}

func TestGeminiScanner_UpstreamError(t *testing.T) {
	srv := geminiServer(t, "", http.StatusTooManyRequests)
	defer srv.Close()

	_, err := newTestScanner(t, srv.URL).Scan(context.Background(), []byte("x"), "image/jpeg")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
