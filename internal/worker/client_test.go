package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProcessRecurring_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/pipeline/recurring/process" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"processed": 4, "failed": 1})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL+"/", "test-key", server.Client())
	run, err := c.ProcessRecurring(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Processed != 4 || run.Failed != 1 {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestSendBudgetAlerts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pipeline/budgets/alerts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"checked": 7, "alerts_sent": 2})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "test-key", server.Client())
	run, err := c.SendBudgetAlerts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Checked != 7 || run.AlertsSent != 2 {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestPipelineClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_API_KEY"}}`))
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "bad-key", server.Client())
	_, err := c.ProcessRecurring(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "INVALID_API_KEY") {
		t.Errorf("expected status and body in error, got %v", err)
	}
}

func TestPipelineClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "test-key", server.Client())
	if _, err := c.SendBudgetAlerts(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
