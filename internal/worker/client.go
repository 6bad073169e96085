package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RecurringRun is the pipeline's reply to a recurring processing request.
type RecurringRun struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// BudgetAlertRun is the pipeline's reply to a budget alert request.
type BudgetAlertRun struct {
	Checked    int `json:"checked"`
	AlertsSent int `json:"alerts_sent"`
}

// PipelineClient calls the API's pipeline endpoints.
type PipelineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPipelineClient creates a client for the pipeline API at baseURL.
func NewPipelineClient(baseURL, apiKey string, httpClient *http.Client) *PipelineClient {
	return &PipelineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// ProcessRecurring asks the API to materialise due recurring transactions.
func (c *PipelineClient) ProcessRecurring(ctx context.Context) (*RecurringRun, error) {
	var run RecurringRun
	if err := c.post(ctx, "/api/v1/pipeline/recurring/process", &run); err != nil {
		return nil, fmt.Errorf("processing recurring transactions: %w", err)
	}
	return &run, nil
}

// SendBudgetAlerts asks the API to email users over their budget threshold.
func (c *PipelineClient) SendBudgetAlerts(ctx context.Context) (*BudgetAlertRun, error) {
	var run BudgetAlertRun
	if err := c.post(ctx, "/api/v1/pipeline/budgets/alerts", &run); err != nil {
		return nil, fmt.Errorf("sending budget alerts: %w", err)
	}
	return &run, nil
}

func (c *PipelineClient) post(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
