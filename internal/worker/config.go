package worker

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Job names accepted in JOBS.
const (
	JobRecurring    = "recurring"
	JobBudgetAlerts = "budget-alerts"
)

// Config holds the worker configuration.
type Config struct {
	APIURL         string
	PipelineAPIKey string
	RequestTimeout time.Duration
	MaxAttempts    int
	Jobs           []string
}

// LoadConfig reads configuration from environment variables and validates required fields.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIURL:         os.Getenv("NEXTFINANCE_API_URL"),
		PipelineAPIKey: os.Getenv("PIPELINE_API_KEY"),
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("NEXTFINANCE_API_URL is required")
	}
	if cfg.PipelineAPIKey == "" {
		return nil, fmt.Errorf("PIPELINE_API_KEY is required")
	}

	timeout, err := parseTimeout(os.Getenv("REQUEST_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	attempts, err := parseAttempts(os.Getenv("JOB_MAX_ATTEMPTS"))
	if err != nil {
		return nil, err
	}
	cfg.MaxAttempts = attempts

	jobs, err := parseJobs(os.Getenv("JOBS"))
	if err != nil {
		return nil, err
	}
	cfg.Jobs = jobs

	return cfg, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", d)
	}
	return d, nil
}

func parseAttempts(s string) (int, error) {
	if s == "" {
		return 2, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("JOB_MAX_ATTEMPTS must be a positive integer, got %q", s)
	}
	return n, nil
}

func parseJobs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{JobRecurring, JobBudgetAlerts}, nil
	}
	var jobs []string
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case JobRecurring, JobBudgetAlerts:
			jobs = append(jobs, name)
		default:
			return nil, fmt.Errorf("unknown job %q: must be %s or %s", name, JobRecurring, JobBudgetAlerts)
		}
	}
	return jobs, nil
}
