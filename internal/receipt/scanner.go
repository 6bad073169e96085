// Package receipt extracts transaction details from receipt photos using
// Gemini.
package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"nextfinance/internal/models"
)

// ErrNotAReceipt is returned when the model finds no receipt in the image.
var ErrNotAReceipt = errors.New("image is not a receipt")

const prompt = `Analyze this receipt image and extract the following information in JSON format:
- Total amount (just the number)
- Date (in ISO format)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: %s)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "ISO date string",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

If it's not a receipt, return an empty object.`

// Result holds the fields extracted from a receipt.
type Result struct {
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchant_name"`
	Category     string          `json:"category"`
}

// Scanner extracts a Result from an image.
type Scanner interface {
	Scan(ctx context.Context, image []byte, mimeType string) (*Result, error)
}

// GeminiScanner asks a Gemini model to read receipt images.
type GeminiScanner struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

// NewGeminiScanner creates a scanner for model. An empty baseURL uses the
// public Gemini API.
func NewGeminiScanner(ctx context.Context, apiKey, model, baseURL string) (*GeminiScanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiScanner{client: client, model: model, now: time.Now}, nil
}

// Scan sends the image to Gemini and parses the JSON it answers with.
func (s *GeminiScanner) Scan(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(fmt.Sprintf(prompt, categoryList())),
		}, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("scanning receipt: empty response")
	}
	return s.parse(text)
}

// extracted mirrors the JSON the prompt asks for.
type extracted struct {
	Amount       *decimal.Decimal `json:"amount"`
	Date         string           `json:"date"`
	Description  string           `json:"description"`
	MerchantName string           `json:"merchantName"`
	Category     string           `json:"category"`
}

func (s *GeminiScanner) parse(text string) (*Result, error) {
	var data extracted
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &data); err != nil {
		return nil, fmt.Errorf("invalid scan output: %w", err)
	}
	if data.Amount == nil || !data.Amount.IsPositive() {
		return nil, ErrNotAReceipt
	}

	result := &Result{
		Amount:       data.Amount.Round(2),
		Date:         parseDate(data.Date, s.now()),
		Description:  data.Description,
		MerchantName: data.MerchantName,
		Category:     "other-expense",
	}
	if c, ok := models.FindCategory(strings.ToLower(data.Category)); ok && c.Type == models.CategoryTypeExpense {
		result.Category = c.ID
	}
	return result, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func parseDate(s string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

func categoryList() string {
	cats := models.CategoriesByType(models.CategoryTypeExpense)
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return strings.Join(ids, ", ")
}
