package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email is template data that knows its subject and template.
type Email interface {
	Subject() string
	TemplateName() string
}

// BudgetAlert is sent once a month when spending crosses the alert threshold.
type BudgetAlert struct {
	UserName       string
	PercentageUsed float64
	BudgetAmount   decimal.Decimal
	TotalExpenses  decimal.Decimal
}

func (BudgetAlert) Subject() string      { return "Budget Alert" }
func (BudgetAlert) TemplateName() string { return "budget_alert.html" }

// Remaining is the unspent part of the budget; negative when overspent.
func (b BudgetAlert) Remaining() decimal.Decimal {
	return b.BudgetAmount.Sub(b.TotalExpenses)
}

// Percentage formats PercentageUsed with one decimal.
func (b BudgetAlert) Percentage() string {
	return fmt.Sprintf("%.1f", b.PercentageUsed)
}

// Render executes the email's template.
func Render(to string, email Email) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, email.TemplateName(), email); err != nil {
		return Message{}, fmt.Errorf("rendering %s: %w", email.TemplateName(), err)
	}
	return Message{To: to, Subject: email.Subject(), HTML: body.String()}, nil
}
