package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Category is an entry of the built-in category catalog. Transactions refer to
// categories by ID.
type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Type  CategoryType `json:"type"`
	Color string       `json:"color"`
}

// DefaultCategories is the catalog offered to every user.
var DefaultCategories = []Category{
	// Income
	{ID: "salary", Name: "Salary", Type: CategoryTypeIncome, Color: "#22c55e"},
	{ID: "freelance", Name: "Freelance", Type: CategoryTypeIncome, Color: "#06b6d4"},
	{ID: "investments", Name: "Investments", Type: CategoryTypeIncome, Color: "#6366f1"},
	{ID: "business", Name: "Business", Type: CategoryTypeIncome, Color: "#ec4899"},
	{ID: "rental", Name: "Rental", Type: CategoryTypeIncome, Color: "#f59e0b"},
	{ID: "other-income", Name: "Other Income", Type: CategoryTypeIncome, Color: "#64748b"},

	// Expense
	{ID: "housing", Name: "Housing", Type: CategoryTypeExpense, Color: "#ef4444"},
	{ID: "transportation", Name: "Transportation", Type: CategoryTypeExpense, Color: "#f97316"},
	{ID: "groceries", Name: "Groceries", Type: CategoryTypeExpense, Color: "#84cc16"},
	{ID: "utilities", Name: "Utilities", Type: CategoryTypeExpense, Color: "#06b6d4"},
	{ID: "entertainment", Name: "Entertainment", Type: CategoryTypeExpense, Color: "#8b5cf6"},
	{ID: "food", Name: "Food", Type: CategoryTypeExpense, Color: "#f43f5e"},
	{ID: "shopping", Name: "Shopping", Type: CategoryTypeExpense, Color: "#ec4899"},
	{ID: "healthcare", Name: "Healthcare", Type: CategoryTypeExpense, Color: "#14b8a6"},
	{ID: "education", Name: "Education", Type: CategoryTypeExpense, Color: "#6366f1"},
	{ID: "personal", Name: "Personal Care", Type: CategoryTypeExpense, Color: "#d946ef"},
	{ID: "travel", Name: "Travel", Type: CategoryTypeExpense, Color: "#0ea5e9"},
	{ID: "insurance", Name: "Insurance", Type: CategoryTypeExpense, Color: "#64748b"},
	{ID: "gifts", Name: "Gifts & Donations", Type: CategoryTypeExpense, Color: "#f472b6"},
	{ID: "bills", Name: "Bills & Fees", Type: CategoryTypeExpense, Color: "#fb7185"},
	{ID: "other-expense", Name: "Other Expenses", Type: CategoryTypeExpense, Color: "#94a3b8"},
}

// FindCategory looks up a catalog entry by ID.
func FindCategory(id string) (Category, bool) {
	for _, c := range DefaultCategories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoriesByType returns the catalog entries of one type.
func CategoriesByType(t CategoryType) []Category {
	var out []Category
	for _, c := range DefaultCategories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
