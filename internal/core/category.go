package core

// Category is a key into the fixed category registry.
type Category string

const (
	Salary        Category = "salary"
	Freelance     Category = "freelance"
	Investments   Category = "investments"
	Food          Category = "food"
	Transport     Category = "transport"
	Entertainment Category = "entertainment"
	Shopping      Category = "shopping"
	Bills         Category = "bills"
	Health        Category = "health"
	Education     Category = "education"
	Other         Category = "other"
)

// CategoryInfo is the static metadata shown next to a category.
type CategoryInfo struct {
	Key          Category        `json:"key"`
	Name         string          `json:"name"`
	Icon         string          `json:"icon"`
	Color        string          `json:"color"`
	Kind         TransactionType `json:"kind"`
	DefaultLimit float64         `json:"default_limit"`
}

var registry = []CategoryInfo{
	{Key: Salary, Name: "Salary", Icon: "💰", Color: "hsl(160, 84%, 39%)", Kind: Income},
	{Key: Freelance, Name: "Freelance", Icon: "💼", Color: "hsl(200, 80%, 50%)", Kind: Income},
	{Key: Investments, Name: "Investments", Icon: "📈", Color: "hsl(280, 65%, 60%)", Kind: Income},
	{Key: Food, Name: "Food & Dining", Icon: "🍔", Color: "hsl(38, 92%, 50%)", Kind: Expense, DefaultLimit: 500},
	{Key: Transport, Name: "Transport", Icon: "🚗", Color: "hsl(200, 80%, 50%)", Kind: Expense, DefaultLimit: 300},
	{Key: Entertainment, Name: "Entertainment", Icon: "🎬", Color: "hsl(320, 70%, 50%)", Kind: Expense, DefaultLimit: 200},
	{Key: Shopping, Name: "Shopping", Icon: "🛍️", Color: "hsl(280, 65%, 60%)", Kind: Expense, DefaultLimit: 400},
	{Key: Bills, Name: "Bills & Utilities", Icon: "📱", Color: "hsl(0, 72%, 51%)", Kind: Expense, DefaultLimit: 350},
	{Key: Health, Name: "Health", Icon: "🏥", Color: "hsl(160, 84%, 39%)", Kind: Expense, DefaultLimit: 150},
	{Key: Education, Name: "Education", Icon: "📚", Color: "hsl(200, 80%, 50%)", Kind: Expense, DefaultLimit: 200},
	// Other is accepted on income entries too.
	{Key: Other, Name: "Other", Icon: "📦", Color: "hsl(220, 10%, 50%)", Kind: Expense, DefaultLimit: 200},
}

// budgetCategories is the closed set that carries budget progress. Education has a
// default limit but is deliberately not part of it.
var budgetCategories = []Category{Food, Transport, Entertainment, Shopping, Bills, Health, Other}

var unknownCategory = CategoryInfo{Name: "Unknown", Icon: "❔", Color: "hsl(220, 10%, 50%)"}

// Categories returns the registry in display order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), registry...)
}

// Lookup returns the registry entry for c.
func Lookup(c Category) (CategoryInfo, bool) {
	for _, info := range registry {
		if info.Key == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Describe returns the registry entry for c, or an "Unknown" placeholder.
func Describe(c Category) CategoryInfo {
	if info, ok := Lookup(c); ok {
		return info
	}
	info := unknownCategory
	info.Key = c
	return info
}

// BudgetCategories returns the categories that carry budget progress.
func BudgetCategories() []Category {
	return append([]Category(nil), budgetCategories...)
}

// IsBudgetCategory reports whether c is one of the budgeted categories.
func IsBudgetCategory(c Category) bool {
	for _, b := range budgetCategories {
		if b == c {
			return true
		}
	}
	return false
}

// DefaultLimit returns the hardcoded monthly limit for c (0 for income categories).
func DefaultLimit(c Category) float64 {
	info, _ := Lookup(c)
	return info.DefaultLimit
}
