// Package insight derives rule-based spending insights from transaction
// history: month-over-month pattern alerts, budget threshold alerts, and
// saving suggestions. Like package report it is pure; the reference date
// for "current month" is an explicit parameter so behavior is fully
// deterministic under test.
package insight

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

const (
	TypePattern    Type = "pattern"
	TypeAlert      Type = "alert"
	TypeSuggestion Type = "suggestion"
)

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Tuned product thresholds. They carry no structural meaning; adjust freely.
const (
	// Month-over-month percent change bounds.
	spikeAlertPct  = 30
	dropSuggestPct = -20
	// Budget consumption bands.
	budgetWarnPct     = 75
	budgetCriticalPct = 90
	// Share of total expense held by the single largest category.
	topCategorySharePct = 40
	// Savings rate bands.
	savingsLowPct  = 20
	savingsHighPct = 30
)

type (
	Type     string
	Severity string

	// Insight is one generated finding. Metric, when set, is a percentage.
	Insight struct {
		Type     Type     `json:"type"`
		Message  string   `json:"message"`
		Metric   *float64 `json:"metric,omitempty"`
		Severity Severity `json:"severity,omitempty"`
	}
)

// Generate runs all analyses over the supplied history and concatenates
// their findings. budgets maps category ID to a monthly expense limit and
// may be nil. now anchors the "current month" for the month-scoped checks.
//
// With fewer than two transactions there is nothing to compare, so the
// only output is a single suggestion to add more data.
func Generate(txs []core.Transaction, cats []core.Category, budgets map[string]decimal.Decimal, now time.Time) []Insight {
	if len(txs) < 2 {
		return []Insight{{
			Type:    TypeSuggestion,
			Message: "Add more transactions to get personalized insights",
		}}
	}

	names := categoryNames(cats)

	var insights []Insight
	insights = append(insights, analyzeSpendingPatterns(txs, names, now)...)
	insights = append(insights, checkBudgetAlerts(txs, names, budgets, now)...)
	insights = append(insights, generateSuggestions(txs, names)...)
	return insights
}

// analyzeSpendingPatterns compares per-category expense totals for the
// current calendar month against the previous one. Categories with zero
// spending on either side are skipped: a percent change against zero is
// undefined, not infinite.
func analyzeSpendingPatterns(txs []core.Transaction, names map[string]string, now time.Time) []Insight {
	currentKey := core.MonthKey(now.Year(), int(now.Month()))
	prevYear, prevMonth := core.PrevMonth(now.Year(), int(now.Month()))
	previousKey := core.MonthKey(prevYear, prevMonth)

	current := expenseByCategory(txs, currentKey)
	previous := expenseByCategory(txs, previousKey)

	var insights []Insight
	for _, categoryID := range unionKeys(current, previous) {
		cur, prev := current[categoryID], previous[categoryID]
		if !cur.IsPositive() || !prev.IsPositive() {
			continue
		}

		change, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
		switch {
		case change > spikeAlertPct:
			insights = append(insights, Insight{
				Type:     TypeAlert,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("You spent %.0f%% more on %s this month", change, nameOf(names, categoryID, "this category")),
				Metric:   ptr(change),
			})
		case change < dropSuggestPct:
			insights = append(insights, Insight{
				Type:     TypeSuggestion,
				Severity: SeverityLow,
				Message:  fmt.Sprintf("You spent %.0f%% less on %s compared to last month", -change, nameOf(names, categoryID, "this category")),
				Metric:   ptr(change),
			})
		}
	}
	return insights
}

// checkBudgetAlerts reports categories whose current-month spending is
// approaching or past its configured limit.
func checkBudgetAlerts(txs []core.Transaction, names map[string]string, budgets map[string]decimal.Decimal, now time.Time) []Insight {
	if len(budgets) == 0 {
		return nil
	}

	currentKey := core.MonthKey(now.Year(), int(now.Month()))
	spending := expenseByCategory(txs, currentKey)

	var alerts []Insight
	for _, categoryID := range sortedKeys(budgets) {
		limit := budgets[categoryID]
		if !limit.IsPositive() {
			continue
		}
		pct, _ := spending[categoryID].Div(limit).Mul(decimal.NewFromInt(100)).Float64()

		switch {
		case pct >= budgetCriticalPct:
			alerts = append(alerts, Insight{
				Type:     TypeAlert,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("You've reached %.0f%% of your %s budget", pct, nameOf(names, categoryID, "category")),
				Metric:   ptr(pct),
			})
		case pct >= budgetWarnPct:
			alerts = append(alerts, Insight{
				Type:     TypeAlert,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("You've used %.0f%% of your %s budget", pct, nameOf(names, categoryID, "category")),
				Metric:   ptr(pct),
			})
		}
	}
	return alerts
}

// generateSuggestions looks at the entire history, not just the current
// month: concentration of spending in one category, and the overall
// savings rate.
func generateSuggestions(txs []core.Transaction, names map[string]string) []Insight {
	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	spending := make(map[string]decimal.Decimal)

	for _, t := range txs {
		if t.Kind == core.Income {
			totalIncome = totalIncome.Add(t.Amount)
			continue
		}
		totalExpense = totalExpense.Add(t.Amount)
		spending[t.CategoryID] = spending[t.CategoryID].Add(t.Amount)
	}

	var suggestions []Insight

	if topID, topAmount, ok := topCategory(spending); ok && totalExpense.IsPositive() {
		share, _ := topAmount.Div(totalExpense).Mul(decimal.NewFromInt(100)).Float64()
		if share > topCategorySharePct {
			suggestions = append(suggestions, Insight{
				Type:    TypeSuggestion,
				Message: fmt.Sprintf("%s accounts for %.0f%% of your spending. Consider setting a budget limit.", nameOf(names, topID, "Your top category"), share),
				Metric:  ptr(share),
			})
		}
	}

	if totalIncome.IsPositive() {
		rate, _ := totalIncome.Sub(totalExpense).Div(totalIncome).Mul(decimal.NewFromInt(100)).Float64()
		switch {
		case rate < savingsLowPct:
			suggestions = append(suggestions, Insight{
				Type:    TypeSuggestion,
				Message: fmt.Sprintf("Your savings rate is %.0f%%. Try to save at least 20%% of your income.", abs(rate)),
				Metric:  ptr(rate),
			})
		case rate > savingsHighPct:
			suggestions = append(suggestions, Insight{
				Type:    TypeSuggestion,
				Message: fmt.Sprintf("Great! Your savings rate is %.0f%%. Keep it up!", rate),
				Metric:  ptr(rate),
			})
		}
	}

	return suggestions
}

// expenseByCategory sums expense amounts per category for one month bucket.
func expenseByCategory(txs []core.Transaction, monthKey string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Kind != core.Expense || core.BucketKey(t.Date) != monthKey {
			continue
		}
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
	}
	return totals
}

func topCategory(spending map[string]decimal.Decimal) (string, decimal.Decimal, bool) {
	var (
		bestID string
		best   decimal.Decimal
		found  bool
	)
	for _, id := range sortedKeys(spending) {
		if !found || spending[id].GreaterThan(best) {
			bestID, best, found = id, spending[id], true
		}
	}
	return bestID, best, found
}

func categoryNames(cats []core.Category) map[string]string {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}

// nameOf resolves a category name; each analysis has its own fallback
// phrasing for unknown references.
func nameOf(names map[string]string, categoryID, fallback string) string {
	if name, ok := names[categoryID]; ok {
		return name
	}
	return fallback
}

func unionKeys(a, b map[string]decimal.Decimal) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ptr(f float64) *float64 { return &f }

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
