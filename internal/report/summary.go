// Package report turns a raw transaction list into period summaries and
// month-bucketed time series. All functions are pure: they never mutate
// their inputs and read no process-wide state.
package report

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Summarize accumulates income/expense totals and the signed per-category
// net over a transaction set. Order of the input is irrelevant.
func Summarize(txs []core.Transaction) core.Summary {
	s := core.Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   make(map[string]decimal.Decimal, len(txs)),
	}

	for _, t := range txs {
		net, ok := s.ByCategory[t.CategoryID]
		if !ok {
			net = decimal.Zero
		}
		if t.Kind == core.Income {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			net = net.Add(t.Amount)
		} else {
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
			net = net.Sub(t.Amount)
		}
		s.ByCategory[t.CategoryID] = net
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// MonthlySeries buckets transactions by calendar month and returns one entry
// per month between the earliest and latest transaction dates, inclusive.
// Months without transactions appear with zero totals, so sparse data still
// yields a contiguous series. Output is chronological.
func MonthlySeries(txs []core.Transaction) []core.MonthlySummary {
	if len(txs) == 0 {
		return []core.MonthlySummary{}
	}

	type bucket struct {
		income  decimal.Decimal
		expense decimal.Decimal
	}
	buckets := make(map[string]bucket)
	for _, t := range txs {
		key := core.BucketKey(t.Date)
		b, ok := buckets[key]
		if !ok {
			b = bucket{income: decimal.Zero, expense: decimal.Zero}
		}
		if t.Kind == core.Income {
			b.income = b.income.Add(t.Amount)
		} else {
			b.expense = b.expense.Add(t.Amount)
		}
		buckets[key] = b
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Walk the calendar from the earliest to the latest bucket so months
	// with no transactions are still represented.
	startYear, startMonth, err := core.SplitBucket(keys[0])
	if err != nil {
		return []core.MonthlySummary{}
	}
	endYear, endMonth, err := core.SplitBucket(keys[len(keys)-1])
	if err != nil {
		return []core.MonthlySummary{}
	}

	var series []core.MonthlySummary
	year, month := startYear, startMonth
	for year < endYear || (year == endYear && month <= endMonth) {
		b, ok := buckets[core.MonthKey(year, month)]
		if !ok {
			b = bucket{income: decimal.Zero, expense: decimal.Zero}
		}
		series = append(series, core.MonthlySummary{
			Month:   MonthLabel(year, month),
			Income:  b.income,
			Expense: b.expense,
			Balance: b.income.Sub(b.expense),
		})
		year, month = core.NextMonth(year, month)
	}

	return series
}

// MonthLabel formats a numeric year/month as a human-readable label,
// e.g. "Mar 2024". Month must be in 1..12.
func MonthLabel(year, month int) string {
	return monthAbbrevs[month-1] + " " + strconv.Itoa(year)
}
