package core

import (
	"sort"
	"time"
)

const (
	monthlyWindow  = 6  // calendar months shown on the monthly bar chart
	trendWindow    = 15 // most recent active days kept on the trend chart
	burnRateWindow = 30 // trailing calendar days on the burn-rate chart
)

type (
	// CategoryAmount is an amount aggregated under one category label.
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// MonthBucket holds income and expense sums for one calendar month.
	// Buckets are keyed by year+month so a six-month window spanning a
	// year boundary never conflates e.g. January of two different years.
	MonthBucket struct {
		Name    string // short month name for display
		Year    int
		Month   time.Month
		Income  Money
		Expense Money
	}

	// TrendPoint is the end-of-day running balance for one active day.
	TrendPoint struct {
		Date    time.Time
		Balance Money
	}

	// BurnPoint is the total expense amount for one calendar day.
	BurnPoint struct {
		Date    time.Time
		Expense Money
	}

	// Metrics is the dashboard view model derived from a transaction list.
	Metrics struct {
		TotalIncome  Money
		TotalExpense Money
		TotalBalance Money

		ExpenseByCategory []CategoryAmount
		IncomeByCategory  []CategoryAmount

		Monthly  []MonthBucket // always monthlyWindow entries, oldest first
		Trend    []TrendPoint  // at most trendWindow entries, oldest first
		BurnRate []BurnPoint   // always burnRateWindow entries, oldest first
	}
)

// ComputeMetrics derives the dashboard view model from the owner's
// transactions. It is pure: the same transactions and the same now produce
// the same result. All calendar bucketing happens on UTC days; callers must
// not pre-filter by date, only by owner.
func ComputeMetrics(transactions []Transaction, now time.Time) Metrics {
	now = now.UTC()
	m := Metrics{
		ExpenseByCategory: []CategoryAmount{},
		IncomeByCategory:  []CategoryAmount{},
	}

	expenseByCat := map[string]int64{}
	incomeByCat := map[string]int64{}
	var expenseOrder, incomeOrder []string

	for _, t := range transactions {
		cat := NormalizeCategory(t.Category)
		switch t.Kind {
		case Income:
			m.TotalIncome.Cents += t.Amount.Cents
			if _, seen := incomeByCat[cat]; !seen {
				incomeOrder = append(incomeOrder, cat)
			}
			incomeByCat[cat] += t.Amount.Cents
		case Expense:
			m.TotalExpense.Cents += t.Amount.Cents
			if _, seen := expenseByCat[cat]; !seen {
				expenseOrder = append(expenseOrder, cat)
			}
			expenseByCat[cat] += t.Amount.Cents
		}
	}
	m.TotalBalance.Cents = m.TotalIncome.Cents - m.TotalExpense.Cents

	for _, name := range expenseOrder {
		m.ExpenseByCategory = append(m.ExpenseByCategory, CategoryAmount{Name: name, Amount: Money{Cents: expenseByCat[name]}})
	}
	for _, name := range incomeOrder {
		m.IncomeByCategory = append(m.IncomeByCategory, CategoryAmount{Name: name, Amount: Money{Cents: incomeByCat[name]}})
	}

	m.Monthly = monthlySeries(transactions, now)
	m.Trend = trendSeries(transactions)
	m.BurnRate = burnRateSeries(transactions, now)
	return m
}

type yearMonth struct {
	year  int
	month time.Month
}

// monthlySeries buckets income and expense sums into the six calendar months
// ending at now's month, oldest first.
func monthlySeries(transactions []Transaction, now time.Time) []MonthBucket {
	buckets := make([]MonthBucket, 0, monthlyWindow)
	index := make(map[yearMonth]int, monthlyWindow)
	for i := monthlyWindow - 1; i >= 0; i-- {
		d := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		index[yearMonth{d.Year(), d.Month()}] = len(buckets)
		buckets = append(buckets, MonthBucket{
			Name:  d.Month().String()[:3],
			Year:  d.Year(),
			Month: d.Month(),
		})
	}

	for _, t := range transactions {
		d := Day(t.Date)
		i, ok := index[yearMonth{d.Year(), d.Month()}]
		if !ok {
			continue
		}
		if t.Kind == Income {
			buckets[i].Income.Cents += t.Amount.Cents
		} else {
			buckets[i].Expense.Cents += t.Amount.Cents
		}
	}
	return buckets
}

// trendSeries walks all transactions in date order accumulating a running
// balance. Multiple transactions on one day collapse to that day's final
// balance; only the last trendWindow active days are kept.
func trendSeries(transactions []Transaction) []TrendPoint {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var balance int64
	byDay := map[time.Time]int64{}
	var order []time.Time
	for _, t := range sorted {
		if t.Kind == Income {
			balance += t.Amount.Cents
		} else {
			balance -= t.Amount.Cents
		}
		day := Day(t.Date)
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day] = balance
	}

	if len(order) > trendWindow {
		order = order[len(order)-trendWindow:]
	}
	points := make([]TrendPoint, 0, len(order))
	for _, day := range order {
		points = append(points, TrendPoint{Date: day, Balance: Money{Cents: byDay[day]}})
	}
	return points
}

// burnRateSeries sums expense amounts per calendar day over the trailing
// burnRateWindow days ending at now, oldest first. Income is ignored and
// inactive days report zero.
func burnRateSeries(transactions []Transaction, now time.Time) []BurnPoint {
	today := Day(now)
	points := make([]BurnPoint, 0, burnRateWindow)
	index := make(map[time.Time]int, burnRateWindow)
	for i := burnRateWindow - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		index[day] = len(points)
		points = append(points, BurnPoint{Date: day})
	}

	for _, t := range transactions {
		if t.Kind != Expense {
			continue
		}
		if i, ok := index[Day(t.Date)]; ok {
			points[i].Expense.Cents += t.Amount.Cents
		}
	}
	return points
}
