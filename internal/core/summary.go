package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardEntry is one recent expense or collected-cash line.
type DashboardEntry struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// Dashboard is the aggregate view of a single solution card.
type Dashboard struct {
	TotalCollectedCash  decimal.Decimal  `json:"totalCollectedCash"`
	TotalExpenses       decimal.Decimal  `json:"totalExpenses"`
	RemainingBudget     decimal.Decimal  `json:"remainingBudget"`
	RecentExpenses      []DashboardEntry `json:"recentExpenses"`
	RecentCollectedCash []DashboardEntry `json:"recentCollectedCash"`
}

// OverBudget reports whether expenses exceeded the collected funds.
func (d Dashboard) OverBudget() bool {
	return d.RemainingBudget.IsNegative()
}

// TrendPoint pairs the n-th recent expense with the n-th recent collection.
type TrendPoint struct {
	Label     string
	Expense   decimal.Decimal
	Collected decimal.Decimal
}

// Trend lines recent expenses up with recent collections by position; a
// missing collection counts as zero.
func (d Dashboard) Trend() []TrendPoint {
	points := make([]TrendPoint, 0, len(d.RecentExpenses))
	for i, e := range d.RecentExpenses {
		label := e.Name
		if label == "" && !e.Date.IsZero() {
			label = e.Date.Format("2006-01-02")
		}
		p := TrendPoint{Label: label, Expense: e.Amount, Collected: decimal.Zero}
		if i < len(d.RecentCollectedCash) {
			p.Collected = d.RecentCollectedCash[i].Amount
		}
		points = append(points, p)
	}
	return points
}
