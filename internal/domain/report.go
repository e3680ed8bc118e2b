package domain

import (
	"sort"
	"time"
)

// BreakdownLine is one group of a report breakdown
type BreakdownLine struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Total Money  `json:"total"`
}

// MonthlyExpenseReport summarizes one calendar month of expenses
type MonthlyExpenseReport struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Status     *ExpenseStatus  `json:"status,omitempty"`
	Count      int             `json:"count"`
	Total      Money           `json:"total"`
	ByCategory []BreakdownLine `json:"by_category"`
	ByVendor   []BreakdownLine `json:"by_vendor"`
}

// Statement compares income received with approved spending over a period
type Statement struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalIncome   Money           `json:"total_income"`
	TotalExpenses Money           `json:"total_expenses"`
	TotalPaid     Money           `json:"total_paid"`
	Net           Money           `json:"net"`
	BySource      []BreakdownLine `json:"by_source"`
}

// ReimbursementReport lists reimbursable incomes still owed and recently settled
type ReimbursementReport struct {
	Pending        []*Income `json:"pending"`
	Completed      []*Income `json:"completed"`
	TotalPending   Money     `json:"total_pending"`
	TotalCompleted Money     `json:"total_completed"`
}

// TrendPoint is one month of income against expenses
type TrendPoint struct {
	Month   string `json:"month"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// Dashboard is the financial overview on a given day
type Dashboard struct {
	AsOf                  time.Time       `json:"as_of"`
	TotalIncome           Money           `json:"total_income"`
	TotalExpense          Money           `json:"total_expense"`
	Balance               Money           `json:"balance"`
	MonthIncome           Money           `json:"month_income"`
	MonthExpense          Money           `json:"month_expense"`
	PendingReimbursements Money           `json:"pending_reimbursements"`
	PendingApprovals      int             `json:"pending_approvals"`
	Trend                 []TrendPoint    `json:"trend"`
	TopCategories         []BreakdownLine `json:"top_categories"`
	RecentExpenses        []*Expense      `json:"recent_expenses"`
	RecentIncomes         []*Income       `json:"recent_incomes"`
}

// MonthRange returns the first day of the month and the first day of the next one
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// SortBreakdown orders lines by descending total, then label
func SortBreakdown(lines []BreakdownLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if c := lines[i].Total.Cmp(lines[j].Total); c != 0 {
			return c > 0
		}
		return lines[i].Label < lines[j].Label
	})
}

// SumBreakdown totals the lines
func SumBreakdown(lines []BreakdownLine) (Money, int) {
	total := Zero
	count := 0
	for _, l := range lines {
		total = total.Add(l.Total)
		count += l.Count
	}
	return total, count
}
