package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// MonthlyReportRequest selects the month and optional status to report on
type MonthlyReportRequest struct {
	Year   int
	Month  time.Month
	Status *domain.ExpenseStatus
}

// StatementRequest selects an inclusive date range
type StatementRequest struct {
	From string
	To   string
}

// ReportUseCase builds financial reports
type ReportUseCase struct {
	deps  Deps
	chart ports.ChartRenderer
}

// NewReportUseCase creates a new report use case; chart may be nil when images are not served
func NewReportUseCase(deps Deps, chart ports.ChartRenderer) *ReportUseCase {
	return &ReportUseCase{deps: deps.withDefaults(), chart: chart}
}

func (uc *ReportUseCase) normalize(req MonthlyReportRequest) (MonthlyReportRequest, error) {
	now := uc.deps.Clock.Now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = now.Month()
	}
	if req.Year < 1970 || req.Year > 9999 {
		return req, domain.NewValidationError("year", "year is out of range")
	}
	if req.Month < time.January || req.Month > time.December {
		return req, domain.NewValidationError("month", "month must be between 1 and 12")
	}
	if req.Status != nil && !req.Status.Valid() {
		return req, domain.NewValidationError("status", "status must be pending, approved or rejected")
	}
	return req, nil
}

// Monthly totals one month of expenses by category and by vendor
func (uc *ReportUseCase) Monthly(ctx context.Context, actor domain.Actor, req MonthlyReportRequest) (*domain.MonthlyExpenseReport, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionReports); err != nil {
		return nil, err
	}

	req, err := uc.normalize(req)
	if err != nil {
		return nil, err
	}

	from, to := domain.MonthRange(req.Year, req.Month)
	q := ports.ReportQuery{From: from, To: to, Status: req.Status}

	reports := uc.deps.Store.Repos().Reports
	byCategory, err := reports.ExpensesByCategory(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses by category: %w", err)
	}
	byVendor, err := reports.ExpensesByVendor(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses by vendor: %w", err)
	}

	total, count := domain.SumBreakdown(byCategory)
	if byCategory == nil {
		byCategory = []domain.BreakdownLine{}
	}
	if byVendor == nil {
		byVendor = []domain.BreakdownLine{}
	}

	return &domain.MonthlyExpenseReport{
		Year:       req.Year,
		Month:      req.Month,
		Status:     req.Status,
		Count:      count,
		Total:      total,
		ByCategory: byCategory,
		ByVendor:   byVendor,
	}, nil
}

// Statement compares income with approved expenses and payments over a date range
func (uc *ReportUseCase) Statement(ctx context.Context, actor domain.Actor, req StatementRequest) (*domain.Statement, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionReports); err != nil {
		return nil, err
	}

	now := uc.deps.Clock.Now()
	monthStart, _ := domain.MonthRange(now.Year(), now.Month())
	from, err := parseOptionalDate("from", req.From, monthStart)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate("to", req.To, now)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, domain.NewValidationError("to", "to must not be before from")
	}
	// the range is inclusive; queries take a half-open interval
	end := to.AddDate(0, 0, 1)

	approved := domain.ExpenseStatusApproved
	reports := uc.deps.Store.Repos().Reports

	expenses, err := reports.ExpensesByCategory(ctx, ports.ReportQuery{From: from, To: end, Status: &approved})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	bySource, err := reports.IncomeBySource(ctx, from, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate income: %w", err)
	}
	paid, err := reports.PaymentsTotal(ctx, from, end)
	if err != nil {
		return nil, fmt.Errorf("failed to total payments: %w", err)
	}

	totalExpenses, _ := domain.SumBreakdown(expenses)
	totalIncome, _ := domain.SumBreakdown(bySource)
	if bySource == nil {
		bySource = []domain.BreakdownLine{}
	}

	return &domain.Statement{
		From:          from,
		To:            to,
		TotalIncome:   totalIncome,
		TotalExpenses: totalExpenses,
		TotalPaid:     paid,
		Net:           totalIncome.Sub(totalExpenses),
		BySource:      bySource,
	}, nil
}

// MonthlyChart renders the month's category breakdown as a PNG
func (uc *ReportUseCase) MonthlyChart(ctx context.Context, actor domain.Actor, req MonthlyReportRequest, w io.Writer) error {
	if uc.chart == nil {
		return fmt.Errorf("chart rendering is not configured")
	}

	report, err := uc.Monthly(ctx, actor, req)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Expenses by category, %s %d", report.Month, report.Year)
	if err := uc.chart.RenderBreakdown(w, title, report.ByCategory); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

const (
	trendMonths          = 6
	topCategoryCount     = 8
	recentItemCount      = 5
	completedReportLimit = 20
)

// Reimbursements lists reimbursable incomes still owed and the most recently settled ones
func (uc *ReportUseCase) Reimbursements(ctx context.Context, actor domain.Actor) (*domain.ReimbursementReport, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionReports); err != nil {
		return nil, err
	}

	reimbursable, no, yes := true, false, true
	incomes := uc.deps.Store.Repos().Incomes

	pending, err := incomes.List(ctx, domain.IncomeFilter{Reimbursable: &reimbursable, Reimbursed: &no})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reimbursements: %w", err)
	}
	completed, err := incomes.List(ctx, domain.IncomeFilter{Reimbursable: &reimbursable, Reimbursed: &yes})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed reimbursements: %w", err)
	}

	report := &domain.ReimbursementReport{
		Pending:        []*domain.Income{},
		Completed:      []*domain.Income{},
		TotalPending:   domain.Zero,
		TotalCompleted: domain.Zero,
	}
	for _, income := range pending {
		report.TotalPending = report.TotalPending.Add(income.Amount)
		report.Pending = append(report.Pending, income)
	}
	for i, income := range completed {
		report.TotalCompleted = report.TotalCompleted.Add(income.Amount)
		if i < completedReportLimit {
			report.Completed = append(report.Completed, income)
		}
	}
	return report, nil
}

// Dashboard builds the financial overview for today: all-time and current month totals,
// a six month trend, top categories of the year and the latest activity.
// Rejected expenses are left out of every expense figure.
func (uc *ReportUseCase) Dashboard(ctx context.Context, actor domain.Actor) (*domain.Dashboard, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	today := domain.DateOf(uc.deps.Clock.Now())
	repos := uc.deps.Store.Repos()

	overview, err := repos.Reports.Overview(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute overview: %w", err)
	}

	dashboard := &domain.Dashboard{
		AsOf:                  today,
		TotalIncome:           overview.TotalIncome,
		TotalExpense:          overview.TotalExpense,
		Balance:               overview.TotalIncome.Sub(overview.TotalExpense),
		PendingReimbursements: overview.PendingReimbursements,
	}

	pending := domain.ExpenseStatusPending
	dashboard.PendingApprovals, err = repos.Expenses.Count(ctx, domain.ExpenseFilter{Status: &pending})
	if err != nil {
		return nil, fmt.Errorf("failed to count pending approvals: %w", err)
	}

	dashboard.Trend = make([]domain.TrendPoint, 0, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		first := time.Date(today.Year(), today.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		point, err := uc.monthPoint(ctx, repos.Reports, first.Year(), first.Month())
		if err != nil {
			return nil, err
		}
		dashboard.Trend = append(dashboard.Trend, point)
	}
	current := dashboard.Trend[len(dashboard.Trend)-1]
	dashboard.MonthIncome = current.Income
	dashboard.MonthExpense = current.Expense

	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	categories, err := repos.Reports.ExpensesByCategory(ctx, ports.ReportQuery{
		From: yearStart, To: today.AddDate(0, 0, 1), ExcludeRejected: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	domain.SortBreakdown(categories)
	if len(categories) > topCategoryCount {
		categories = categories[:topCategoryCount]
	}
	dashboard.TopCategories = append([]domain.BreakdownLine{}, categories...)

	expenses, err := repos.Expenses.List(ctx, domain.ExpenseFilter{Limit: recentItemCount})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent expenses: %w", err)
	}
	incomes, err := repos.Incomes.List(ctx, domain.IncomeFilter{Limit: recentItemCount})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent incomes: %w", err)
	}
	dashboard.RecentExpenses = append([]*domain.Expense{}, expenses...)
	dashboard.RecentIncomes = append([]*domain.Income{}, incomes...)

	return dashboard, nil
}

func (uc *ReportUseCase) monthPoint(ctx context.Context, reports ports.ReportRepository, year int, month time.Month) (domain.TrendPoint, error) {
	from, to := domain.MonthRange(year, month)

	expenses, err := reports.ExpensesByCategory(ctx, ports.ReportQuery{From: from, To: to, ExcludeRejected: true})
	if err != nil {
		return domain.TrendPoint{}, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	incomes, err := reports.IncomeBySource(ctx, from, to)
	if err != nil {
		return domain.TrendPoint{}, fmt.Errorf("failed to aggregate income: %w", err)
	}

	expense, _ := domain.SumBreakdown(expenses)
	income, _ := domain.SumBreakdown(incomes)
	return domain.TrendPoint{Month: from.Format("2006-01"), Income: income, Expense: expense}, nil
}
