package analytics

import (
	"testing"
	"time"

	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return NewAnalyzer(config.DefaultAnalytics(), DefaultRuleSet(), nil, zap.NewNop())
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func credit(day string, amount float64, desc string) domain.Transaction {
	return domain.Transaction{
		Date: date(day), DateValid: true,
		Description: desc, Type: domain.TransactionCredit, CreditAmount: amount,
	}
}

func debit(day string, amount float64, desc string) domain.Transaction {
	return domain.Transaction{
		Date: date(day), DateValid: true,
		Description: desc, Type: domain.TransactionDebit, DebitAmount: amount,
	}
}

func TestAnalyzeIncomeDetectsSalary(t *testing.T) {
	a := newTestAnalyzer(t)

	from, to := date("2025-01-01"), date("2025-02-28")
	account := &domain.AccountInfo{PeriodFrom: &from, PeriodTo: &to}

	txns := []domain.Transaction{
		credit("2025-01-05", 50000, "SALARY CREDIT ACME CORP"),
		credit("2025-02-05", 50000, "SALARY CREDIT ACME CORP"),
		debit("2025-01-10", 15000, "RENT PAYMENT"),
		credit("2025-01-20", 2000, "UPI REFUND"),
	}

	income := a.AnalyzeIncome(txns, account)

	assert.True(t, income.SalaryDetected)
	assert.False(t, income.PatternDetected)
	assert.Equal(t, 2, income.TotalSalaryCredits)
	assert.Equal(t, 50000.0, income.AverageMonthlySalary)
	assert.Equal(t, 100.0, income.ConsistencyScore)
	assert.False(t, income.Gaps.HasGaps)
	assert.Empty(t, income.Gaps.MissingMonths)
	assert.Equal(t, 2, income.Gaps.ExpectedMonths)
	require.NotNil(t, income.LastSalaryDate)
	assert.Equal(t, date("2025-02-05"), *income.LastSalaryDate)
}

func TestAnalyzeIncomeFlagsMissingMonths(t *testing.T) {
	a := newTestAnalyzer(t)

	from, to := date("2025-01-01"), date("2025-03-31")
	account := &domain.AccountInfo{PeriodFrom: &from, PeriodTo: &to}

	txns := []domain.Transaction{
		credit("2025-01-05", 50000, "SALARY CREDIT"),
		credit("2025-03-05", 50000, "SALARY CREDIT"),
	}

	income := a.AnalyzeIncome(txns, account)

	assert.True(t, income.Gaps.HasGaps)
	assert.Equal(t, []string{"2025-02"}, income.Gaps.MissingMonths)
	assert.Equal(t, 2, income.Gaps.MonthsWithSalary)
	assert.Equal(t, 3, income.Gaps.ExpectedMonths)
}

func TestAnalyzeIncomeSalaryDelayOnlyForRecentStatements(t *testing.T) {
	a := newTestAnalyzer(t)
	a.now = func() time.Time { return date("2025-04-15") }

	from, to := date("2025-01-01"), date("2025-03-31")
	account := &domain.AccountInfo{PeriodFrom: &from, PeriodTo: &to}

	// Last salary 84 days before statement end.
	txns := []domain.Transaction{
		credit("2025-01-06", 50000, "SALARY CREDIT"),
	}
	income := a.AnalyzeIncome(txns, account)
	require.NotNil(t, income.DaysSinceLastSalary)
	assert.Equal(t, 84, *income.DaysSinceLastSalary)
	assert.True(t, income.SalaryGapFlag)

	// Same statement analyzed a year later: historical, no flag.
	a.now = func() time.Time { return date("2026-04-15") }
	income = a.AnalyzeIncome(txns, account)
	assert.Nil(t, income.DaysSinceLastSalary)
	assert.False(t, income.SalaryGapFlag)
}

func TestAnalyzeIncomeDeduplicatesSameDayRepeats(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		credit("2025-01-05", 50000, "SALARY CREDIT"),
		credit("2025-01-05", 50000, "SALARY  CREDIT"), // whitespace variant, same key
		credit("2025-02-05", 50000, "SALARY CREDIT"),
	}

	income := a.AnalyzeIncome(txns, nil)
	assert.Equal(t, 2, income.TotalSalaryCredits)
}

func TestDetectSalaryByPatternRequiresSalaryWording(t *testing.T) {
	rules := DefaultRuleSet()
	rules.SalaryKeywords = []string{"NEVERMATCH"}
	a := NewAnalyzer(config.DefaultAnalytics(), rules, nil, zap.NewNop())

	// Similar amounts, monthly cadence, but no salary wording: not income.
	txns := []domain.Transaction{
		credit("2025-01-03", 40000, "CASH DEPOSIT"),
		credit("2025-02-03", 40000, "CASH DEPOSIT"),
	}
	income := a.AnalyzeIncome(txns, nil)
	assert.False(t, income.SalaryDetected)

	// With salary wording the pattern fallback accepts the group.
	txns = []domain.Transaction{
		credit("2025-01-03", 40000, "XYZ SAL JAN"),
		credit("2025-02-03", 40200, "XYZ SAL FEB"),
	}
	income = a.AnalyzeIncome(txns, nil)
	assert.True(t, income.SalaryDetected)
	assert.True(t, income.PatternDetected)
	assert.Equal(t, 2, income.TotalSalaryCredits)
}
