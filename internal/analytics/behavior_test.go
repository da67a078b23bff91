package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/underwriting-risk/internal/domain"
)

func withBalance(txn domain.Transaction, balance float64) domain.Transaction {
	txn.BalanceAfter = &balance
	return txn
}

func TestAnalyzeBehaviorBalancesAndCounts(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		withBalance(credit("2025-01-05", 50000, "SALARY CREDIT"), 60000),
		withBalance(debit("2025-01-10", 15000, "RENT"), 45000),
		withBalance(debit("2025-01-20", 10000, "ATM WITHDRAWAL"), 35000),
	}
	income := IncomeAnalysis{AverageMonthlySalary: 50000}

	behavior := a.AnalyzeBehavior(txns, income)

	assert.Equal(t, 2, behavior.TotalDebits)
	assert.Equal(t, 1, behavior.TotalCredits)
	assert.Equal(t, 3, behavior.TotalTransactions)
	assert.Equal(t, 35000.0, behavior.MinimumBalance)
	assert.Equal(t, 60000.0, behavior.MaximumBalance)
	assert.InDelta(t, 46666.67, behavior.AverageMonthlyBalance, 0.01)
	assert.InDelta(t, 93.33, behavior.AMBToIncomeRatio, 0.01)
	assert.Equal(t, LiquidityHealthy, behavior.LiquidityStatus)
}

func TestAnalyzeBehaviorLiquidityBands(t *testing.T) {
	a := newTestAnalyzer(t)
	income := IncomeAnalysis{AverageMonthlySalary: 50000}

	// AMB 2,000 against a 50,000 salary: 4%, below the stressed cutoff.
	stressed := a.AnalyzeBehavior([]domain.Transaction{
		withBalance(debit("2025-01-10", 500, "UPI"), 2000),
	}, income)
	assert.Equal(t, LiquidityStressed, stressed.LiquidityStatus)

	// AMB 15,000: 30%, between stressed and moderate cutoffs.
	moderate := a.AnalyzeBehavior([]domain.Transaction{
		withBalance(debit("2025-01-10", 500, "UPI"), 15000),
	}, income)
	assert.Equal(t, LiquidityModerate, moderate.LiquidityStatus)

	// No income at all reads as stressed, never healthy.
	noIncome := a.AnalyzeBehavior([]domain.Transaction{
		withBalance(debit("2025-01-10", 500, "UPI"), 15000),
	}, IncomeAnalysis{})
	assert.Equal(t, LiquidityStressed, noIncome.LiquidityStatus)
}

func TestAnalyzeBehaviorCashWithdrawals(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		debit("2025-01-05", 10000, "ATM WITHDRAWAL MG ROAD"),
		debit("2025-01-12", 20000, "CASH WD BRANCH"),
		debit("2025-01-20", 60000, "ATM CASH WITHDRAWAL"),
		debit("2025-01-25", 5000, "UPI GROCERIES"),
	}

	behavior := a.AnalyzeBehavior(txns, IncomeAnalysis{})
	cash := behavior.CashWithdrawals

	assert.Equal(t, 3, cash.TotalCount)
	assert.Equal(t, 90000.0, cash.TotalAmount)
	assert.Equal(t, 30000.0, cash.AverageAmount)
	require.Len(t, cash.LargeWithdrawals, 1)
	assert.Equal(t, 60000.0, cash.LargeWithdrawals[0].Amount)
}
