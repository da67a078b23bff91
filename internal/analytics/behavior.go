package analytics

import (
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
)

// LiquidityStatus bands the average-balance-to-income ratio.
type LiquidityStatus string

const (
	LiquidityStressed LiquidityStatus = "STRESSED"
	LiquidityModerate LiquidityStatus = "MODERATE"
	LiquidityHealthy  LiquidityStatus = "HEALTHY"
)

// CashWithdrawal is one ATM/cash debit.
type CashWithdrawal struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
}

// CashWithdrawalSummary aggregates cash usage over the statement.
type CashWithdrawalSummary struct {
	TotalCount       int              `json:"total_count"`
	AverageAmount    float64          `json:"average_amount"`
	TotalAmount      float64          `json:"total_amount"`
	LargeWithdrawals []CashWithdrawal `json:"large_withdrawals"`
}

// BehaviorAnalysis characterizes balance maintenance and cash habits.
type BehaviorAnalysis struct {
	AverageMonthlyBalance float64               `json:"average_monthly_balance"`
	MinimumBalance        float64               `json:"minimum_balance"`
	MaximumBalance        float64               `json:"maximum_balance"`
	AMBToIncomeRatio      float64               `json:"amb_to_income_ratio"`
	LiquidityStatus       LiquidityStatus       `json:"liquidity_status"`
	TotalDebits           int                   `json:"total_debits"`
	TotalCredits          int                   `json:"total_credits"`
	TotalTransactions     int                   `json:"total_transactions"`
	AvgTransactionsMonth  float64               `json:"average_transactions_per_month"`
	CashWithdrawals       CashWithdrawalSummary `json:"cash_withdrawals"`
}

// AnalyzeBehavior computes balance and cash-withdrawal metrics from the
// normalized transaction set. Balance metrics only use rows that carry a
// balance_after value.
func (a *Analyzer) AnalyzeBehavior(txns []domain.Transaction, income IncomeAnalysis) BehaviorAnalysis {
	var balances []float64
	var withdrawals []CashWithdrawal
	totalDebits, totalCredits := 0, 0

	for _, txn := range txns {
		if txn.BalanceAfter != nil {
			balances = append(balances, *txn.BalanceAfter)
		}
		switch txn.Type {
		case domain.TransactionDebit:
			totalDebits++
			if txn.DebitAmount > 0 && a.rules.IsCashWithdrawal(txn.Description) {
				withdrawals = append(withdrawals, CashWithdrawal{
					Date:        txn.Date,
					Amount:      txn.DebitAmount,
					Description: txn.Description,
				})
			}
		case domain.TransactionCredit:
			totalCredits++
		}
	}

	out := BehaviorAnalysis{
		TotalDebits:       totalDebits,
		TotalCredits:      totalCredits,
		TotalTransactions: len(txns),
	}
	if len(txns) > 0 {
		out.AvgTransactionsMonth = round2(float64(len(txns)) / 6)
	}

	if len(balances) > 0 {
		out.AverageMonthlyBalance = round2(mean(balances))
		minBal, maxBal := balances[0], balances[0]
		for _, b := range balances[1:] {
			if b < minBal {
				minBal = b
			}
			if b > maxBal {
				maxBal = b
			}
		}
		out.MinimumBalance = round2(minBal)
		out.MaximumBalance = round2(maxBal)
	}

	if income.AverageMonthlySalary > 0 {
		out.AMBToIncomeRatio = round2(out.AverageMonthlyBalance / income.AverageMonthlySalary * 100)
	}
	switch {
	case out.AMBToIncomeRatio < a.cfg.LiquidityStressedPct:
		out.LiquidityStatus = LiquidityStressed
	case out.AMBToIncomeRatio < a.cfg.LiquidityModeratePct:
		out.LiquidityStatus = LiquidityModerate
	default:
		out.LiquidityStatus = LiquidityHealthy
	}

	summary := CashWithdrawalSummary{TotalCount: len(withdrawals), LargeWithdrawals: []CashWithdrawal{}}
	if len(withdrawals) > 0 {
		total := 0.0
		for _, w := range withdrawals {
			total += w.Amount
			if w.Amount > a.cfg.LargeWithdrawalCutoff {
				summary.LargeWithdrawals = append(summary.LargeWithdrawals, w)
			}
		}
		summary.TotalAmount = round2(total)
		summary.AverageAmount = round2(total / float64(len(withdrawals)))
	}
	out.CashWithdrawals = summary
	return out
}
