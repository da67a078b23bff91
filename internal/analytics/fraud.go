package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// RoundTripInstance records a large credit offset by a similar debit
// shortly after, often indicating a fabricated income event.
type RoundTripInstance struct {
	CreditDate        time.Time `json:"credit_date"`
	CreditAmount      float64   `json:"credit_amount"`
	CreditDescription string    `json:"credit_description"`
	DebitDate         time.Time `json:"debit_date"`
	DebitAmount       float64   `json:"debit_amount"`
	DebitDescription  string    `json:"debit_description"`
	DaysDiff          int       `json:"days_diff"`
	AmountDiffPct     float64   `json:"amount_diff_pct"`
}

// SequenceError is the single reconciliation failure produced when the
// balance equation does not hold. Operands are retained for auditability.
type SequenceError struct {
	ExpectedClosing float64 `json:"expected_balance"`
	ActualClosing   float64 `json:"actual_balance"`
	Difference      float64 `json:"difference"`
	OpeningBalance  float64 `json:"opening_balance"`
	TotalCredits    float64 `json:"total_credits"`
	TotalDebits     float64 `json:"total_debits"`
	Formula         string  `json:"formula"`
}

// FraudAnalysis is the fraud/tamper signal output.
type FraudAnalysis struct {
	RoundTrips     []RoundTripInstance `json:"round_trips"`
	SequenceErrors []SequenceError     `json:"sequence_errors"`
	TotalAnomalies int                 `json:"total_anomalies"`
}

// DetectRoundTripping scans forward from each large credit, bounded to the
// next RoundTripScanLimit transactions, for a debit within the configured
// day window whose amount is within the configured percentage of the
// credit. Matching is greedy: the first hit terminates the search for that
// credit.
func (a *Analyzer) DetectRoundTripping(txns []domain.Transaction) []RoundTripInstance {
	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var instances []RoundTripInstance
	for i, txn := range sorted {
		if txn.Type != domain.TransactionCredit || txn.CreditAmount <= a.cfg.LargeCreditThreshold || !txn.DateValid {
			continue
		}
		limit := i + 1 + a.cfg.RoundTripScanLimit
		if limit > len(sorted) {
			limit = len(sorted)
		}
		for j := i + 1; j < limit; j++ {
			next := sorted[j]
			if next.Type != domain.TransactionDebit || next.DebitAmount <= 0 || !next.DateValid {
				continue
			}
			daysDiff := int(next.Date.Sub(txn.Date).Hours() / 24)
			if daysDiff <= 0 || daysDiff > a.cfg.RoundTripWindowDays {
				continue
			}
			diffPct := math.Abs(txn.CreditAmount-next.DebitAmount) / txn.CreditAmount * 100
			if diffPct < a.cfg.RoundTripAmountPct {
				instances = append(instances, RoundTripInstance{
					CreditDate:        txn.Date,
					CreditAmount:      txn.CreditAmount,
					CreditDescription: txn.Description,
					DebitDate:         next.Date,
					DebitAmount:       next.DebitAmount,
					DebitDescription:  next.Description,
					DaysDiff:          daysDiff,
					AmountDiffPct:     round2(diffPct),
				})
				break
			}
		}
	}
	return instances
}

// ValidateSequence verifies opening + credits - debits == closing within
// the configured tolerance. The transaction set is deduplicated and,
// when a statement period is declared, filtered to it. Declared header
// balances are preferred; absent ones are derived from the first/last
// transaction balances. A violation yields exactly one error carrying the
// formula operands, not a per-transaction enumeration.
func (a *Analyzer) ValidateSequence(txns []domain.Transaction, account *domain.AccountInfo) []SequenceError {
	if len(txns) == 0 {
		return nil
	}

	unique := Deduplicate(txns, a.cfg.DescriptionKeyLength)

	if account != nil && account.PeriodFrom != nil {
		from := *account.PeriodFrom
		var to *time.Time
		if account.PeriodTo != nil {
			to = account.PeriodTo
		}
		filtered := unique[:0:0]
		for _, txn := range unique {
			if !txn.DateValid {
				continue
			}
			if txn.Date.Before(from) {
				continue
			}
			if to != nil && txn.Date.After(*to) {
				continue
			}
			filtered = append(filtered, txn)
		}
		a.logger.Debug("Filtered transactions to statement period",
			zap.Int("before", len(unique)), zap.Int("after", len(filtered)))
		unique = filtered
	}
	if len(unique) == 0 {
		return nil
	}

	sorted := make([]domain.Transaction, len(unique))
	copy(sorted, unique)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var opening *float64
	if account != nil && account.OpeningBalance != nil {
		opening = account.OpeningBalance
	} else if first := sorted[0]; first.BalanceAfter != nil && *first.BalanceAfter != 0 {
		derived := *first.BalanceAfter - first.CreditAmount + first.DebitAmount
		opening = &derived
	}
	if opening == nil {
		a.logger.Warn("Sequence validation skipped: opening balance not available")
		return nil
	}

	var closing *float64
	if account != nil && account.ClosingBalance != nil {
		closing = account.ClosingBalance
	} else if last := sorted[len(sorted)-1]; last.BalanceAfter != nil {
		closing = last.BalanceAfter
	}
	if closing == nil {
		a.logger.Warn("Sequence validation skipped: closing balance not available")
		return nil
	}

	totalCredits, totalDebits := 0.0, 0.0
	for _, txn := range sorted {
		if txn.CreditAmount > 0 {
			totalCredits += txn.CreditAmount
		}
		if txn.DebitAmount > 0 {
			totalDebits += txn.DebitAmount
		}
	}

	expected := *opening + totalCredits - totalDebits
	difference := math.Abs(expected - *closing)
	if difference <= a.cfg.ReconciliationTolerance {
		return nil
	}

	a.logger.Warn("Balance mismatch detected",
		zap.Float64("expected_closing", expected),
		zap.Float64("actual_closing", *closing),
		zap.Float64("difference", difference),
	)
	return []SequenceError{{
		ExpectedClosing: expected,
		ActualClosing:   *closing,
		Difference:      difference,
		OpeningBalance:  *opening,
		TotalCredits:    totalCredits,
		TotalDebits:     totalDebits,
		Formula: fmt.Sprintf("Opening (%.2f) + Credits (%.2f) - Debits (%.2f) = Expected Closing (%.2f)",
			*opening, totalCredits, totalDebits, expected),
	}}
}

// AnalyzeFraud runs both detectors over the normalized set.
func (a *Analyzer) AnalyzeFraud(txns []domain.Transaction, account *domain.AccountInfo) FraudAnalysis {
	out := FraudAnalysis{
		RoundTrips:     a.DetectRoundTripping(txns),
		SequenceErrors: a.ValidateSequence(txns, account),
	}
	if len(out.RoundTrips) > 0 {
		out.TotalAnomalies++
	}
	if len(out.SequenceErrors) > 0 {
		out.TotalAnomalies++
	}
	return out
}
