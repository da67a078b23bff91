package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/underwriting-risk/internal/domain"
)

func TestValidateSequenceReconciles(t *testing.T) {
	a := newTestAnalyzer(t)

	opening, closing := 10000.0, 12000.0
	account := &domain.AccountInfo{OpeningBalance: &opening, ClosingBalance: &closing}

	txns := []domain.Transaction{
		credit("2025-01-05", 5000, "NEFT CREDIT"),
		debit("2025-01-10", 3000, "RENT"),
	}

	assert.Empty(t, a.ValidateSequence(txns, account))
}

func TestValidateSequenceFlagsMismatch(t *testing.T) {
	a := newTestAnalyzer(t)

	opening, closing := 10000.0, 11000.0
	account := &domain.AccountInfo{OpeningBalance: &opening, ClosingBalance: &closing}

	txns := []domain.Transaction{
		credit("2025-01-05", 5000, "NEFT CREDIT"),
		debit("2025-01-10", 3000, "RENT"),
	}

	errs := a.ValidateSequence(txns, account)
	require.Len(t, errs, 1)
	assert.Equal(t, 12000.0, errs[0].ExpectedClosing)
	assert.Equal(t, 11000.0, errs[0].ActualClosing)
	assert.Equal(t, 1000.0, errs[0].Difference)
	assert.Equal(t, "Opening (10000.00) + Credits (5000.00) - Debits (3000.00) = Expected Closing (12000.00)", errs[0].Formula)
}

func TestValidateSequenceToleranceAbsorbsRounding(t *testing.T) {
	a := newTestAnalyzer(t)

	opening, closing := 10000.0, 12000.5
	account := &domain.AccountInfo{OpeningBalance: &opening, ClosingBalance: &closing}

	txns := []domain.Transaction{
		credit("2025-01-05", 5000, "NEFT CREDIT"),
		debit("2025-01-10", 3000, "RENT"),
	}

	assert.Empty(t, a.ValidateSequence(txns, account))
}

func TestValidateSequenceDerivesBalancesFromRows(t *testing.T) {
	a := newTestAnalyzer(t)

	bal1, bal2 := 15000.0, 12000.0
	txns := []domain.Transaction{
		credit("2025-01-05", 5000, "NEFT CREDIT"),
		debit("2025-01-10", 3000, "RENT"),
	}
	txns[0].BalanceAfter = &bal1
	txns[1].BalanceAfter = &bal2

	// Derived opening 10000, derived closing 12000: equation holds.
	assert.Empty(t, a.ValidateSequence(txns, nil))
}

func TestValidateSequenceSkipsWithoutBalances(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		credit("2025-01-05", 5000, "NEFT CREDIT"),
	}
	assert.Empty(t, a.ValidateSequence(txns, nil))
}

func TestValidateSequenceFiltersToStatementPeriod(t *testing.T) {
	a := newTestAnalyzer(t)

	opening, closing := 10000.0, 12000.0
	from, to := date("2025-01-01"), date("2025-01-31")
	account := &domain.AccountInfo{
		OpeningBalance: &opening, ClosingBalance: &closing,
		PeriodFrom: &from, PeriodTo: &to,
	}

	// The December row is outside the period; with it the equation would
	// fail, without it the statement reconciles.
	txns := []domain.Transaction{
		debit("2024-12-20", 9999, "OLD DEBIT"),
		credit("2025-01-05", 5000, "NEFT CREDIT"),
		debit("2025-01-10", 3000, "RENT"),
	}

	assert.Empty(t, a.ValidateSequence(txns, account))
}

func TestDetectRoundTripping(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		credit("2025-01-05", 100000, "IMPS CREDIT FROM FRIEND"),
		debit("2025-01-08", 98000, "IMPS TRANSFER OUT"),
	}

	trips := a.DetectRoundTripping(txns)
	require.Len(t, trips, 1)
	assert.Equal(t, 3, trips[0].DaysDiff)
	assert.Equal(t, 2.0, trips[0].AmountDiffPct)
	assert.Equal(t, 100000.0, trips[0].CreditAmount)
	assert.Equal(t, 98000.0, trips[0].DebitAmount)
}

func TestDetectRoundTrippingOutsideWindow(t *testing.T) {
	a := newTestAnalyzer(t)

	txns := []domain.Transaction{
		credit("2025-01-05", 100000, "IMPS CREDIT FROM FRIEND"),
		debit("2025-01-15", 98000, "IMPS TRANSFER OUT"), // 10 days later
	}
	assert.Empty(t, a.DetectRoundTripping(txns))
}

func TestDetectRoundTrippingIgnoresSmallCredits(t *testing.T) {
	a := newTestAnalyzer(t)

	// At or below the large-credit threshold nothing is scanned.
	txns := []domain.Transaction{
		credit("2025-01-05", 50000, "NEFT CREDIT"),
		debit("2025-01-07", 49000, "NEFT OUT"),
	}
	assert.Empty(t, a.DetectRoundTripping(txns))
}

func TestDetectRoundTrippingAmountMismatch(t *testing.T) {
	a := newTestAnalyzer(t)

	// Debit is 40% off the credit, well outside the similarity band.
	txns := []domain.Transaction{
		credit("2025-01-05", 100000, "IMPS CREDIT"),
		debit("2025-01-07", 60000, "IMPS OUT"),
	}
	assert.Empty(t, a.DetectRoundTripping(txns))
}

func TestAnalyzeFraudCountsAnomalyCategories(t *testing.T) {
	a := newTestAnalyzer(t)

	opening, closing := 0.0, 5000.0
	account := &domain.AccountInfo{OpeningBalance: &opening, ClosingBalance: &closing}

	txns := []domain.Transaction{
		credit("2025-01-05", 100000, "IMPS CREDIT"),
		debit("2025-01-08", 98000, "IMPS OUT"),
	}

	fraud := a.AnalyzeFraud(txns, account)
	assert.Len(t, fraud.RoundTrips, 1)
	assert.Len(t, fraud.SequenceErrors, 1)
	assert.Equal(t, 2, fraud.TotalAnomalies)
}
