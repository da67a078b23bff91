package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// SalaryCredit is one detected salary transaction.
type SalaryCredit struct {
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	TransactionID string    `json:"transaction_id,omitempty"`
}

// SalaryGaps reports calendar months within the statement period that have
// no salary credit.
type SalaryGaps struct {
	HasGaps                 bool      `json:"has_gaps"`
	MissingMonths           []string  `json:"missing_months"`
	MonthsWithSalary        int       `json:"months_with_salary"`
	TotalSalaryTransactions int       `json:"total_salary_transactions"`
	ExpectedMonths          int       `json:"expected_months"`
	PeriodFrom              time.Time `json:"period_from"`
	PeriodTo                time.Time `json:"period_to"`
	Message                 string    `json:"message,omitempty"`
}

// IncomeAnalysis is the income characterization output.
type IncomeAnalysis struct {
	SalaryDetected       bool           `json:"salary_detected"`
	PatternDetected      bool           `json:"pattern_detected"`
	TotalSalaryCredits   int            `json:"total_salary_credits"`
	AverageMonthlySalary float64        `json:"average_monthly_salary"`
	SalaryAmounts        []float64      `json:"salary_amounts"`
	SalaryTransactions   []SalaryCredit `json:"salary_transactions"`
	ConsistencyScore     float64        `json:"salary_consistency_score"`
	SalaryStdDev         float64        `json:"salary_standard_deviation"`
	LastSalaryDate       *time.Time     `json:"last_salary_date,omitempty"`
	DaysSinceLastSalary  *int           `json:"days_since_last_salary,omitempty"`
	SalaryGapFlag        bool           `json:"salary_gap_flag"`
	Gaps                 SalaryGaps     `json:"salary_gaps"`
	MonthlySalaryCount   int            `json:"monthly_salary_count"`
}

// AnalyzeIncome detects salary credits and characterizes income stability.
// Primary detection is keyword matching; a pattern-based fallback runs only
// when zero keyword matches exist, and still requires a salary-indicative
// term in the description so cash deposits are never counted as salaries.
func (a *Analyzer) AnalyzeIncome(txns []domain.Transaction, account *domain.AccountInfo) IncomeAnalysis {
	var candidates []SalaryCredit
	keywordMatched := false

	for _, txn := range txns {
		if txn.Type != domain.TransactionCredit || txn.CreditAmount <= 0 {
			continue
		}
		if a.rules.IsSalary(txn.Description) {
			keywordMatched = true
			candidates = append(candidates, SalaryCredit{
				Date:          txn.Date,
				Amount:        txn.CreditAmount,
				Description:   txn.Description,
				TransactionID: txn.TransactionID,
			})
		}
	}

	patternDetected := false
	if !keywordMatched {
		candidates = a.detectSalaryByPattern(txns)
		patternDetected = len(candidates) > 0
	}

	salaries := dedupSalaries(candidates)

	out := IncomeAnalysis{
		SalaryDetected:     len(salaries) > 0,
		PatternDetected:    patternDetected,
		TotalSalaryCredits: len(salaries),
		SalaryTransactions: salaries,
		SalaryAmounts:      make([]float64, 0, len(salaries)),
		ConsistencyScore:   100,
	}
	for _, s := range salaries {
		out.SalaryAmounts = append(out.SalaryAmounts, s.Amount)
	}

	if len(out.SalaryAmounts) > 0 {
		out.AverageMonthlySalary = round2(mean(out.SalaryAmounts))
	}
	if len(out.SalaryAmounts) > 1 {
		out.SalaryStdDev = round2(stddev(out.SalaryAmounts))
	}
	if out.AverageMonthlySalary > 0 && out.SalaryStdDev > 0 {
		cv := out.SalaryStdDev / out.AverageMonthlySalary * 100
		out.ConsistencyScore = round2(math.Max(0, 100-cv))
	}

	months := map[string]struct{}{}
	var last time.Time
	for _, s := range salaries {
		if s.Date.IsZero() {
			continue
		}
		months[s.Date.Format("2006-01")] = struct{}{}
		if s.Date.After(last) {
			last = s.Date
		}
	}
	out.MonthlySalaryCount = len(months)
	if !last.IsZero() {
		lastCopy := last
		out.LastSalaryDate = &lastCopy
	}

	// Salary delay is only meaningful for recent statements. For historical
	// ones the check is suppressed entirely.
	if out.LastSalaryDate != nil && account != nil && account.PeriodTo != nil {
		statementEnd := *account.PeriodTo
		days := int(statementEnd.Sub(*out.LastSalaryDate).Hours() / 24)
		if int(a.now().Sub(statementEnd).Hours()/24) <= a.cfg.StatementRecencyDays {
			out.DaysSinceLastSalary = &days
			out.SalaryGapFlag = days > a.cfg.SalaryDelayDays
		}
	}

	out.Gaps = a.detectSalaryGaps(salaries, account)
	return out
}

// detectSalaryByPattern groups salary-worded credits by amount similarity
// and accepts groups with at least two occurrences. A monthly cadence
// (25-35, 55-65 or 85-95 days apart) corroborates a group but is not
// required: a consistent amount paid twice is treated as salary even when
// the interval is irregular.
func (a *Analyzer) detectSalaryByPattern(txns []domain.Transaction) []SalaryCredit {
	var candidates []SalaryCredit
	for _, txn := range txns {
		if txn.Type != domain.TransactionCredit || txn.CreditAmount <= 0 || !txn.DateValid {
			continue
		}
		upper := strings.ToUpper(txn.Description)
		if !strings.Contains(upper, "SALARY") && !strings.Contains(upper, "SAL") {
			continue
		}
		candidates = append(candidates, SalaryCredit{
			Date:          txn.Date,
			Amount:        txn.CreditAmount,
			Description:   txn.Description,
			TransactionID: txn.TransactionID,
		})
	}
	if len(candidates) < 2 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Date.Before(candidates[j].Date) })

	// Group by amount similarity within the configured window.
	var groups [][]SalaryCredit
	for _, c := range candidates {
		placed := false
		for gi := range groups {
			ref := groups[gi][0].Amount
			lo := math.Min(ref, c.Amount)
			if lo <= 0 {
				continue
			}
			diffPct := math.Abs(c.Amount-ref) / lo * 100
			if diffPct <= a.cfg.AmountSimilarityPct {
				groups[gi] = append(groups[gi], c)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []SalaryCredit{c})
		}
	}

	var accepted []SalaryCredit
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		monthlyIntervals := 0
		for i := 0; i < len(group)-1; i++ {
			days := int(group[i+1].Date.Sub(group[i].Date).Hours() / 24)
			if (days >= 25 && days <= 35) || (days >= 55 && days <= 65) || (days >= 85 && days <= 95) {
				monthlyIntervals++
			}
		}
		a.logger.Debug("Pattern-detected salary group",
			zap.Float64("reference_amount", group[0].Amount),
			zap.Int("occurrences", len(group)),
			zap.Int("monthly_intervals", monthlyIntervals),
		)
		accepted = append(accepted, group...)
	}
	return accepted
}

// dedupSalaries drops true same-day repeats while retaining the same amount
// paid in different months. The key is (date, amount, whitespace-normalized
// upper description) rather than transaction id alone.
func dedupSalaries(candidates []SalaryCredit) []SalaryCredit {
	type key struct {
		date   string
		amount float64
		desc   string
	}
	seen := map[key]struct{}{}
	out := make([]SalaryCredit, 0, len(candidates))
	for _, c := range candidates {
		k := key{
			date:   c.Date.Format("2006-01-02"),
			amount: c.Amount,
			desc:   strings.Join(strings.Fields(strings.ToUpper(c.Description)), " "),
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// detectSalaryGaps enumerates all calendar months in the statement period
// and reports those without a salary credit. When no period is declared,
// the window defaults to DefaultPeriodDays back from the latest salary.
func (a *Analyzer) detectSalaryGaps(salaries []SalaryCredit, account *domain.AccountInfo) SalaryGaps {
	if len(salaries) == 0 {
		return SalaryGaps{HasGaps: true, MissingMonths: []string{}, Message: "No salary transactions found"}
	}

	var periodStart, periodEnd time.Time
	if account != nil && account.PeriodFrom != nil {
		periodStart = *account.PeriodFrom
	}
	if account != nil && account.PeriodTo != nil {
		periodEnd = *account.PeriodTo
	}
	if periodStart.IsZero() || periodEnd.IsZero() {
		latest := salaries[0].Date
		for _, s := range salaries {
			if s.Date.After(latest) {
				latest = s.Date
			}
		}
		periodEnd = latest
		periodStart = periodEnd.AddDate(0, 0, -a.cfg.DefaultPeriodDays)
	}

	monthsWith := map[string]struct{}{}
	inPeriod := 0
	for _, s := range salaries {
		if s.Date.Before(periodStart) || s.Date.After(periodEnd) {
			continue
		}
		inPeriod++
		monthsWith[s.Date.Format("2006-01")] = struct{}{}
	}
	if inPeriod == 0 {
		return SalaryGaps{
			HasGaps:       true,
			MissingMonths: []string{},
			PeriodFrom:    periodStart,
			PeriodTo:      periodEnd,
			Message:       "No salaries found in statement period",
		}
	}

	var expected []string
	cursor := time.Date(periodStart.Year(), periodStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	endMonth := time.Date(periodEnd.Year(), periodEnd.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(endMonth) {
		expected = append(expected, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, 1, 0)
	}

	missing := []string{}
	for _, month := range expected {
		if _, ok := monthsWith[month]; !ok {
			missing = append(missing, month)
		}
	}

	gaps := SalaryGaps{
		HasGaps:                 len(missing) > 0,
		MissingMonths:           missing,
		MonthsWithSalary:        len(monthsWith),
		TotalSalaryTransactions: inPeriod,
		ExpectedMonths:          len(expected),
		PeriodFrom:              periodStart,
		PeriodTo:                periodEnd,
	}
	if gaps.HasGaps {
		gaps.Message = fmt.Sprintf("Missing salary payments in %d month(s)", len(missing))
	}
	return gaps
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
