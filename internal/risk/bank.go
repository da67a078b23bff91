package risk

import (
	"fmt"
	"strings"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// ConvertBankAnalytics folds the bank statement analytics report into the
// unified anomaly format used by the scoring engine.
func (s *Service) ConvertBankAnalytics(report *analytics.BankAnalytics, profile *domain.CustomerProfile) *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()
	if report == nil {
		return out
	}

	s.convertFraudFindings(report, out)
	s.convertIncomeFindings(report, out)
	s.convertObligationFindings(report, profile, out)
	return out
}

func (s *Service) convertFraudFindings(report *analytics.BankAnalytics, out *domain.AnomalyCollection) {
	if instances := report.Fraud.RoundTrips; len(instances) > 0 {
		out.Add(domain.Anomaly{
			Type:     "round_tripping",
			Field:    "transactions",
			Value:    fmt.Sprintf("%d round-tripping instances detected", len(instances)),
			Reason:   fmt.Sprintf("Large credits followed by similar debits (possible fake salary). Found %d instances.", len(instances)),
			Severity: domain.SeverityHigh,
		})
	}
	if errs := report.Fraud.SequenceErrors; len(errs) > 0 {
		e := errs[0]
		out.Add(domain.Anomaly{
			Type:  "transaction_sequence_error",
			Field: "transactions",
			Value: fmt.Sprintf("Balance mismatch: %.2f difference", e.Difference),
			Reason: fmt.Sprintf(
				"Transaction sequence validation failed: %s, but actual closing balance is %.2f (difference: %.2f). This indicates transactions may have been deleted or added manually (possible document tampering).",
				e.Formula, e.ActualClosing, e.Difference),
			Severity: domain.SeverityCritical,
		})
	}
}

func (s *Service) convertIncomeFindings(report *analytics.BankAnalytics, out *domain.AnomalyCollection) {
	income := report.Income

	// Income instability: a low consistency score flags it, and so does a
	// high min-to-max variation even when the consistency score passes.
	// With only two salary points a smaller variation is already significant.
	flag := false
	value, reason := "", ""
	if income.ConsistencyScore < s.analyticsCfg.ConsistencyFloor {
		flag = true
		value = fmt.Sprintf("Consistency score: %.1f", income.ConsistencyScore)
		reason = fmt.Sprintf("High variation in salary amounts (salary consistency score < %.0f)", s.analyticsCfg.ConsistencyFloor)
	}
	if len(income.SalaryAmounts) >= 2 {
		minSal, maxSal := income.SalaryAmounts[0], income.SalaryAmounts[0]
		for _, amt := range income.SalaryAmounts[1:] {
			if amt < minSal {
				minSal = amt
			}
			if amt > maxSal {
				maxSal = amt
			}
		}
		if minSal > 0 {
			variationPct := (maxSal - minSal) / minSal * 100
			threshold := s.analyticsCfg.VariationPctDefault
			if len(income.SalaryAmounts) == 2 {
				threshold = s.analyticsCfg.VariationPctTwoSalaries
			}
			if variationPct > threshold {
				flag = true
				value = fmt.Sprintf("Salary range: %.0f - %.0f (%.1f%% variation)", minSal, maxSal, variationPct)
				reason = fmt.Sprintf("High variation in salary amounts: ranges from %.0f to %.0f (%.1f%% variation). Consistency score: %.1f",
					minSal, maxSal, variationPct, income.ConsistencyScore)
			}
		}
	}
	if flag {
		out.Add(domain.Anomaly{
			Type:     "income_instability",
			Field:    "salary",
			Value:    value,
			Reason:   reason,
			Severity: domain.SeverityMedium,
		})
	}

	if income.Gaps.HasGaps && len(income.Gaps.MissingMonths) > 0 {
		period := fmt.Sprintf("%s to %s",
			income.Gaps.PeriodFrom.Format("2006-01-02"), income.Gaps.PeriodTo.Format("2006-01-02"))
		out.Add(domain.Anomaly{
			Type:  "salary_gaps",
			Field: "salary",
			Value: "Missing months: " + strings.Join(income.Gaps.MissingMonths, ", "),
			Reason: fmt.Sprintf(
				"Missing salary payments in %d month(s) during statement period (%s). Found salaries in %d out of %d month(s) (%d total salary transaction(s)).",
				len(income.Gaps.MissingMonths), period, income.Gaps.MonthsWithSalary,
				income.Gaps.ExpectedMonths, income.Gaps.TotalSalaryTransactions),
			Severity: domain.SeverityMedium,
		})
	}

	if income.SalaryGapFlag {
		days := 0
		if income.DaysSinceLastSalary != nil {
			days = *income.DaysSinceLastSalary
		}
		out.Add(domain.Anomaly{
			Type:  "salary_delay",
			Field: "salary",
			Value: fmt.Sprintf("%d days since last salary", days),
			Reason: fmt.Sprintf(
				"Last salary was %d days before statement period end. Statement is recent, indicating possible job loss or salary delay.", days),
			Severity: domain.SeverityHigh,
		})
	}

	if dti := report.DTI.ActualDTI; dti > s.analyticsCfg.DTIHighRiskPct {
		out.Add(domain.Anomaly{
			Type:  "high_dti",
			Field: "dti",
			Value: fmt.Sprintf("DTI: %.1f%%", dti),
			Reason: fmt.Sprintf(
				"Debt-to-Income ratio is %.1f%% (>%.0f%% threshold). High DTI indicates the customer has significant debt obligations relative to their income, which increases credit risk.",
				dti, s.analyticsCfg.DTIHighRiskPct),
			Severity: domain.SeverityHigh,
		})
	}

	if report.Behavior.LiquidityStatus == analytics.LiquidityStressed {
		out.Add(domain.Anomaly{
			Type:  "liquidity_stress",
			Field: "balance",
			Value: fmt.Sprintf("AMB/Income ratio: %.1f%%", report.Behavior.AMBToIncomeRatio),
			Reason: fmt.Sprintf(
				"Average monthly balance is only %.1f%% of monthly income (living paycheck-to-paycheck)", report.Behavior.AMBToIncomeRatio),
			Severity: domain.SeverityMedium,
		})
	}
}

// convertObligationFindings checks the customer's existing-loan declaration
// against observed installments. An explicit "No" with any EMI payments is
// a critical contradiction; recurring EMIs without a clear "Yes" are
// surfaced as hidden debt.
func (s *Service) convertObligationFindings(report *analytics.BankAnalytics, profile *domain.CustomerProfile, out *domain.AnomalyCollection) {
	obligations := report.Obligations
	declaration := profile.DeclaredExistingLoan()

	switch {
	case declaration == domain.LoanDeclarationNo && len(obligations.DetectedEMIs) > 0:
		totalAmount := 0.0
		type lenderKey struct {
			lender string
			amount int
		}
		summary := map[lenderKey]int{}
		var order []lenderKey
		for _, emi := range obligations.DetectedEMIs {
			totalAmount += emi.Amount
			k := lenderKey{lender: emi.LenderName, amount: int(emi.Amount + 0.5)}
			if _, ok := summary[k]; !ok {
				order = append(order, k)
			}
			summary[k]++
		}
		var details []string
		for _, k := range order {
			details = append(details, fmt.Sprintf("%s: %d (%d payment(s))", k.lender, k.amount, summary[k]))
		}

		out.Add(domain.Anomaly{
			Type:  "undeclared_loans",
			Field: "obligations",
			Value: fmt.Sprintf("Declared no loans but %d EMI payment(s) detected: %.0f total",
				len(obligations.DetectedEMIs), totalAmount),
			Reason: fmt.Sprintf(
				"Customer profile shows 'existing_loan: No' but bank statement reveals %d EMI payment(s) totaling %.0f (%s). This is a direct contradiction - customer declared no existing loans but has EMI payments in bank statement, indicating undeclared/hidden debt obligations.",
				len(obligations.DetectedEMIs), totalAmount, strings.Join(details, ", ")),
			Severity: domain.SeverityCritical,
		})
		s.logger.Warn("Undeclared loan contradiction detected",
			zap.Int("emi_count", len(obligations.DetectedEMIs)),
			zap.Float64("total_amount", totalAmount),
		)

	case declaration != domain.LoanDeclarationYes && len(obligations.RecurringEMIs) > 0:
		reason := fmt.Sprintf(
			"Detected %d recurring EMI(s) totaling %.0f/month. Customer's existing_loan status is not declared in profile.",
			len(obligations.RecurringEMIs), obligations.TotalMonthlyEMI)
		if profile != nil && strings.TrimSpace(profile.ExistingLoan) != "" {
			reason = fmt.Sprintf(
				"Detected %d recurring EMI(s) totaling %.0f/month. Customer's existing_loan status is '%s' (not clearly 'Yes').",
				len(obligations.RecurringEMIs), obligations.TotalMonthlyEMI, profile.ExistingLoan)
		}
		out.Add(domain.Anomaly{
			Type:  "hidden_debt",
			Field: "obligations",
			Value: fmt.Sprintf("Total EMIs: %.0f/month (%d lenders)",
				obligations.TotalMonthlyEMI, len(obligations.RecurringEMIs)),
			Reason:   reason,
			Severity: domain.SeverityHigh,
		})
	}
}
