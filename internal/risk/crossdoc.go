package risk

import (
	"context"
	"fmt"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// DetectCrossDocumentAnomalies compares the current document against the
// user's other extracted documents. Identity field mismatches are critical:
// they indicate documents belonging to different people or tampering.
func (s *Service) DetectCrossDocumentAnomalies(ctx context.Context, rec *domain.ExtractionRecord, siblings []domain.ExtractionRecord) *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()
	if rec == nil {
		return out
	}

	currentName := extractName(rec)
	currentDOB := rec.FieldString("date_of_birth")

	for i := range siblings {
		other := &siblings[i]
		if other.DocumentID == rec.DocumentID {
			continue
		}

		otherName := extractName(other)
		if currentName != "" && otherName != "" && !namesMatch(currentName, otherName) {
			out.Add(domain.Anomaly{
				Type:  "name_mismatch_across_documents",
				Field: "name",
				Value: fmt.Sprintf("Current: %s, Other: %s", currentName, otherName),
				Reason: fmt.Sprintf("Name mismatch with %s document - critical identity verification failure",
					other.DocumentType),
				Severity: domain.SeverityCritical,
			})
		}

		otherDOB := other.FieldString("date_of_birth")
		if currentDOB != "" && otherDOB != "" && !datesMatch(currentDOB, otherDOB) {
			out.Add(domain.Anomaly{
				Type:  "dob_mismatch_across_documents",
				Field: "date_of_birth",
				Value: fmt.Sprintf("Current: %s, Other: %s", currentDOB, otherDOB),
				Reason: fmt.Sprintf("Date of birth mismatch with %s document - critical identity verification failure",
					other.DocumentType),
				Severity: domain.SeverityCritical,
			})
		}
	}

	// Income corroboration runs only when the current document is the
	// payslip or the bank statement; running it for every document type
	// would duplicate the anomaly once per analysis.
	if rec.DocumentType == domain.DocTypePayslip || rec.DocumentType == domain.DocTypeBankStatement {
		s.detectOverstatedIncome(ctx, rec, siblings, out)
	}

	return out
}

// detectOverstatedIncome compares the payslip's declared take-home pay
// against the first actual salary credit observed in the bank statement.
// A payslip claiming more than the bank receives is a classic income
// inflation pattern. Only the first payslip/statement pair is checked so
// re-analysis of either document cannot multiply the anomaly.
func (s *Service) detectOverstatedIncome(ctx context.Context, rec *domain.ExtractionRecord, siblings []domain.ExtractionRecord, out *domain.AnomalyCollection) {
	all := make([]*domain.ExtractionRecord, 0, len(siblings)+1)
	all = append(all, rec)
	for i := range siblings {
		if siblings[i].DocumentID != rec.DocumentID {
			all = append(all, &siblings[i])
		}
	}

	var payslip, bankStmt *domain.ExtractionRecord
	for _, doc := range all {
		switch doc.DocumentType {
		case domain.DocTypePayslip:
			if payslip == nil {
				payslip = doc
			}
		case domain.DocTypeBankStatement:
			if bankStmt == nil {
				bankStmt = doc
			}
		}
	}
	if payslip == nil || bankStmt == nil {
		return
	}

	payslipSalary, ok := payslipSalaryField(payslip, "net_salary")
	if !ok {
		payslipSalary, ok = payslipSalaryField(payslip, "gross_salary")
		if ok {
			s.logger.Warn("Payslip net_salary not found, comparing gross_salary instead",
				zap.String("payslip_document_id", payslip.DocumentID))
		}
	}
	if !ok || payslipSalary <= 0 {
		s.logger.Debug("Over-stated income check skipped: no payslip salary data",
			zap.String("payslip_document_id", payslip.DocumentID))
		return
	}

	report, err := s.analyzer.AnalyzeStatement(ctx, "", bankStmt.DocumentID, bankStmt.AccountInfo, nil)
	if err != nil {
		s.logger.Warn("Over-stated income check skipped: bank statement analytics unavailable",
			zap.String("bank_statement_document_id", bankStmt.DocumentID), zap.Error(err))
		return
	}
	if len(report.Income.SalaryAmounts) == 0 {
		s.logger.Debug("Over-stated income check skipped: no salary credits detected",
			zap.String("bank_statement_document_id", bankStmt.DocumentID))
		return
	}

	bankSalary := report.Income.SalaryAmounts[0]
	if payslipSalary <= bankSalary {
		return
	}

	difference := payslipSalary - bankSalary
	differencePct := 0.0
	if bankSalary > 0 {
		differencePct = difference / bankSalary * 100
	}

	// Both the payslip and the bank statement trigger this check; dedup
	// against an already-recorded instance.
	for _, existing := range out.High {
		if existing.Type == "over_stated_income" {
			return
		}
	}

	out.Add(domain.Anomaly{
		Type:  "over_stated_income",
		Field: "salary",
		Value: fmt.Sprintf("Payslip Net Pay: %.2f, Bank Salary Credit: %.2f", payslipSalary, bankSalary),
		Reason: fmt.Sprintf(
			"Payslip shows Net Pay of %.2f but bank statement shows actual salary credit of %.2f (difference: %.2f, %.1f%% higher). Net Pay should match the bank credit amount. Possible over-stated income fraud.",
			payslipSalary, bankSalary, difference, differencePct),
		Severity: domain.SeverityHigh,
	})
	s.logger.Warn("Over-stated income detected",
		zap.Float64("payslip_salary", payslipSalary),
		zap.Float64("bank_salary", bankSalary),
		zap.Float64("difference_pct", differencePct),
	)
}

// statementAnalyzer narrows the analytics pipeline to the single entry
// point the risk service calls.
type statementAnalyzer interface {
	AnalyzeStatement(ctx context.Context, accountNumber, documentID string, account *domain.AccountInfo, profile *domain.CustomerProfile) (*analytics.BankAnalytics, error)
}
