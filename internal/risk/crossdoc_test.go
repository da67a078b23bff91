package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/domain"
)

func TestCrossDocumentNameMismatch(t *testing.T) {
	s := newTestService(t)

	rec := record(domain.DocTypeAadhaar, map[string]interface{}{
		"name":          "Rajesh Kumar",
		"date_of_birth": "1990-05-15",
	})
	siblings := []domain.ExtractionRecord{
		{
			DocumentID:   "doc-2",
			UserID:       "user-1",
			DocumentType: domain.DocTypePAN,
			ExtractedFields: map[string]interface{}{
				"name":          "Suresh Patel",
				"date_of_birth": "1985-02-10",
			},
		},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), rec, siblings)

	require.Len(t, out.Critical, 2)
	types := anomalyTypes(out)
	assert.Contains(t, types, "name_mismatch_across_documents")
	assert.Contains(t, types, "dob_mismatch_across_documents")
	assert.Contains(t, out.Critical[0].Reason, "PAN document")
}

func TestCrossDocumentMatchingIdentity(t *testing.T) {
	s := newTestService(t)

	rec := record(domain.DocTypeAadhaar, map[string]interface{}{
		"name":          "Rajesh Kumar",
		"date_of_birth": "1990-05-15",
	})
	siblings := []domain.ExtractionRecord{
		{
			DocumentID:   "doc-2",
			UserID:       "user-1",
			DocumentType: domain.DocTypePAN,
			ExtractedFields: map[string]interface{}{
				"name":          "RAJESH KUMAR", // case difference only
				"date_of_birth": "1990-05-15",
			},
		},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), rec, siblings)
	assert.Equal(t, 0, out.TotalCount)
}

func TestCrossDocumentSkipsSelf(t *testing.T) {
	s := newTestService(t)

	rec := record(domain.DocTypeAadhaar, map[string]interface{}{
		"name": "Rajesh Kumar",
	})
	// Sibling list includes the record itself with a conflicting name; it
	// must be ignored by document id.
	self := *rec
	self.ExtractedFields = map[string]interface{}{"name": "Someone Else"}

	out := s.DetectCrossDocumentAnomalies(context.Background(), rec, []domain.ExtractionRecord{self})
	assert.Equal(t, 0, out.TotalCount)
}

func TestOverstatedIncomeDetected(t *testing.T) {
	s := newTestService(t)
	s.analyzer = &fakeAnalyzer{report: &analytics.BankAnalytics{
		Income: analytics.IncomeAnalysis{SalaryAmounts: []float64{50000}},
	}}

	payslip := record(domain.DocTypePayslip, map[string]interface{}{
		"employee_name": "Rajesh Kumar",
		"net_salary":    70000.0,
	})
	siblings := []domain.ExtractionRecord{
		{
			DocumentID:   "doc-2",
			UserID:       "user-1",
			DocumentType: domain.DocTypeBankStatement,
			ExtractedFields: map[string]interface{}{
				"account_holder_name": "Rajesh Kumar",
			},
		},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), payslip, siblings)

	require.Len(t, out.High, 1)
	anomaly := out.High[0]
	assert.Equal(t, "over_stated_income", anomaly.Type)
	assert.Contains(t, anomaly.Reason, "difference: 20000.00, 40.0% higher")
}

func TestOverstatedIncomeNotFlaggedWhenConsistent(t *testing.T) {
	s := newTestService(t)
	s.analyzer = &fakeAnalyzer{report: &analytics.BankAnalytics{
		Income: analytics.IncomeAnalysis{SalaryAmounts: []float64{50000}},
	}}

	payslip := record(domain.DocTypePayslip, map[string]interface{}{
		"net_salary": 50000.0,
	})
	siblings := []domain.ExtractionRecord{
		{DocumentID: "doc-2", UserID: "user-1", DocumentType: domain.DocTypeBankStatement},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), payslip, siblings)
	assert.Equal(t, 0, out.TotalCount)
}

func TestOverstatedIncomeFallsBackToGross(t *testing.T) {
	s := newTestService(t)
	s.analyzer = &fakeAnalyzer{report: &analytics.BankAnalytics{
		Income: analytics.IncomeAnalysis{SalaryAmounts: []float64{50000}},
	}}

	payslip := record(domain.DocTypePayslip, map[string]interface{}{
		"gross_salary": 80000.0, // no net_salary present
	})
	siblings := []domain.ExtractionRecord{
		{DocumentID: "doc-2", UserID: "user-1", DocumentType: domain.DocTypeBankStatement},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), payslip, siblings)
	require.Len(t, out.High, 1)
	assert.Equal(t, "over_stated_income", out.High[0].Type)
}

func TestOverstatedIncomeSkippedWhenAnalyticsFail(t *testing.T) {
	s := newTestService(t)
	s.analyzer = &fakeAnalyzer{err: analytics.ErrNoTransactions}

	payslip := record(domain.DocTypePayslip, map[string]interface{}{
		"net_salary": 70000.0,
	})
	siblings := []domain.ExtractionRecord{
		{DocumentID: "doc-2", UserID: "user-1", DocumentType: domain.DocTypeBankStatement},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), payslip, siblings)
	assert.Equal(t, 0, out.TotalCount)
}

func TestOverstatedIncomeOnlyForIncomeDocuments(t *testing.T) {
	s := newTestService(t)
	analyzer := &fakeAnalyzer{report: &analytics.BankAnalytics{
		Income: analytics.IncomeAnalysis{SalaryAmounts: []float64{50000}},
	}}
	s.analyzer = analyzer

	// Analyzing an Aadhaar must not trigger the income corroboration even
	// when the user has both a payslip and a bank statement on file.
	aadhaar := record(domain.DocTypeAadhaar, nil)
	siblings := []domain.ExtractionRecord{
		{DocumentID: "doc-2", UserID: "user-1", DocumentType: domain.DocTypePayslip,
			ExtractedFields: map[string]interface{}{"net_salary": 70000.0}},
		{DocumentID: "doc-3", UserID: "user-1", DocumentType: domain.DocTypeBankStatement},
	}

	out := s.DetectCrossDocumentAnomalies(context.Background(), aadhaar, siblings)
	assert.Equal(t, 0, out.TotalCount)
	assert.Equal(t, 0, analyzer.calls)
}
