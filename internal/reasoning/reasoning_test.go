package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/underwriting-risk/internal/domain"
)

func TestRuleBasedCriticalAssessment(t *testing.T) {
	anomalies := domain.NewAnomalyCollection()
	anomalies.Add(domain.Anomaly{
		Type:     "undeclared_loans",
		Reason:   "Customer declared no loans but EMI payments detected",
		Severity: domain.SeverityCritical,
	})
	anomalies.Add(domain.Anomaly{
		Type:     "over_stated_income",
		Reason:   "Payslip net pay exceeds bank salary credit",
		Severity: domain.SeverityHigh,
	})

	out, err := NewRuleBased().Assess(context.Background(), domain.DocTypeBankStatement, anomalies)
	require.NoError(t, err)

	assert.Equal(t, "Critical risk detected: 1 critical anomaly(ies) found that require immediate attention.", out.Summary)
	assert.Equal(t, []string{"undeclared_loans", "over_stated_income"}, out.FraudIndicators)
	assert.Equal(t, []string{
		"CRITICAL: Customer declared no loans but EMI payments detected",
		"HIGH: Payslip net pay exceeds bank salary credit",
	}, out.RiskFactors)
	assert.Contains(t, out.Recommendation, "REJECT")
	assert.Equal(t, 0.70, out.Confidence)
	assert.Equal(t, "rule_based", out.Source)
}

func TestRuleBasedHighAssessment(t *testing.T) {
	anomalies := domain.NewAnomalyCollection()
	anomalies.Add(domain.Anomaly{Type: "expired_passport", Reason: "Passport has expired", Severity: domain.SeverityHigh})

	out, err := NewRuleBased().Assess(context.Background(), domain.DocTypePassport, anomalies)
	require.NoError(t, err)

	assert.Equal(t, "High risk detected: 1 high-severity anomaly(ies) found that need review.", out.Summary)
	assert.Contains(t, out.Recommendation, "REVIEW")
}

func TestRuleBasedCapsHighRiskFactorsAtFive(t *testing.T) {
	anomalies := domain.NewAnomalyCollection()
	for i := 0; i < 8; i++ {
		anomalies.Add(domain.Anomaly{Type: "t", Reason: "r", Severity: domain.SeverityHigh})
	}

	out, err := NewRuleBased().Assess(context.Background(), domain.DocTypePAN, anomalies)
	require.NoError(t, err)
	assert.Len(t, out.RiskFactors, 5)
	assert.Len(t, out.FraudIndicators, 8)
}

func TestRuleBasedCleanAssessment(t *testing.T) {
	out, err := NewRuleBased().Assess(context.Background(), domain.DocTypeAadhaar, nil)
	require.NoError(t, err)

	assert.Equal(t, "No critical anomalies detected. Document appears acceptable with minor issues.", out.Summary)
	assert.Contains(t, out.Recommendation, "ACCEPT")
	assert.Empty(t, out.FraudIndicators)
}
