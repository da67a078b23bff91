package reasoning

import (
	"context"
	"fmt"

	"github.com/banking/underwriting-risk/internal/domain"
)

// Reasoner produces a textual risk assessment for a scored document.
// Implementations must be safe for concurrent use.
type Reasoner interface {
	Assess(ctx context.Context, docType domain.DocumentType, anomalies *domain.AnomalyCollection) (*domain.RiskReasoning, error)
}

// RuleBased is the deterministic fallback reasoner. It is always available
// and is used whenever the LLM collaborator is unconfigured or fails.
type RuleBased struct{}

// NewRuleBased creates the fallback reasoner.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Assess never fails; the outer analysis pipeline relies on that.
func (r *RuleBased) Assess(_ context.Context, _ domain.DocumentType, anomalies *domain.AnomalyCollection) (*domain.RiskReasoning, error) {
	if anomalies == nil {
		anomalies = domain.NewAnomalyCollection()
	}
	return &domain.RiskReasoning{
		Summary:         summarize(anomalies),
		FraudIndicators: fraudIndicators(anomalies),
		RiskFactors:     riskFactors(anomalies),
		Recommendation:  recommend(anomalies),
		Confidence:      0.70,
		Source:          "rule_based",
	}, nil
}

func summarize(anomalies *domain.AnomalyCollection) string {
	switch {
	case len(anomalies.Critical) > 0:
		return fmt.Sprintf("Critical risk detected: %d critical anomaly(ies) found that require immediate attention.", len(anomalies.Critical))
	case len(anomalies.High) > 0:
		return fmt.Sprintf("High risk detected: %d high-severity anomaly(ies) found that need review.", len(anomalies.High))
	default:
		return "No critical anomalies detected. Document appears acceptable with minor issues."
	}
}

// riskFactors lists every critical reason and the top five high reasons.
func riskFactors(anomalies *domain.AnomalyCollection) []string {
	var out []string
	for _, a := range anomalies.Critical {
		out = append(out, "CRITICAL: "+a.Reason)
	}
	high := anomalies.High
	if len(high) > 5 {
		high = high[:5]
	}
	for _, a := range high {
		out = append(out, "HIGH: "+a.Reason)
	}
	return out
}

func fraudIndicators(anomalies *domain.AnomalyCollection) []string {
	var out []string
	for _, a := range anomalies.Critical {
		out = append(out, a.Type)
	}
	for _, a := range anomalies.High {
		out = append(out, a.Type)
	}
	return out
}

func recommend(anomalies *domain.AnomalyCollection) string {
	switch {
	case len(anomalies.Critical) > 0:
		return "REJECT: Document contains critical anomalies that indicate potential fraud or data quality issues."
	case len(anomalies.High) > 0:
		return "REVIEW: Document requires detailed manual verification."
	default:
		return "ACCEPT: Document appears acceptable for processing."
	}
}
