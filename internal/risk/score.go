package risk

import (
	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// CalculateRiskScore produces the 0-100 risk score. Each anomaly adds
// points by severity, plus a penalty proportional to how far extraction
// quality falls short of 100. The weights are calibrated so one critical
// anomaly alone lands in the HIGH band and two reach the cap.
func (s *Service) CalculateRiskScore(anomalies *domain.AnomalyCollection, validation domain.ValidationResult) float64 {
	if anomalies == nil {
		anomalies = domain.NewAnomalyCollection()
	}

	criticalPoints := float64(len(anomalies.Critical)) * s.scoringCfg.CriticalWeight
	highPoints := float64(len(anomalies.High)) * s.scoringCfg.HighWeight
	mediumPoints := float64(len(anomalies.Medium)) * s.scoringCfg.MediumWeight
	lowPoints := float64(len(anomalies.Low)) * s.scoringCfg.LowWeight

	quality := validation.QualityScore
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	qualityPenalty := (100 - quality) * s.scoringCfg.QualityWeight

	score := criticalPoints + highPoints + mediumPoints + lowPoints + qualityPenalty
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	s.logger.Debug("Risk score calculated",
		zap.Float64("critical_points", criticalPoints),
		zap.Float64("high_points", highPoints),
		zap.Float64("medium_points", mediumPoints),
		zap.Float64("low_points", lowPoints),
		zap.Float64("quality_penalty", qualityPenalty),
		zap.Float64("score", score),
	)
	return score
}

// RiskLevelFor bands a score into a level using the configured floors.
func (s *Service) RiskLevelFor(score float64) domain.RiskLevel {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	switch {
	case score >= s.scoringCfg.CriticalFloor:
		return domain.RiskLevelCritical
	case score >= s.scoringCfg.HighFloor:
		return domain.RiskLevelHigh
	case score >= s.scoringCfg.MediumFloor:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelLow
	}
}

// Recommendations derives the underwriter action list from the risk level,
// appending any actions the reasoning collaborator supplied.
func (s *Service) Recommendations(score float64, reasoning *domain.RiskReasoning) []string {
	var out []string
	switch s.RiskLevelFor(score) {
	case domain.RiskLevelCritical:
		out = append(out,
			"IMMEDIATE ACTION: Document should be rejected or flagged for fraud investigation",
			"ESCALATE: Notify fraud prevention team")
	case domain.RiskLevelHigh:
		out = append(out,
			"MANUAL REVIEW: Document requires detailed manual verification",
			"VERIFY: Request additional documentation")
	case domain.RiskLevelMedium:
		out = append(out,
			"REVIEW: Document should be reviewed by underwriter",
			"CLARIFY: Request clarification on identified issues")
	default:
		out = append(out, "PROCEED: Document appears acceptable for standard processing")
	}
	if reasoning != nil && reasoning.Recommendation != "" {
		out = append(out, reasoning.Recommendation)
	}
	return out
}
