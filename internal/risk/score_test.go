package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banking/underwriting-risk/internal/domain"
)

func collectionWith(counts map[domain.Severity]int) *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()
	for severity, n := range counts {
		for i := 0; i < n; i++ {
			out.Add(domain.Anomaly{Type: "t", Severity: severity})
		}
	}
	return out
}

func TestCalculateRiskScore(t *testing.T) {
	s := newTestService(t)
	perfect := domain.ValidationResult{QualityScore: 100}

	tests := []struct {
		name      string
		counts    map[domain.Severity]int
		quality   float64
		wantScore float64
	}{
		{"clean document", nil, 100, 0},
		{"one critical", map[domain.Severity]int{domain.SeverityCritical: 1}, 100, 60},
		{"one high", map[domain.Severity]int{domain.SeverityHigh: 1}, 100, 30},
		{"one of each", map[domain.Severity]int{
			domain.SeverityCritical: 1,
			domain.SeverityHigh:     1,
			domain.SeverityMedium:   1,
			domain.SeverityLow:      1,
		}, 100, 100}, // 60+30+10+2 caps at 100
		{"quality penalty only", nil, 50, 10},
		{"medium plus quality", map[domain.Severity]int{domain.SeverityMedium: 2}, 80, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validation := perfect
			validation.QualityScore = tt.quality
			got := s.CalculateRiskScore(collectionWith(tt.counts), validation)
			assert.Equal(t, tt.wantScore, got)
		})
	}
}

func TestCalculateRiskScoreNilCollection(t *testing.T) {
	s := newTestService(t)
	got := s.CalculateRiskScore(nil, domain.ValidationResult{QualityScore: 100})
	assert.Equal(t, 0.0, got)
}

func TestRiskLevelFor(t *testing.T) {
	s := newTestService(t)

	assert.Equal(t, domain.RiskLevelLow, s.RiskLevelFor(0))
	assert.Equal(t, domain.RiskLevelLow, s.RiskLevelFor(29.9))
	assert.Equal(t, domain.RiskLevelMedium, s.RiskLevelFor(30))
	assert.Equal(t, domain.RiskLevelHigh, s.RiskLevelFor(60))
	assert.Equal(t, domain.RiskLevelCritical, s.RiskLevelFor(80))
	assert.Equal(t, domain.RiskLevelCritical, s.RiskLevelFor(150)) // clamped
}

func TestRecommendationsByLevel(t *testing.T) {
	s := newTestService(t)

	critical := s.Recommendations(85, nil)
	assert.Equal(t, []string{
		"IMMEDIATE ACTION: Document should be rejected or flagged for fraud investigation",
		"ESCALATE: Notify fraud prevention team",
	}, critical)

	high := s.Recommendations(65, nil)
	assert.Contains(t, high[0], "MANUAL REVIEW")

	medium := s.Recommendations(40, nil)
	assert.Contains(t, medium[0], "REVIEW")

	low := s.Recommendations(10, nil)
	assert.Equal(t, []string{"PROCEED: Document appears acceptable for standard processing"}, low)
}

func TestRecommendationsAppendReasoning(t *testing.T) {
	s := newTestService(t)

	reasoning := &domain.RiskReasoning{Recommendation: "REJECT: income inflation suspected"}
	out := s.Recommendations(85, reasoning)
	assert.Equal(t, "REJECT: income inflation suspected", out[len(out)-1])
}
