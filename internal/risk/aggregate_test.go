package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/underwriting-risk/internal/domain"
)

func resultWith(score float64, level domain.RiskLevel, anomalies *domain.AnomalyCollection) domain.RiskAnalysisResult {
	return domain.RiskAnalysisResult{
		RiskScore: score,
		RiskLevel: level,
		Anomalies: anomalies,
	}
}

func TestBuildRollupScores(t *testing.T) {
	s := newTestService(t)

	critical := collectionWith(map[domain.Severity]int{domain.SeverityCritical: 1, domain.SeverityHigh: 2})
	clean := domain.NewAnomalyCollection()

	results := []domain.RiskAnalysisResult{
		resultWith(90, domain.RiskLevelCritical, critical),
		resultWith(10, domain.RiskLevelLow, clean),
		resultWith(20, domain.RiskLevelLow, clean),
	}

	rollup := s.buildRollup(results)

	assert.Equal(t, 3, rollup.DocumentCount)
	assert.Equal(t, 40.0, rollup.AverageRiskScore)
	assert.Equal(t, 90.0, rollup.MaxRiskScore)
	// The single anomalous document carries all the weight.
	assert.Equal(t, 90.0, rollup.WeightedRiskScore)
	// Final score is the maximum: one critical document makes the case critical.
	assert.Equal(t, 90.0, rollup.FinalRiskScore)
	assert.Equal(t, domain.RiskLevelCritical, rollup.FinalRiskLevel)

	assert.Equal(t, 1, rollup.LevelDistribution[domain.RiskLevelCritical])
	assert.Equal(t, 2, rollup.LevelDistribution[domain.RiskLevelLow])
	assert.Equal(t, 1, rollup.AnomalyTotals[domain.SeverityCritical])
	assert.Equal(t, 2, rollup.AnomalyTotals[domain.SeverityHigh])
	assert.Equal(t, 3, rollup.TotalAnomalies)
}

func TestBuildRollupWeightedSplit(t *testing.T) {
	s := newTestService(t)

	results := []domain.RiskAnalysisResult{
		resultWith(80, domain.RiskLevelCritical, collectionWith(map[domain.Severity]int{domain.SeverityHigh: 3})),
		resultWith(20, domain.RiskLevelLow, collectionWith(map[domain.Severity]int{domain.SeverityLow: 1})),
	}

	rollup := s.buildRollup(results)
	// 80*(3/4) + 20*(1/4) = 65
	assert.Equal(t, 65.0, rollup.WeightedRiskScore)
}

func TestBuildRollupNoAnomaliesWeightDegenerates(t *testing.T) {
	s := newTestService(t)

	results := []domain.RiskAnalysisResult{
		resultWith(10, domain.RiskLevelLow, domain.NewAnomalyCollection()),
		resultWith(30, domain.RiskLevelMedium, nil),
	}

	rollup := s.buildRollup(results)
	assert.Equal(t, 20.0, rollup.AverageRiskScore)
	assert.Equal(t, 20.0, rollup.WeightedRiskScore)
	assert.Equal(t, 30.0, rollup.FinalRiskScore)
	assert.Equal(t, domain.RiskLevelMedium, rollup.FinalRiskLevel)
}

func TestBuildRollupClampsOutOfRangeScores(t *testing.T) {
	s := newTestService(t)

	results := []domain.RiskAnalysisResult{
		resultWith(150, domain.RiskLevelCritical, nil),
		resultWith(-10, domain.RiskLevelLow, nil),
	}

	rollup := s.buildRollup(results)
	assert.Equal(t, 50.0, rollup.AverageRiskScore)
	assert.Equal(t, 100.0, rollup.MaxRiskScore)
	assert.Equal(t, 100.0, rollup.FinalRiskScore)
}

func TestBuildRollupEmpty(t *testing.T) {
	s := newTestService(t)

	rollup := s.buildRollup(nil)
	assert.Equal(t, 0, rollup.DocumentCount)
	assert.Equal(t, 0.0, rollup.FinalRiskScore)
	assert.Equal(t, domain.RiskLevelLow, rollup.FinalRiskLevel)
}

func TestRollupForUserAndApplication(t *testing.T) {
	s := newTestService(t)
	store := &fakeResultStore{
		byUser: []domain.RiskAnalysisResult{
			resultWith(90, domain.RiskLevelCritical, nil),
		},
		byApp: []domain.RiskAnalysisResult{
			resultWith(40, domain.RiskLevelMedium, nil),
			resultWith(20, domain.RiskLevelLow, nil),
		},
	}
	s.results = store

	userRollup, err := s.RollupForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userRollup.UserID)
	assert.Equal(t, 90.0, userRollup.FinalRiskScore)

	appRollup, err := s.RollupForApplication(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", appRollup.ApplicationID)
	assert.Equal(t, 2, appRollup.DocumentCount)
	assert.Equal(t, 40.0, appRollup.FinalRiskScore)
	assert.Equal(t, domain.RiskLevelMedium, appRollup.FinalRiskLevel)
}
