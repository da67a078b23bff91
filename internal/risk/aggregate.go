package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// RollupForUser summarizes every stored result across a user's documents.
func (s *Service) RollupForUser(ctx context.Context, userID string) (*domain.RiskRollup, error) {
	results, err := s.results.ByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user results: %w", err)
	}
	rollup := s.buildRollup(results)
	rollup.UserID = userID
	s.asyncArchiveRollup(rollup)
	return rollup, nil
}

// RollupForApplication summarizes results for one loan application.
func (s *Service) RollupForApplication(ctx context.Context, applicationID string) (*domain.RiskRollup, error) {
	results, err := s.results.ByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load application results: %w", err)
	}
	rollup := s.buildRollup(results)
	rollup.ApplicationID = applicationID
	s.asyncArchiveRollup(rollup)
	return rollup, nil
}

// buildRollup computes average, maximum, and anomaly-weighted scores over
// the result set. The final score is the maximum: each document's score
// already carries its severity points, so one critical document makes the
// whole case critical without double-counting.
func (s *Service) buildRollup(results []domain.RiskAnalysisResult) *domain.RiskRollup {
	rollup := &domain.RiskRollup{
		DocumentCount:     len(results),
		LevelDistribution: map[domain.RiskLevel]int{},
		AnomalyTotals:     map[domain.Severity]int{},
		FinalRiskLevel:    domain.RiskLevelLow,
		GeneratedAt:       s.now().UTC(),
	}
	if len(results) == 0 {
		return rollup
	}

	sum := 0.0
	for i := range results {
		r := &results[i]
		score := clampScore(r.RiskScore)
		sum += score
		if score > rollup.MaxRiskScore {
			rollup.MaxRiskScore = score
		}
		rollup.LevelDistribution[r.RiskLevel]++

		if r.Anomalies != nil {
			rollup.AnomalyTotals[domain.SeverityCritical] += len(r.Anomalies.Critical)
			rollup.AnomalyTotals[domain.SeverityHigh] += len(r.Anomalies.High)
			rollup.AnomalyTotals[domain.SeverityMedium] += len(r.Anomalies.Medium)
			rollup.AnomalyTotals[domain.SeverityLow] += len(r.Anomalies.Low)
			rollup.TotalAnomalies += r.Anomalies.TotalCount
		}
	}
	rollup.AverageRiskScore = roundTo2(sum / float64(len(results)))

	// Anomaly-weighted average: documents carrying more anomalies pull
	// the score harder. With zero anomalies anywhere it degenerates to
	// the plain average.
	if rollup.TotalAnomalies > 0 {
		weighted := 0.0
		for i := range results {
			r := &results[i]
			count := 0
			if r.Anomalies != nil {
				count = r.Anomalies.TotalCount
			}
			weight := float64(count) / float64(rollup.TotalAnomalies)
			weighted += clampScore(r.RiskScore) * weight
		}
		rollup.WeightedRiskScore = roundTo2(weighted)
	} else {
		rollup.WeightedRiskScore = rollup.AverageRiskScore
	}

	rollup.MaxRiskScore = roundTo2(rollup.MaxRiskScore)
	rollup.FinalRiskScore = rollup.MaxRiskScore
	rollup.FinalRiskLevel = s.RiskLevelFor(rollup.FinalRiskScore)
	return rollup
}

// asyncArchiveRollup writes the rollup report to object storage without
// blocking the request path.
func (s *Service) asyncArchiveRollup(rollup *domain.RiskRollup) {
	if s.reports == nil || rollup.DocumentCount == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in rollup archival", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		key, err := s.reports.StoreRollup(asyncCtx, rollup)
		if err != nil {
			s.logger.Error("DEAD-LETTER: failed to archive rollup report",
				zap.String("user_id", rollup.UserID),
				zap.String("application_id", rollup.ApplicationID),
				zap.Error(err),
			)
			return
		}
		s.logger.Debug("Rollup report archived", zap.String("key", key))
	}()
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}
