package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/crypto"
	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/banking/underwriting-risk/internal/reasoning"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExtractionStore reads the documents the extraction collaborator has
// stored, and records the risk summary back onto them.
type ExtractionStore interface {
	ByDocumentID(ctx context.Context, documentID string) (*domain.ExtractionRecord, error)
	ByUserID(ctx context.Context, userID string) ([]domain.ExtractionRecord, error)
	UpdateRiskSummary(ctx context.Context, documentID string, score float64, level domain.RiskLevel) error
}

// ResultStore persists analysis results. Results are append-only; each
// analysis writes a new row.
type ResultStore interface {
	Insert(ctx context.Context, result *domain.RiskAnalysisResult) error
	LatestByDocumentID(ctx context.Context, documentID string) (*domain.RiskAnalysisResult, error)
	ByUserID(ctx context.Context, userID string) ([]domain.RiskAnalysisResult, error)
	ByApplicationID(ctx context.Context, applicationID string) ([]domain.RiskAnalysisResult, error)
}

// SearchIndexer pushes results into the search index, best-effort.
type SearchIndexer interface {
	IndexResult(ctx context.Context, result *domain.RiskAnalysisResult) error
}

// ReportStore archives rollup reports to object storage.
type ReportStore interface {
	StoreRollup(ctx context.Context, rollup *domain.RiskRollup) (string, error)
}

// Service orchestrates a document's full risk analysis: field detectors,
// bank statement analytics, cross-document checks, scoring, reasoning,
// and persistence.
type Service struct {
	analyticsCfg config.AnalyticsConfig
	scoringCfg   config.ScoringConfig
	analyzer     statementAnalyzer
	extractions  ExtractionStore
	results      ResultStore
	search       SearchIndexer
	reports      ReportStore
	profiles     analytics.ProfileSource
	reasoner     reasoning.Reasoner
	signer       *crypto.ResultSigner
	logger       *zap.Logger
	now          func() time.Time
}

// NewService wires the risk analysis service.
func NewService(
	analyticsCfg config.AnalyticsConfig,
	scoringCfg config.ScoringConfig,
	analyzer statementAnalyzer,
	extractions ExtractionStore,
	results ResultStore,
	search SearchIndexer,
	reports ReportStore,
	profiles analytics.ProfileSource,
	reasoner reasoning.Reasoner,
	signer *crypto.ResultSigner,
	logger *zap.Logger,
) *Service {
	return &Service{
		analyticsCfg: analyticsCfg,
		scoringCfg:   scoringCfg,
		analyzer:     analyzer,
		extractions:  extractions,
		results:      results,
		search:       search,
		reports:      reports,
		profiles:     profiles,
		reasoner:     reasoner,
		signer:       signer,
		logger:       logger,
		now:          time.Now,
	}
}

// AnalyzeDocument runs the full pipeline for one extracted document and
// persists the result. Failures inside individual detectors degrade to
// anomalies or defaults; only missing input data or persistence failures
// surface as errors.
func (s *Service) AnalyzeDocument(ctx context.Context, documentID string) (*domain.RiskAnalysisResult, error) {
	rec, err := s.extractions.ByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load extraction record: %w", err)
	}

	validation := domain.CoerceValidationResult(rec.Validation)
	anomalies := s.detectAll(ctx, rec)

	score, level := s.scoreDocument(anomalies, validation)

	// Textual reasoning is only worth the collaborator round-trip when
	// something serious was found.
	var assessment *domain.RiskReasoning
	if anomalies.HasCriticalOrHigh() {
		assessment, err = s.reasoner.Assess(ctx, rec.DocumentType, anomalies)
		if err != nil {
			s.logger.Warn("Reasoning unavailable", zap.String("document_id", documentID), zap.Error(err))
			assessment = nil
		}
	}

	result := &domain.RiskAnalysisResult{
		AnalysisID:        uuid.New(),
		DocumentID:        rec.DocumentID,
		UserID:            rec.UserID,
		ApplicationID:     rec.ApplicationID,
		DocumentType:      rec.DocumentType,
		RiskScore:         score,
		RiskLevel:         level,
		Anomalies:         anomalies,
		Reasoning:         assessment,
		Recommendations:   s.Recommendations(score, assessment),
		AnalysisTimestamp: s.now().UTC(),
	}
	result.Signature = s.signer.SignResult(
		result.AnalysisID.String(),
		result.DocumentID,
		result.RiskScore,
		string(result.RiskLevel),
		result.AnalysisTimestamp.Format(time.RFC3339),
	)

	if err := s.results.Insert(ctx, result); err != nil {
		s.logger.Error("Failed to persist risk analysis result",
			zap.String("analysis_id", result.AnalysisID.String()),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("result persistence failed: %w", err)
	}

	if err := s.extractions.UpdateRiskSummary(ctx, rec.DocumentID, score, level); err != nil {
		// The canonical result row exists; the denormalized summary on the
		// document is best-effort.
		s.logger.Warn("Failed to update document risk summary",
			zap.String("document_id", documentID), zap.Error(err))
	}

	s.asyncIndexResult(result)

	s.logger.Info("Risk analysis complete",
		zap.String("analysis_id", result.AnalysisID.String()),
		zap.String("document_id", documentID),
		zap.String("document_type", string(rec.DocumentType)),
		zap.Float64("risk_score", score),
		zap.String("risk_level", string(level)),
		zap.Int("anomaly_count", anomalies.TotalCount),
	)
	return result, nil
}

// scoreDocument shields the pipeline from a scoring failure: the fallback
// score keeps the document in the manual-review band instead of failing
// the whole analysis.
func (s *Service) scoreDocument(anomalies *domain.AnomalyCollection, validation domain.ValidationResult) (score float64, level domain.RiskLevel) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Risk scoring failed, using fallback score", zap.Any("panic", r))
			score = s.scoringCfg.FallbackScore
			level = s.RiskLevelFor(score)
		}
	}()
	score = s.CalculateRiskScore(anomalies, validation)
	return score, s.RiskLevelFor(score)
}

// detectAll merges every anomaly source for the record. Each source that
// fails contributes an anomaly describing the failure instead of aborting
// the analysis.
func (s *Service) detectAll(ctx context.Context, rec *domain.ExtractionRecord) *domain.AnomalyCollection {
	anomalies := domain.NewAnomalyCollection()

	if rec.DocumentType == domain.DocTypeBankStatement {
		s.runBankAnalytics(ctx, rec, anomalies)
	}

	anomalies.Merge(s.DetectDocumentAnomalies(rec))

	siblings, err := s.extractions.ByUserID(ctx, rec.UserID)
	if err != nil {
		s.logger.Warn("Cross-document checks skipped: sibling lookup failed",
			zap.String("user_id", rec.UserID), zap.Error(err))
	} else {
		anomalies.Merge(s.DetectCrossDocumentAnomalies(ctx, rec, siblings))
	}

	anomalies.Merge(s.DetectQualityAnomalies(domain.CoerceValidationResult(rec.Validation)))
	return anomalies
}

func (s *Service) runBankAnalytics(ctx context.Context, rec *domain.ExtractionRecord, anomalies *domain.AnomalyCollection) {
	profile := s.lookupProfile(ctx, rec)

	report, err := s.analyzer.AnalyzeStatement(ctx, "", rec.DocumentID, rec.AccountInfo, profile)
	switch {
	case errors.Is(err, analytics.ErrNoTransactions):
		anomalies.Add(domain.Anomaly{
			Type:     "bank_statement_analysis_failed",
			Field:    "transactions",
			Value:    err.Error(),
			Reason:   fmt.Sprintf("Bank statement analytics could not be completed: %s. This may indicate missing transaction data or extraction issues.", err),
			Severity: domain.SeverityMedium,
		})
	case err != nil:
		s.logger.Error("Bank statement analytics failed",
			zap.String("document_id", rec.DocumentID), zap.Error(err))
		anomalies.Add(domain.Anomaly{
			Type:     "bank_statement_analysis_error",
			Field:    "analytics",
			Value:    err.Error(),
			Reason:   fmt.Sprintf("Bank statement analytics encountered an error: %s. Risk analysis completed with basic checks only.", err),
			Severity: domain.SeverityMedium,
		})
	default:
		anomalies.Merge(s.ConvertBankAnalytics(report, profile))
	}
}

// lookupProfile resolves the customer's declaration record by user ID
// first, then by the name on the document. A missing profile is normal
// for applicants not yet onboarded.
func (s *Service) lookupProfile(ctx context.Context, rec *domain.ExtractionRecord) *domain.CustomerProfile {
	if s.profiles == nil {
		return nil
	}
	if profile, err := s.profiles.ByCustomerID(ctx, rec.UserID); err == nil && profile != nil {
		return profile
	}
	if name := extractName(rec); name != "" {
		if profile, err := s.profiles.ByName(ctx, name); err == nil && profile != nil {
			return profile
		}
	}
	s.logger.Debug("No customer profile found",
		zap.String("user_id", crypto.MaskPII(rec.UserID, "account")))
	return nil
}

// AnalyzeAsync runs the analysis in a supervised background goroutine.
// Used by the event consumer so a slow analysis never stalls the
// partition. Failures land in the dead-letter log for manual replay.
func (s *Service) AnalyzeAsync(documentID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in background risk analysis",
					zap.String("document_id", documentID), zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if _, err := s.AnalyzeDocument(asyncCtx, documentID); err != nil {
			s.logger.Error("DEAD-LETTER: background risk analysis failed",
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
	}()
}

// asyncIndexResult handles background search indexing with panic protection.
func (s *Service) asyncIndexResult(result *domain.RiskAnalysisResult) {
	if s.search == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async result indexing", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.search.IndexResult(asyncCtx, result); err != nil {
			s.logger.Error("DEAD-LETTER: failed to index risk analysis result",
				zap.String("analysis_id", result.AnalysisID.String()),
				zap.Error(err),
			)
		}
	}()
}

// GetResult returns the latest stored result for a document, verifying
// its signature. A signature mismatch means the stored row was altered.
func (s *Service) GetResult(ctx context.Context, documentID string) (*domain.RiskAnalysisResult, error) {
	result, err := s.results.LatestByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if result.Signature != "" {
		valid := s.signer.VerifyResult(
			result.AnalysisID.String(),
			result.DocumentID,
			result.RiskScore,
			string(result.RiskLevel),
			result.AnalysisTimestamp.Format(time.RFC3339),
			result.Signature,
		)
		if !valid {
			s.logger.Error("CRYPTOGRAPHIC VALIDATION FAILURE",
				zap.String("analysis_id", result.AnalysisID.String()),
				zap.String("reason", "Signature mismatch - POTENTIAL TAMPERING DETECTED"),
			)
			return nil, fmt.Errorf("result integrity failure: analysis %s signature invalid", result.AnalysisID)
		}
	}
	return result, nil
}
