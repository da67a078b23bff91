package risk

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/crypto"
	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/banking/underwriting-risk/internal/reasoning"
)

// newTestService builds a service with default thresholds, a rule-based
// reasoner, and a frozen clock. Tests attach stores directly on the
// returned struct.
func newTestService(t *testing.T) *Service {
	t.Helper()
	signer, err := crypto.NewResultSigner(base64.StdEncoding.EncodeToString([]byte("unit-test-secret")))
	require.NoError(t, err)
	return &Service{
		analyticsCfg: config.DefaultAnalytics(),
		scoringCfg:   config.DefaultScoring(),
		reasoner:     reasoning.NewRuleBased(),
		signer:       signer,
		logger:       zap.NewNop(),
		now:          func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func record(docType domain.DocumentType, fields map[string]interface{}) *domain.ExtractionRecord {
	return &domain.ExtractionRecord{
		DocumentID:      "doc-1",
		UserID:          "user-1",
		ApplicationID:   "app-1",
		DocumentType:    docType,
		ExtractedFields: fields,
	}
}

type fakeAnalyzer struct {
	report *analytics.BankAnalytics
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeStatement(ctx context.Context, accountNumber, documentID string, account *domain.AccountInfo, profile *domain.CustomerProfile) (*analytics.BankAnalytics, error) {
	f.calls++
	return f.report, f.err
}

type fakeExtractionStore struct {
	records   map[string]*domain.ExtractionRecord
	byUser    []domain.ExtractionRecord
	summaries map[string]float64
}

func newFakeExtractionStore() *fakeExtractionStore {
	return &fakeExtractionStore{
		records:   map[string]*domain.ExtractionRecord{},
		summaries: map[string]float64{},
	}
}

func (f *fakeExtractionStore) ByDocumentID(ctx context.Context, documentID string) (*domain.ExtractionRecord, error) {
	rec, ok := f.records[documentID]
	if !ok {
		return nil, fmt.Errorf("extraction record %s not found", documentID)
	}
	return rec, nil
}

func (f *fakeExtractionStore) ByUserID(ctx context.Context, userID string) ([]domain.ExtractionRecord, error) {
	return f.byUser, nil
}

func (f *fakeExtractionStore) UpdateRiskSummary(ctx context.Context, documentID string, score float64, level domain.RiskLevel) error {
	f.summaries[documentID] = score
	return nil
}

type fakeResultStore struct {
	inserted []*domain.RiskAnalysisResult
	byUser   []domain.RiskAnalysisResult
	byApp    []domain.RiskAnalysisResult
}

func (f *fakeResultStore) Insert(ctx context.Context, result *domain.RiskAnalysisResult) error {
	f.inserted = append(f.inserted, result)
	return nil
}

func (f *fakeResultStore) LatestByDocumentID(ctx context.Context, documentID string) (*domain.RiskAnalysisResult, error) {
	if len(f.inserted) == 0 {
		return nil, fmt.Errorf("no analysis found for document %s", documentID)
	}
	return f.inserted[len(f.inserted)-1], nil
}

func (f *fakeResultStore) ByUserID(ctx context.Context, userID string) ([]domain.RiskAnalysisResult, error) {
	return f.byUser, nil
}

func (f *fakeResultStore) ByApplicationID(ctx context.Context, applicationID string) ([]domain.RiskAnalysisResult, error) {
	return f.byApp, nil
}
