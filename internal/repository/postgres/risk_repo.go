package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RiskRepository persists risk analysis results. This is an APPEND-ONLY
// store: re-analysis of a document inserts a new row, and reads return
// the most recent one.
type RiskRepository struct {
	pool *pgxpool.Pool
}

// NewRiskRepository creates a new risk result repository
func NewRiskRepository(pool *pgxpool.Pool) *RiskRepository {
	return &RiskRepository{
		pool: pool,
	}
}

const riskColumns = `
	analysis_id, document_id, user_id, application_id, document_type,
	risk_score, risk_level, anomalies, reasoning, recommendations,
	analysis_timestamp, signature
`

// Insert stores a new analysis result. No updates are ever performed.
func (r *RiskRepository) Insert(ctx context.Context, result *domain.RiskAnalysisResult) error {
	const query = `
		INSERT INTO risk_analysis_results (
			analysis_id, document_id, user_id, application_id, document_type,
			risk_score, risk_level, anomalies, reasoning, recommendations,
			analysis_timestamp, signature
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`
	anomalies, err := json.Marshal(result.Anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomalies: %w", err)
	}
	var reasoning []byte
	if result.Reasoning != nil {
		reasoning, err = json.Marshal(result.Reasoning)
		if err != nil {
			return fmt.Errorf("failed to marshal reasoning: %w", err)
		}
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		result.AnalysisID, result.DocumentID, result.UserID, result.ApplicationID, result.DocumentType,
		result.RiskScore, result.RiskLevel, anomalies, reasoning, recommendations,
		result.AnalysisTimestamp, result.Signature,
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk analysis result: %w", err)
	}
	return nil
}

// LatestByDocumentID returns the most recent analysis for a document.
func (r *RiskRepository) LatestByDocumentID(ctx context.Context, documentID string) (*domain.RiskAnalysisResult, error) {
	query := `
		SELECT ` + riskColumns + `
		FROM risk_analysis_results
		WHERE document_id = $1
		ORDER BY analysis_timestamp DESC
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, documentID)
	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no risk analysis found for document %s", documentID)
		}
		return nil, fmt.Errorf("failed to query risk analysis: %w", err)
	}
	return result, nil
}

// ByUserID returns the latest analysis per document for a user.
func (r *RiskRepository) ByUserID(ctx context.Context, userID string) ([]domain.RiskAnalysisResult, error) {
	query := `
		SELECT DISTINCT ON (document_id) ` + riskColumns + `
		FROM risk_analysis_results
		WHERE user_id = $1
		ORDER BY document_id, analysis_timestamp DESC
	`
	return r.queryMany(ctx, query, userID)
}

// ByApplicationID returns the latest analysis per document for a loan
// application.
func (r *RiskRepository) ByApplicationID(ctx context.Context, applicationID string) ([]domain.RiskAnalysisResult, error) {
	query := `
		SELECT DISTINCT ON (document_id) ` + riskColumns + `
		FROM risk_analysis_results
		WHERE application_id = $1
		ORDER BY document_id, analysis_timestamp DESC
	`
	return r.queryMany(ctx, query, applicationID)
}

func (r *RiskRepository) queryMany(ctx context.Context, query string, arg interface{}) ([]domain.RiskAnalysisResult, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk analyses: %w", err)
	}
	defer rows.Close()

	var out []domain.RiskAnalysisResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk analysis: %w", err)
		}
		out = append(out, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read risk analyses: %w", err)
	}
	return out, nil
}

func scanResult(row rowScanner) (*domain.RiskAnalysisResult, error) {
	var (
		result                                domain.RiskAnalysisResult
		applicationID, signature              *string
		anomalies, reasoning, recommendations []byte
	)
	err := row.Scan(
		&result.AnalysisID, &result.DocumentID, &result.UserID, &applicationID, &result.DocumentType,
		&result.RiskScore, &result.RiskLevel, &anomalies, &reasoning, &recommendations,
		&result.AnalysisTimestamp, &signature,
	)
	if err != nil {
		return nil, err
	}
	if applicationID != nil {
		result.ApplicationID = *applicationID
	}
	if signature != nil {
		result.Signature = *signature
	}
	if len(anomalies) > 0 {
		if err := json.Unmarshal(anomalies, &result.Anomalies); err != nil {
			return nil, fmt.Errorf("malformed anomalies payload: %w", err)
		}
	}
	if len(reasoning) > 0 {
		if err := json.Unmarshal(reasoning, &result.Reasoning); err != nil {
			return nil, fmt.Errorf("malformed reasoning payload: %w", err)
		}
	}
	if len(recommendations) > 0 {
		if err := json.Unmarshal(recommendations, &result.Recommendations); err != nil {
			return nil, fmt.Errorf("malformed recommendations payload: %w", err)
		}
	}
	return &result, nil
}
