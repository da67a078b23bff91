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

// ExtractionRepository reads extracted documents and writes the risk
// summary back onto them after analysis.
type ExtractionRepository struct {
	pool *pgxpool.Pool
}

// NewExtractionRepository creates a new extraction repository
func NewExtractionRepository(pool *pgxpool.Pool) *ExtractionRepository {
	return &ExtractionRepository{
		pool: pool,
	}
}

const extractionColumns = `
	document_id, user_id, application_id, document_type,
	extracted_fields, validation_result, account_info,
	risk_score, risk_level, uploaded_at
`

// ByDocumentID fetches one extraction record.
func (r *ExtractionRepository) ByDocumentID(ctx context.Context, documentID string) (*domain.ExtractionRecord, error) {
	query := `
		SELECT ` + extractionColumns + `
		FROM extraction_records
		WHERE document_id = $1
	`
	row := r.pool.QueryRow(ctx, query, documentID)
	rec, err := scanExtraction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("extraction record %s not found", documentID)
		}
		return nil, fmt.Errorf("failed to query extraction record: %w", err)
	}
	return rec, nil
}

// ByUserID fetches all of a user's extracted documents, newest first.
func (r *ExtractionRepository) ByUserID(ctx context.Context, userID string) ([]domain.ExtractionRecord, error) {
	query := `
		SELECT ` + extractionColumns + `
		FROM extraction_records
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction records: %w", err)
	}
	defer rows.Close()

	var out []domain.ExtractionRecord
	for rows.Next() {
		rec, err := scanExtraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extraction record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read extraction records: %w", err)
	}
	return out, nil
}

// UpdateRiskSummary denormalizes the latest score onto the document row.
func (r *ExtractionRepository) UpdateRiskSummary(ctx context.Context, documentID string, score float64, level domain.RiskLevel) error {
	const query = `
		UPDATE extraction_records
		SET risk_score = $2, risk_level = $3
		WHERE document_id = $1
	`
	tag, err := r.pool.Exec(ctx, query, documentID, score, level)
	if err != nil {
		return fmt.Errorf("failed to update risk summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("extraction record %s not found", documentID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExtraction(row rowScanner) (*domain.ExtractionRecord, error) {
	var (
		rec                      domain.ExtractionRecord
		applicationID, riskLevel *string
		fields, validation, acct []byte
	)
	err := row.Scan(
		&rec.DocumentID, &rec.UserID, &applicationID, &rec.DocumentType,
		&fields, &validation, &acct,
		&rec.RiskScore, &riskLevel, &rec.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	if applicationID != nil {
		rec.ApplicationID = *applicationID
	}
	if riskLevel != nil {
		level := domain.RiskLevel(*riskLevel)
		rec.RiskLevel = &level
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &rec.ExtractedFields); err != nil {
			return nil, fmt.Errorf("malformed extracted_fields: %w", err)
		}
	}
	if len(validation) > 0 {
		if err := json.Unmarshal(validation, &rec.Validation); err != nil {
			return nil, fmt.Errorf("malformed validation_result: %w", err)
		}
	}
	if len(acct) > 0 {
		if err := json.Unmarshal(acct, &rec.AccountInfo); err != nil {
			return nil, fmt.Errorf("malformed account_info: %w", err)
		}
	}
	return &rec, nil
}
