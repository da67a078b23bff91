package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the severity band derived from the numeric risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskReasoning is the structured assessment returned by the textual
// reasoning collaborator, or its rule-based fallback equivalent.
type RiskReasoning struct {
	Summary         string   `json:"summary"`
	FraudIndicators []string `json:"fraud_indicators,omitempty"`
	RiskFactors     []string `json:"risk_factors,omitempty"`
	Recommendation  string   `json:"recommendation"`
	Confidence      float64  `json:"confidence"`
	Source          string   `json:"source"` // "llm" or "rule_based"
}

// RiskAnalysisResult is produced once per analysis invocation and never
// updated in place; re-analysis writes a new row.
type RiskAnalysisResult struct {
	AnalysisID        uuid.UUID          `json:"analysis_id" db:"analysis_id"`
	DocumentID        string             `json:"document_id" db:"document_id"`
	UserID            string             `json:"user_id" db:"user_id"`
	ApplicationID     string             `json:"application_id,omitempty" db:"application_id"`
	DocumentType      DocumentType       `json:"document_type" db:"document_type"`
	RiskScore         float64            `json:"risk_score" db:"risk_score"`
	RiskLevel         RiskLevel          `json:"risk_level" db:"risk_level"`
	Anomalies         *AnomalyCollection `json:"anomalies" db:"anomalies"`
	Reasoning         *RiskReasoning     `json:"reasoning,omitempty" db:"reasoning"`
	Recommendations   []string           `json:"recommendations" db:"recommendations"`
	AnalysisTimestamp time.Time          `json:"analysis_timestamp" db:"analysis_timestamp"`
	Signature         string             `json:"signature,omitempty" db:"signature"`
}

// RiskResultPage is one page of search results.
type RiskResultPage struct {
	Results    []*RiskAnalysisResult `json:"results"`
	TotalCount int64                 `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	HasMore    bool                  `json:"has_more"`
}

// RiskRollup summarizes stored results across one user's or one
// application's documents. The final score is the maximum across documents:
// the worst document determines case-level risk.
type RiskRollup struct {
	UserID            string            `json:"user_id,omitempty"`
	ApplicationID     string            `json:"application_id,omitempty"`
	DocumentCount     int               `json:"document_count"`
	AverageRiskScore  float64           `json:"average_risk_score"`
	MaxRiskScore      float64           `json:"max_risk_score"`
	WeightedRiskScore float64           `json:"weighted_risk_score"`
	FinalRiskScore    float64           `json:"final_risk_score"`
	FinalRiskLevel    RiskLevel         `json:"final_risk_level"`
	LevelDistribution map[RiskLevel]int `json:"level_distribution"`
	AnomalyTotals     map[Severity]int  `json:"anomaly_totals"`
	TotalAnomalies    int               `json:"total_anomalies"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
