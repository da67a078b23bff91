package domain

import (
	"time"
)

// DocumentType identifies the kind of uploaded underwriting document.
type DocumentType string

const (
	DocTypeAadhaar       DocumentType = "AADHAAR"
	DocTypePAN           DocumentType = "PAN"
	DocTypePassport      DocumentType = "PASSPORT"
	DocTypePayslip       DocumentType = "PAYSLIP"
	DocTypeBankStatement DocumentType = "BANK_STATEMENT"
	DocTypeCIBILReport   DocumentType = "CIBIL_REPORT"
	DocTypeITRForm       DocumentType = "ITR_FORM"
	DocTypeGSTReturn     DocumentType = "GST_RETURN"
	DocTypeUnknown       DocumentType = "UNKNOWN"
)

// ValidationResult is the quality record the extraction collaborator
// attaches to each document. Shapes vary across collaborator versions,
// so consumers go through CoerceValidationResult.
type ValidationResult struct {
	QualityScore float64  `json:"quality_score"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
}

// CoerceValidationResult converts a loosely-typed validation payload into
// a safe ValidationResult. Anything malformed collapses to the defaults:
// quality 100, no errors, no warnings.
func CoerceValidationResult(raw map[string]interface{}) ValidationResult {
	out := ValidationResult{QualityScore: 100, Errors: []string{}, Warnings: []string{}}
	if raw == nil {
		return out
	}

	switch q := raw["quality_score"].(type) {
	case float64:
		out.QualityScore = q
	case int:
		out.QualityScore = float64(q)
	case string:
		// Collaborator occasionally emits numbers as strings; ignore junk.
		var f float64
		if n, err := parseFloatStrict(q); err == nil {
			f = n
			out.QualityScore = f
		}
	}
	if out.QualityScore < 0 || out.QualityScore > 100 {
		out.QualityScore = 100
	}

	out.Errors = coerceStringList(raw["errors"])
	out.Warnings = coerceStringList(raw["warnings"])
	return out
}

func coerceStringList(v interface{}) []string {
	out := []string{}
	list, ok := v.([]interface{})
	if !ok {
		if strs, ok := v.([]string); ok {
			return append(out, strs...)
		}
		return out
	}
	for _, item := range list {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case map[string]interface{}:
			if msg, ok := s["message"].(string); ok {
				out = append(out, msg)
			}
		}
	}
	return out
}

// ExtractionRecord is one document's extracted content plus validation
// metadata, as stored by the extraction collaborator.
type ExtractionRecord struct {
	DocumentID      string                 `json:"document_id" db:"document_id"`
	UserID          string                 `json:"user_id" db:"user_id"`
	ApplicationID   string                 `json:"application_id" db:"application_id"`
	DocumentType    DocumentType           `json:"document_type" db:"document_type"`
	ExtractedFields map[string]interface{} `json:"extracted_fields" db:"extracted_fields"`
	Validation      map[string]interface{} `json:"validation_result" db:"validation_result"`
	AccountInfo     *AccountInfo           `json:"account_info,omitempty"`
	RiskScore       *float64               `json:"risk_score,omitempty" db:"risk_score"`
	RiskLevel       *RiskLevel             `json:"risk_level,omitempty" db:"risk_level"`
	UploadedAt      time.Time              `json:"uploaded_at" db:"uploaded_at"`
}

// FieldString fetches an extracted field as a trimmed string, tolerating
// numeric and nested {"value": ...} shapes.
func (r *ExtractionRecord) FieldString(key string) string {
	if r.ExtractedFields == nil {
		return ""
	}
	return stringifyField(r.ExtractedFields[key])
}

// FieldFloat fetches an extracted field as a number. The second return
// reports whether a usable numeric value was present.
func (r *ExtractionRecord) FieldFloat(key string) (float64, bool) {
	if r.ExtractedFields == nil {
		return 0, false
	}
	return numifyField(r.ExtractedFields[key])
}

// FieldMap fetches an extracted field that holds a nested object, such as
// the payslip salary block or the CIBIL score section.
func (r *ExtractionRecord) FieldMap(key string) map[string]interface{} {
	if r.ExtractedFields == nil {
		return nil
	}
	m, _ := r.ExtractedFields[key].(map[string]interface{})
	return m
}
