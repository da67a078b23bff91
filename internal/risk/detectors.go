package risk

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitRe      = regexp.MustCompile(`\d`)
	nonAlphaRe   = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// DetectDocumentAnomalies runs the detector for the record's document type.
// Bank statements return an empty set here: their signals come from the
// transaction analytics pipeline, not from field inspection.
func (s *Service) DetectDocumentAnomalies(rec *domain.ExtractionRecord) *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()
	if rec == nil {
		return out
	}

	switch rec.DocumentType {
	case domain.DocTypeAadhaar:
		s.detectAadhaarAnomalies(rec, out)
	case domain.DocTypePAN:
		s.detectPANAnomalies(rec, out)
	case domain.DocTypePassport:
		s.detectPassportAnomalies(rec, out)
	case domain.DocTypePayslip:
		s.detectPayslipAnomalies(rec, out)
	case domain.DocTypeCIBILReport:
		s.detectCIBILAnomalies(rec, out)
	case domain.DocTypeITRForm:
		s.detectITRAnomalies(rec, out)
	case domain.DocTypeGSTReturn:
		s.detectGSTAnomalies(rec, out)
	case domain.DocTypeBankStatement:
		// handled by the analytics pipeline
	default:
		s.logger.Debug("No field detector for document type",
			zap.String("document_type", string(rec.DocumentType)))
	}
	return out
}

func (s *Service) detectAadhaarAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if aadhaar := rec.FieldString("aadhaar_number"); aadhaar != "" {
		cleaned := whitespaceRe.ReplaceAllString(aadhaar, "")
		if uniqueChars(cleaned) == 1 {
			out.Add(domain.Anomaly{
				Type:     "suspicious_aadhaar_pattern",
				Field:    "aadhaar_number",
				Value:    aadhaar,
				Reason:   "Aadhaar number contains all same digits",
				Severity: domain.SeverityMedium,
			})
		}
		if isSequential(cleaned) {
			out.Add(domain.Anomaly{
				Type:     "sequential_aadhaar",
				Field:    "aadhaar_number",
				Value:    aadhaar,
				Reason:   "Aadhaar number appears to be sequential",
				Severity: domain.SeverityMedium,
			})
		}
	}

	if dob := rec.FieldString("date_of_birth"); dob != "" {
		if born, err := time.Parse("2006-01-02", dob); err == nil {
			age := s.now().Sub(born).Hours() / 24 / 365.25
			if age < 0 || age > 120 {
				out.Add(domain.Anomaly{
					Type:     "invalid_age",
					Field:    "date_of_birth",
					Value:    dob,
					Reason:   fmt.Sprintf("Calculated age (%.1f years) is outside valid range", age),
					Severity: domain.SeverityCritical,
				})
			}
		}
	}

	if name := rec.FieldString("name"); name != "" {
		if len(strings.TrimSpace(name)) < 3 {
			out.Add(domain.Anomaly{
				Type:     "suspicious_name_length",
				Field:    "name",
				Value:    name,
				Reason:   "Name is unusually short",
				Severity: domain.SeverityLow,
			})
		}
		if digitRe.MatchString(name) {
			out.Add(domain.Anomaly{
				Type:     "name_contains_numbers",
				Field:    "name",
				Value:    name,
				Reason:   "Name contains numeric characters",
				Severity: domain.SeverityMedium,
			})
		}
	}

	if address := rec.FieldString("address"); address != "" && len(address) < 10 {
		out.Add(domain.Anomaly{
			Type:     "incomplete_address",
			Field:    "address",
			Value:    address,
			Reason:   "Address appears incomplete",
			Severity: domain.SeverityMedium,
		})
	}
}

func (s *Service) detectPANAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if pan := rec.FieldString("pan_number"); pan != "" {
		cleaned := whitespaceRe.ReplaceAllString(strings.ToUpper(pan), "")
		if uniqueChars(cleaned) <= 2 {
			out.Add(domain.Anomaly{
				Type:     "suspicious_pan_pattern",
				Field:    "pan_number",
				Value:    pan,
				Reason:   "PAN number contains very few unique characters",
				Severity: domain.SeverityMedium,
			})
		}
		prefix := cleaned
		if len(prefix) > 5 {
			prefix = prefix[:5]
		}
		if isSequential(prefix) {
			out.Add(domain.Anomaly{
				Type:     "sequential_pan",
				Field:    "pan_number",
				Value:    pan,
				Reason:   "PAN number prefix appears sequential",
				Severity: domain.SeverityMedium,
			})
		}
	}

	name := rec.FieldString("name")
	fatherName := rec.FieldString("father_name")
	if name != "" && fatherName != "" && namesTooSimilar(name, fatherName) {
		out.Add(domain.Anomaly{
			Type:     "name_similarity_issue",
			Field:    "name",
			Value:    fmt.Sprintf("Name: %s, Father: %s", name, fatherName),
			Reason:   "Name and father's name are suspiciously similar",
			Severity: domain.SeverityHigh,
		})
	}
}

func (s *Service) detectPassportAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if expiry := rec.FieldString("date_of_expiry"); expiry != "" {
		if expiryDate, ok := parseFlexibleDate(expiry); ok && expiryDate.Before(s.now()) {
			out.Add(domain.Anomaly{
				Type:     "expired_passport",
				Field:    "date_of_expiry",
				Value:    expiry,
				Reason:   "Passport has expired",
				Severity: domain.SeverityHigh,
			})
		}
	}
}

// detectPayslipAnomalies validates the salary block and the payslip date.
// The salary block may sit under a nested "salary" object or flattened at
// the top level, depending on the extraction collaborator's version.
func (s *Service) detectPayslipAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	gross, grossOK := payslipSalaryField(rec, "gross_salary")
	net, netOK := payslipSalaryField(rec, "net_salary")

	if grossOK && netOK && gross != 0 && net != 0 {
		if net > gross {
			out.Add(domain.Anomaly{
				Type:     "salary_calculation_error",
				Field:    "salary",
				Value:    fmt.Sprintf("Gross: %v, Net: %v", gross, net),
				Reason:   "Net salary exceeds gross salary",
				Severity: domain.SeverityCritical,
			})
		}

		totalDeductions := 0.0
		if deductions := payslipDeductions(rec); deductions != nil {
			for _, v := range deductions {
				if n, ok := domain.CoerceNumber(v); ok {
					totalDeductions += n
				}
			}
		}
		if gross > 0 && totalDeductions/gross > 0.5 {
			out.Add(domain.Anomaly{
				Type:     "high_deductions",
				Field:    "salary.deductions",
				Value:    fmt.Sprintf("Deductions: %v, Gross: %v", totalDeductions, gross),
				Reason:   fmt.Sprintf("Deductions (%.1f%%) are unusually high", totalDeductions/gross*100),
				Severity: domain.SeverityHigh,
			})
		}

		if gross < 0 || net < 0 {
			out.Add(domain.Anomaly{
				Type:     "negative_salary",
				Field:    "salary",
				Value:    fmt.Sprintf("Gross: %v, Net: %v", gross, net),
				Reason:   "Salary values are negative",
				Severity: domain.SeverityCritical,
			})
		}
	}

	monthStr := rec.FieldString("month")
	yearStr := rec.FieldString("year")
	if monthStr == "" || yearStr == "" {
		return
	}

	month, monthOK := rec.FieldFloat("month")
	year, yearOK := rec.FieldFloat("year")
	if !monthOK || !yearOK {
		out.Add(domain.Anomaly{
			Type:     "date_parsing_error",
			Field:    "month/year",
			Value:    fmt.Sprintf("%s/%s", monthStr, yearStr),
			Reason:   fmt.Sprintf("Unable to parse date: %s/%s", monthStr, yearStr),
			Severity: domain.SeverityCritical,
		})
		return
	}

	monthInt, yearInt := int(month), int(year)
	if monthInt < 1 || monthInt > 12 {
		out.Add(domain.Anomaly{
			Type:     "invalid_month",
			Field:    "month",
			Value:    monthStr,
			Reason:   fmt.Sprintf("Invalid month value: %s", monthStr),
			Severity: domain.SeverityCritical,
		})
		return
	}
	if yearInt < 1900 || yearInt > 2100 {
		out.Add(domain.Anomaly{
			Type:     "invalid_year",
			Field:    "year",
			Value:    yearStr,
			Reason:   fmt.Sprintf("Invalid year value: %s", yearStr),
			Severity: domain.SeverityCritical,
		})
		return
	}

	now := s.now().UTC()
	payslipDate := time.Date(yearInt, time.Month(monthInt), 1, 0, 0, 0, 0, time.UTC)
	if payslipDate.After(now) {
		out.Add(domain.Anomaly{
			Type:     "future_dated_payslip",
			Field:    "month/year",
			Value:    fmt.Sprintf("%d/%d", monthInt, yearInt),
			Reason:   "Payslip is dated in the future",
			Severity: domain.SeverityCritical,
		})
	}
	if int(now.Sub(payslipDate).Hours()/24) > 730 {
		out.Add(domain.Anomaly{
			Type:     "old_payslip",
			Field:    "month/year",
			Value:    fmt.Sprintf("%d/%d", monthInt, yearInt),
			Reason:   "Payslip is more than 2 years old",
			Severity: domain.SeverityCritical,
		})
	}
}

func (s *Service) detectCIBILAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if scoreBlock := rec.FieldMap("CREDIT_SCORE"); scoreBlock != nil {
		if score, ok := domain.CoerceNumber(scoreBlock["credit_score"]); ok && score != 0 {
			if score < 300 || score > 900 {
				out.Add(domain.Anomaly{
					Type:     "invalid_credit_score",
					Field:    "CREDIT_SCORE.credit_score",
					Value:    fmt.Sprintf("%.0f", score),
					Reason:   fmt.Sprintf("Credit score %.0f is outside valid range (300-900)", score),
					Severity: domain.SeverityCritical,
				})
			}
			if score < 500 {
				out.Add(domain.Anomaly{
					Type:     "low_credit_score",
					Field:    "CREDIT_SCORE.credit_score",
					Value:    fmt.Sprintf("%.0f", score),
					Reason:   fmt.Sprintf("Credit score %.0f is very low", score),
					Severity: domain.SeverityHigh,
				})
			}
		}
	}

	if accountsBlock := rec.FieldMap("ACCOUNTS"); accountsBlock != nil {
		accounts, _ := accountsBlock["accounts"].([]interface{})
		overdueCount := 0
		for _, acc := range accounts {
			m, ok := acc.(map[string]interface{})
			if !ok {
				continue
			}
			if overdue, ok := domain.CoerceNumber(m["overdue_amount"]); ok && overdue > 0 {
				overdueCount++
			}
		}
		if overdueCount > 0 {
			out.Add(domain.Anomaly{
				Type:     "overdue_accounts",
				Field:    "ACCOUNTS.accounts",
				Value:    fmt.Sprintf("%d accounts with overdue amounts", overdueCount),
				Reason:   fmt.Sprintf("%d account(s) have overdue amounts", overdueCount),
				Severity: domain.SeverityHigh,
			})
		}
	}
}

func (s *Service) detectITRAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if year, ok := rec.FieldFloat("assessment_year"); ok && year != 0 {
		if int(year) > s.now().UTC().Year() {
			out.Add(domain.Anomaly{
				Type:     "future_assessment_year",
				Field:    "assessment_year",
				Value:    rec.FieldString("assessment_year"),
				Reason:   "Assessment year is in the future",
				Severity: domain.SeverityCritical,
			})
		}
	}
}

func (s *Service) detectGSTAnomalies(rec *domain.ExtractionRecord, out *domain.AnomalyCollection) {
	if gstin := rec.FieldString("gstin"); gstin != "" {
		cleaned := whitespaceRe.ReplaceAllString(strings.ToUpper(gstin), "")
		if uniqueChars(cleaned) <= 3 {
			out.Add(domain.Anomaly{
				Type:     "suspicious_gstin_pattern",
				Field:    "gstin",
				Value:    gstin,
				Reason:   "GSTIN contains very few unique characters",
				Severity: domain.SeverityHigh,
			})
		}
	}
}

// DetectQualityAnomalies flags documents whose extraction quality record
// signals problems independent of the document's content.
func (s *Service) DetectQualityAnomalies(validation domain.ValidationResult) *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()

	if validation.QualityScore < 50 {
		out.Add(domain.Anomaly{
			Type:     "low_quality_score",
			Field:    "overall",
			Value:    fmt.Sprintf("%.0f", validation.QualityScore),
			Reason:   fmt.Sprintf("Document quality score (%.0f) is below acceptable threshold", validation.QualityScore),
			Severity: domain.SeverityMedium,
		})
	}
	if len(validation.Errors) > 3 {
		out.Add(domain.Anomaly{
			Type:     "multiple_validation_errors",
			Field:    "overall",
			Value:    fmt.Sprintf("%d", len(validation.Errors)),
			Reason:   fmt.Sprintf("Document has %d validation errors", len(validation.Errors)),
			Severity: domain.SeverityMedium,
		})
	}
	if len(validation.Warnings) > 5 {
		out.Add(domain.Anomaly{
			Type:     "many_warnings",
			Field:    "overall",
			Value:    fmt.Sprintf("%d", len(validation.Warnings)),
			Reason:   fmt.Sprintf("Document has %d validation warnings", len(validation.Warnings)),
			Severity: domain.SeverityLow,
		})
	}
	return out
}

// payslipSalaryField checks the flattened top-level key first, then the
// nested salary object.
func payslipSalaryField(rec *domain.ExtractionRecord, key string) (float64, bool) {
	if v, ok := rec.FieldFloat(key); ok {
		return v, true
	}
	if salary := rec.FieldMap("salary"); salary != nil {
		return domain.CoerceNumber(salary[key])
	}
	return 0, false
}

func payslipDeductions(rec *domain.ExtractionRecord) map[string]interface{} {
	if m := rec.FieldMap("deductions"); m != nil {
		return m
	}
	if salary := rec.FieldMap("salary"); salary != nil {
		m, _ := salary["deductions"].(map[string]interface{})
		return m
	}
	return nil
}

func uniqueChars(s string) int {
	seen := map[rune]struct{}{}
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// isSequential reports whether the string contains a run of three digits
// each one greater than the last, e.g. "1234 5678 9012".
func isSequential(value string) bool {
	if len(value) < 3 {
		return false
	}
	for i := 0; i+2 < len(value); i++ {
		a, b, c := value[i], value[i+1], value[i+2]
		if a < '0' || a > '9' || b < '0' || b > '9' || c < '0' || c > '9' {
			continue
		}
		if b == a+1 && c == b+1 {
			return true
		}
	}
	return false
}

// namesTooSimilar reports whether two names share more than half their
// words, a pattern seen in fabricated identity documents.
func namesTooSimilar(name1, name2 string) bool {
	words1 := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(name1)) {
		words1[w] = struct{}{}
	}
	words2 := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(name2)) {
		words2[w] = struct{}{}
	}
	if len(words1) == 0 || len(words2) == 0 {
		return false
	}
	overlap := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			overlap++
		}
	}
	longest := len(words1)
	if len(words2) > longest {
		longest = len(words2)
	}
	return float64(overlap)/float64(longest) > 0.5
}

// namesMatch compares names after stripping punctuation and case.
func namesMatch(name1, name2 string) bool {
	normalize := func(name string) string {
		return strings.TrimSpace(nonAlphaRe.ReplaceAllString(strings.ToLower(name), ""))
	}
	return normalize(name1) == normalize(name2)
}

// datesMatch accepts the handful of date layouts extraction emits and
// compares calendar days. Unparseable inputs never match.
func datesMatch(date1, date2 string) bool {
	layouts := []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"}
	for _, layout := range layouts {
		d1, err1 := time.Parse(layout, strings.TrimSpace(date1))
		d2, err2 := time.Parse(layout, strings.TrimSpace(date2))
		if err1 == nil && err2 == nil {
			return d1.Year() == d2.Year() && d1.YearDay() == d2.YearDay()
		}
	}
	return false
}

func parseFlexibleDate(value string) (time.Time, bool) {
	layouts := []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractName pulls the holder's name from whichever field the document
// type uses.
func extractName(rec *domain.ExtractionRecord) string {
	for _, field := range []string{"name", "employee_name", "consumer_name", "account_holder_name"} {
		if v := rec.FieldString(field); v != "" {
			return v
		}
	}
	return ""
}
