package analytics

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// ParseAmount converts any monetary representation into a float. Handles
// plain numbers, strings with thousands separators, currency symbols, and
// surrounding whitespace. Unparsable values default to 0.0 and are logged,
// never raised.
func ParseAmount(value interface{}, logger *zap.Logger) float64 {
	switch v := value.(type) {
	case nil:
		return 0.0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := strings.NewReplacer(",", "", "₹", "", "$", "", " ", "").Replace(v)
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			return 0.0
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			if logger != nil {
				logger.Warn("Could not parse amount", zap.String("value", v))
			}
			return 0.0
		}
		return f
	default:
		if logger != nil {
			logger.Warn("Unsupported amount type", zap.Any("value", value))
		}
		return 0.0
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses transaction dates in ISO formats. The second return
// value is false for unparsable dates; callers skip the entry from
// date-dependent calculations.
func ParseDate(value string, logger *zap.Logger) (time.Time, bool) {
	value = strings.TrimSpace(strings.Replace(value, "Z", "+00:00", 1))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	// Retry with original Z suffix for RFC3339
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
		return t, true
	}
	if logger != nil && value != "" {
		logger.Warn("Could not parse transaction date", zap.String("value", value))
	}
	return time.Time{}, false
}

// Normalize converts raw extraction rows into typed transactions, parsing
// amounts and dates defensively and deduplicating the result. descKeyLen
// bounds the description portion of the dedup key.
func Normalize(raws []domain.RawTransaction, descKeyLen int, logger *zap.Logger) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(raws))
	for _, raw := range raws {
		txn := domain.Transaction{
			Description:   raw.Description,
			Type:          domain.TransactionType(strings.ToUpper(strings.TrimSpace(raw.Type))),
			DebitAmount:   ParseAmount(raw.DebitAmount, logger),
			CreditAmount:  ParseAmount(raw.CreditAmount, logger),
			AccountNumber: raw.AccountNumber,
			DocumentID:    raw.DocumentID,
			TransactionID: raw.TransactionID,
		}
		if raw.BalanceAfter != nil {
			bal := ParseAmount(raw.BalanceAfter, logger)
			txn.BalanceAfter = &bal
		}
		// Rows from older extraction versions omit transaction_type; infer
		// it from which amount is populated.
		if txn.Type != domain.TransactionCredit && txn.Type != domain.TransactionDebit {
			if txn.CreditAmount > 0 {
				txn.Type = domain.TransactionCredit
			} else {
				txn.Type = domain.TransactionDebit
			}
		}
		txn.Date, txn.DateValid = ParseDate(raw.Date, logger)
		out = append(out, txn)
	}
	return Deduplicate(out, descKeyLen)
}

type dedupKey struct {
	date        string
	description string
	credit      float64
	debit       float64
}

// Deduplicate removes repeated transactions using a composite key of
// (date, truncated description, rounded credit, rounded debit). The key is
// preferred over transaction_id, which may be absent or duplicated across
// overlapping source documents. descKeyLen caps the description component;
// zero or negative means the full description. Idempotent: applying it
// twice yields the same set.
func Deduplicate(txns []domain.Transaction, descKeyLen int) []domain.Transaction {
	seen := make(map[dedupKey]struct{}, len(txns))
	out := make([]domain.Transaction, 0, len(txns))
	for _, txn := range txns {
		desc := strings.TrimSpace(txn.Description)
		if descKeyLen > 0 {
			desc = truncate(desc, descKeyLen)
		}
		key := dedupKey{
			date:        txn.Date.Format("2006-01-02"),
			description: desc,
			credit:      round2(txn.CreditAmount),
			debit:       round2(txn.DebitAmount),
		}
		if !txn.DateValid {
			key.date = ""
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, txn)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
