package analytics

import (
	"strings"
)

// RuleSet holds the ordered keyword lists that drive transaction
// classification. Injectable so rule sets can be swapped per locale or
// bank format without touching the orchestration logic.
type RuleSet struct {
	SalaryKeywords []string
	EMIKeywords    []string
	LenderKeywords []string
	CCKeywords     []string
	BounceKeywords []string
	CashKeywords   []string
}

// DefaultRuleSet returns keyword lists calibrated for Indian bank
// statement descriptions.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		SalaryKeywords: []string{
			"SAL", "SALARY", "PAYROLL", "WAGES", "PAY", "REMITTANCE",
			"SALARY CREDIT", "SAL CREDIT", "SALARY PAYMENT", "SALARY TRANSFER",
			"SALARY NEFT", "SALARY RTGS", "SALARY IMPS", "SALARY UPI",
		},
		EMIKeywords: []string{"EMI", "LOAN", "NACH", "ECS", "AUTO DEBIT"},
		LenderKeywords: []string{
			"BAJAJ", "HDFC", "ICICI", "SBI", "AXIS", "KOTAK", "YES BANK",
			"FULLERTON", "HOME CREDIT", "CAPITAL FIRST", "ADITYA BIRLA",
			"MONEY VIEW", "SMARTCOIN", "CASHE", "KISAN", "FEDERAL", "PNB",
			"NBFC",
		},
		CCKeywords: []string{
			"CREDIT CARD", "CC PAYMENT", "CREDIT CARD PAYMENT",
			"CARD PAYMENT", "VISA", "MASTERCARD", "AMEX", "RUPAY",
		},
		BounceKeywords: []string{"RETURN", "BOUNCE", "INSUFFICIENT", "FAILED", "REJECTED"},
		CashKeywords:   []string{"ATM", "CASH", "WITHDRAWAL", "WD"},
	}
}

// matchAny reports whether the upper-cased description contains any of the
// keywords.
func matchAny(descriptionUpper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(descriptionUpper, kw) {
			return true
		}
	}
	return false
}

// IsSalary matches a credit description against the salary keyword list.
func (r RuleSet) IsSalary(description string) bool {
	return matchAny(strings.ToUpper(description), r.SalaryKeywords)
}

// IsCreditCardPayment matches the credit-card keyword list. Checked before
// EMI classification so a card payment to a bank is never double-counted
// as a loan installment.
func (r RuleSet) IsCreditCardPayment(description string) bool {
	return matchAny(strings.ToUpper(description), r.CCKeywords)
}

// IsEMI matches the EMI/mandate keyword list.
func (r RuleSet) IsEMI(description string) bool {
	return matchAny(strings.ToUpper(description), r.EMIKeywords)
}

// IsLender matches the lender/NBFC keyword list.
func (r RuleSet) IsLender(description string) bool {
	return matchAny(strings.ToUpper(description), r.LenderKeywords)
}

// IsBounce matches bounce/return/insufficient-funds terms.
func (r RuleSet) IsBounce(description string) bool {
	return matchAny(strings.ToUpper(description), r.BounceKeywords)
}

// IsCashWithdrawal matches ATM/cash terms on debit descriptions.
func (r RuleSet) IsCashWithdrawal(description string) bool {
	return matchAny(strings.ToUpper(description), r.CashKeywords)
}

// ExtractLender returns the first lender keyword found in the description,
// or "UNKNOWN LENDER" when none match.
func (r RuleSet) ExtractLender(description string) string {
	upper := strings.ToUpper(description)
	for _, lender := range r.LenderKeywords {
		if strings.Contains(upper, lender) {
			return lender
		}
	}
	return "UNKNOWN LENDER"
}
