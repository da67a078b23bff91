package domain

import (
	"time"
)

// TransactionType classifies a bank statement row
type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

// RawTransaction is a statement row exactly as the extraction collaborator
// produced it. Amounts and dates arrive as loosely-typed values (numbers,
// strings with currency symbols and separators, nulls) and must survive
// normalization without rejecting the record.
type RawTransaction struct {
	Date          string      `json:"date" db:"transaction_date"`
	Description   string      `json:"description" db:"description"`
	Type          string      `json:"transaction_type" db:"transaction_type"`
	DebitAmount   interface{} `json:"debit_amount" db:"debit_amount"`
	CreditAmount  interface{} `json:"credit_amount" db:"credit_amount"`
	BalanceAfter  interface{} `json:"balance_after" db:"balance_after"`
	AccountNumber string      `json:"account_number" db:"account_number"`
	DocumentID    string      `json:"document_id" db:"document_id"`
	TransactionID string      `json:"transaction_id" db:"transaction_id"`
}

// Transaction is the normalized form used by every analyzer.
// Invariant: at most one of DebitAmount/CreditAmount should be non-zero;
// violations are tolerated, never rejected.
type Transaction struct {
	Date          time.Time       `json:"date"`
	DateValid     bool            `json:"-"`
	Description   string          `json:"description"`
	Type          TransactionType `json:"transaction_type"`
	DebitAmount   float64         `json:"debit_amount"`
	CreditAmount  float64         `json:"credit_amount"`
	BalanceAfter  *float64        `json:"balance_after,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	DocumentID    string          `json:"document_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// AccountInfo is the statement header supplied by the extraction collaborator.
// Declared balances may be absent, in which case the sequence validator
// derives them from the first/last transaction balances.
type AccountInfo struct {
	AccountNumber  string     `json:"account_number"`
	HolderName     string     `json:"holder_name"`
	BankName       string     `json:"bank_name"`
	PeriodFrom     *time.Time `json:"period_from,omitempty"`
	PeriodTo       *time.Time `json:"period_to,omitempty"`
	OpeningBalance *float64   `json:"opening_balance,omitempty"`
	ClosingBalance *float64   `json:"closing_balance,omitempty"`
}
