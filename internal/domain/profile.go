package domain

import (
	"strings"
	"time"
)

// CustomerProfile is the applicant's declaration record, read-only to this
// service. ExistingLoan is free text captured at application time.
type CustomerProfile struct {
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	DateOfBirth  string    `json:"date_of_birth" db:"date_of_birth"`
	PAN          string    `json:"pan" db:"pan"`
	ExistingLoan string    `json:"existing_loan" db:"existing_loan"`
	Phone        string    `json:"phone" db:"phone"`
	Email        string    `json:"email" db:"email"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LoanDeclaration is the normalized reading of the free-text existing_loan
// field.
type LoanDeclaration int

const (
	LoanDeclarationUnknown LoanDeclaration = iota
	LoanDeclarationNo
	LoanDeclarationYes
)

// DeclaredExistingLoan normalizes case and synonym variations of the
// existing_loan declaration. Anything not clearly yes/no is Unknown.
func (p *CustomerProfile) DeclaredExistingLoan() LoanDeclaration {
	if p == nil {
		return LoanDeclarationUnknown
	}
	switch strings.ToUpper(strings.TrimSpace(p.ExistingLoan)) {
	case "NO", "N", "FALSE", "0":
		return LoanDeclarationNo
	case "YES", "Y", "TRUE", "1":
		return LoanDeclarationYes
	default:
		return LoanDeclarationUnknown
	}
}
