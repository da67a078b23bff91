package postgres

import (
	"context"
	"fmt"

	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository reads the bank statement rows the extraction
// collaborator stores. Amount and date columns are text on purpose:
// extraction emits whatever the statement PDF contained, and the
// analytics layer owns the coercion rules.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{
		pool: pool,
	}
}

const transactionColumns = `
	transaction_id, document_id, account_number, transaction_type,
	txn_date, description, debit_amount, credit_amount, balance_after
`

// ByAccountNumber returns every stored row for the account, across all
// uploaded statements, oldest first.
func (r *TransactionRepository) ByAccountNumber(ctx context.Context, accountNumber string) ([]domain.RawTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE account_number = $1
		ORDER BY txn_date ASC
	`
	rows, err := r.pool.Query(ctx, query, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by account: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ByDocumentID returns the rows extracted from one statement document.
func (r *TransactionRepository) ByDocumentID(ctx context.Context, documentID string) ([]domain.RawTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE document_id = $1
		ORDER BY txn_date ASC
	`
	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by document: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

type transactionRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows transactionRows) ([]domain.RawTransaction, error) {
	var out []domain.RawTransaction
	for rows.Next() {
		var (
			txn                      domain.RawTransaction
			date, debit, credit, bal *string
			txnID, docID, account    *string
			txnType, description     *string
		)
		if err := rows.Scan(&txnID, &docID, &account, &txnType, &date, &description, &debit, &credit, &bal); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if txnType != nil {
			txn.Type = *txnType
		}
		if txnID != nil {
			txn.TransactionID = *txnID
		}
		if docID != nil {
			txn.DocumentID = *docID
		}
		if account != nil {
			txn.AccountNumber = *account
		}
		if date != nil {
			txn.Date = *date
		}
		if description != nil {
			txn.Description = *description
		}
		if debit != nil {
			txn.DebitAmount = *debit
		}
		if credit != nil {
			txn.CreditAmount = *credit
		}
		if bal != nil {
			txn.BalanceAfter = *bal
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}
