package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/crypto"
	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// TransactionSource fetches statement rows by account number or by source
// document. Implemented by the postgres repository.
type TransactionSource interface {
	ByAccountNumber(ctx context.Context, accountNumber string) ([]domain.RawTransaction, error)
	ByDocumentID(ctx context.Context, documentID string) ([]domain.RawTransaction, error)
}

// ProfileSource looks up the customer's declaration record.
type ProfileSource interface {
	ByCustomerID(ctx context.Context, customerID string) (*domain.CustomerProfile, error)
	ByName(ctx context.Context, fullName string) (*domain.CustomerProfile, error)
}

// BankAnalytics is the full bank statement analytics report.
type BankAnalytics struct {
	AccountNumber string             `json:"account_number,omitempty"`
	DocumentID    string             `json:"document_id,omitempty"`
	Transactions  int                `json:"transaction_count"`
	Income        IncomeAnalysis     `json:"income_analysis"`
	Obligations   ObligationAnalysis `json:"obligation_analysis"`
	DTI           DTIAnalysis        `json:"dti_analysis"`
	Behavior      BehaviorAnalysis   `json:"behavior_analysis"`
	Fraud         FraudAnalysis      `json:"fraud_analysis"`
	Profile       *domain.CustomerProfile `json:"customer_profile,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// Analyzer runs the bank statement analytics pipeline. Construct once at
// process start and share; it holds no per-invocation state.
type Analyzer struct {
	cfg    config.AnalyticsConfig
	rules  RuleSet
	txns   TransactionSource
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyzer creates an analyzer with the given thresholds and rule set.
func NewAnalyzer(cfg config.AnalyticsConfig, rules RuleSet, txns TransactionSource, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		rules:  rules,
		txns:   txns,
		logger: logger,
		now:    time.Now,
	}
}

// ErrNoTransactions is returned when the source yields no rows for the
// account or document. Callers surface it as a medium anomaly rather than
// aborting the pipeline.
var ErrNoTransactions = fmt.Errorf("no transactions found")

// AnalyzeStatement runs the full analytics pipeline for one account or
// document. When a document-scoped query yields rows, the set is
// re-queried by account number so the history spans every uploaded
// statement for that account.
func (a *Analyzer) AnalyzeStatement(ctx context.Context, accountNumber, documentID string, account *domain.AccountInfo, profile *domain.CustomerProfile) (*BankAnalytics, error) {
	var raws []domain.RawTransaction
	var err error

	switch {
	case accountNumber != "":
		raws, err = a.txns.ByAccountNumber(ctx, accountNumber)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions by account: %w", err)
		}
	case documentID != "":
		raws, err = a.txns.ByDocumentID(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions by document: %w", err)
		}
		// A document-scoped result may be a strict subset of the account's
		// history when the customer uploaded several statements. Re-query by
		// the account number found on the rows.
		if len(raws) > 0 && raws[0].AccountNumber != "" {
			accountNumber = raws[0].AccountNumber
			full, ferr := a.txns.ByAccountNumber(ctx, accountNumber)
			if ferr != nil {
				a.logger.Warn("Account re-query failed, using document-scoped rows",
					zap.String("document_id", documentID), zap.Error(ferr))
			} else if len(full) > len(raws) {
				a.logger.Info("Expanded document-scoped query to full account history",
					zap.Int("document_rows", len(raws)), zap.Int("account_rows", len(full)))
				raws = full
			}
		}
	default:
		return nil, fmt.Errorf("account number or document id required")
	}

	if len(raws) == 0 {
		return nil, ErrNoTransactions
	}

	txns := Normalize(raws, a.cfg.DescriptionKeyLength, a.logger)
	return a.Run(txns, account, profile, accountNumber, documentID), nil
}

// Run executes every analyzer over an already-normalized transaction set.
// Income and obligations feed DTI; behavior and fraud run independently.
func (a *Analyzer) Run(txns []domain.Transaction, account *domain.AccountInfo, profile *domain.CustomerProfile, accountNumber, documentID string) *BankAnalytics {
	income := a.AnalyzeIncome(txns, account)
	obligations := a.AnalyzeObligations(txns)
	dti := a.CalculateDTI(income, obligations)
	behavior := a.AnalyzeBehavior(txns, income)
	fraud := a.AnalyzeFraud(txns, account)

	a.logger.Info("Bank statement analytics complete",
		zap.String("account", crypto.MaskPII(accountNumber, "account")),
		zap.Int("transactions", len(txns)),
		zap.Bool("salary_detected", income.SalaryDetected),
		zap.Float64("dti", dti.ActualDTI),
		zap.Int("round_trips", len(fraud.RoundTrips)),
		zap.Int("sequence_errors", len(fraud.SequenceErrors)),
	)

	return &BankAnalytics{
		AccountNumber: accountNumber,
		DocumentID:    documentID,
		Transactions:  len(txns),
		Income:        income,
		Obligations:   obligations,
		DTI:           dti,
		Behavior:      behavior,
		Fraud:         fraud,
		Profile:       profile,
		GeneratedAt:   a.now().UTC(),
	}
}
