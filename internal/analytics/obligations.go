package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

// EMITransaction is one detected loan installment debit.
type EMITransaction struct {
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	LenderName    string    `json:"lender_name"`
	TransactionID string    `json:"transaction_id,omitempty"`
}

// EMIBounce is an installment occurrence whose description carries
// bounce/return/insufficient-funds terms.
type EMIBounce struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Reason      string    `json:"reason"`
}

// RecurringEMI is a debt obligation inferred from at least two
// identical-amount debits attributed to the same lender.
type RecurringEMI struct {
	LenderName    string      `json:"lender_name"`
	EMIAmount     float64     `json:"emi_amount"`
	Occurrences   int         `json:"occurrences"`
	Dates         []time.Time `json:"dates"`
	PaymentDay    int         `json:"emi_payment_day"` // most frequent day-of-month
	Bounces       []EMIBounce `json:"bounces"`
	BounceCount   int         `json:"bounce_count"`
}

// CCPaymentPattern classifies credit-card repayment behavior.
type CCPaymentPattern string

const (
	CCPatternFullPayment CCPaymentPattern = "FULL_PAYMENT"
	CCPatternVariable    CCPaymentPattern = "VARIABLE"
	CCPatternMixed       CCPaymentPattern = "MIXED"
	CCPatternMinimumOnly CCPaymentPattern = "MINIMUM_ONLY"
)

// CCPaymentAnalysis summarizes credit-card payment behavior.
type CCPaymentAnalysis struct {
	TotalPayments         int              `json:"total_payments"`
	AverageMonthlyPayment float64          `json:"average_monthly_payment"`
	PaymentPattern        CCPaymentPattern `json:"payment_pattern,omitempty"`
	PaymentConsistency    string           `json:"payment_consistency,omitempty"`
}

// ObligationAnalysis is the debt obligation output consumed by the DTI
// calculator and the risk conversion layer.
type ObligationAnalysis struct {
	TotalEMITransactions  int               `json:"total_emi_transactions"`
	DetectedEMIs          []EMITransaction  `json:"detected_emis"`
	RecurringEMIs         []RecurringEMI    `json:"recurring_emis"`
	TotalMonthlyEMI       float64           `json:"total_monthly_emi_obligation"`
	CCPayments            []EMITransaction  `json:"credit_card_payments"`
	AverageMonthlyCCPay   float64           `json:"average_monthly_cc_payment"`
	CCAnalysis            CCPaymentAnalysis `json:"credit_card_payment_analysis"`
	TotalMonthlyObligations float64         `json:"total_monthly_obligations"`
}

// AnalyzeObligations classifies debit transactions into credit-card
// payments and EMIs, groups recurring installments, and totals the monthly
// obligation for DTI. Credit-card keywords are checked first so a card
// payment to a bank is never also counted as that bank's loan EMI.
func (a *Analyzer) AnalyzeObligations(txns []domain.Transaction) ObligationAnalysis {
	var emis []EMITransaction
	var ccPayments []EMITransaction

	for _, txn := range txns {
		if txn.Type != domain.TransactionDebit || txn.DebitAmount <= 0 {
			continue
		}
		entry := EMITransaction{
			Date:          txn.Date,
			Amount:        txn.DebitAmount,
			Description:   txn.Description,
			TransactionID: txn.TransactionID,
		}

		if a.rules.IsCreditCardPayment(txn.Description) {
			ccPayments = append(ccPayments, entry)
			continue
		}
		if a.rules.IsEMI(txn.Description) || a.rules.IsLender(txn.Description) {
			entry.LenderName = a.rules.ExtractLender(txn.Description)
			emis = append(emis, entry)
		}
	}

	uniqueEMIs := dedupEMIs(emis)
	recurring := a.groupRecurringEMIs(uniqueEMIs)

	totalMonthlyEMI := 0.0
	for _, r := range recurring {
		// Per-occurrence amount, not multiplied by occurrence count.
		totalMonthlyEMI += r.EMIAmount
	}

	avgCC := 0.0
	if len(ccPayments) > 0 {
		amounts := make([]float64, len(ccPayments))
		for i, cc := range ccPayments {
			amounts[i] = cc.Amount
		}
		avgCC = mean(amounts)
	}

	out := ObligationAnalysis{
		TotalEMITransactions:    len(uniqueEMIs),
		DetectedEMIs:            uniqueEMIs,
		RecurringEMIs:           recurring,
		TotalMonthlyEMI:         round2(totalMonthlyEMI),
		CCPayments:              ccPayments,
		AverageMonthlyCCPay:     round2(avgCC),
		CCAnalysis:              a.analyzeCCPayments(ccPayments),
		TotalMonthlyObligations: round2(totalMonthlyEMI + avgCC),
	}

	a.logger.Debug("Obligation analysis complete",
		zap.Int("unique_emis", len(uniqueEMIs)),
		zap.Int("recurring_groups", len(recurring)),
		zap.Float64("total_monthly_obligations", out.TotalMonthlyObligations),
	)
	return out
}

// dedupEMIs removes repeated installment rows: by transaction_id when
// present, otherwise by (date, rounded amount, normalized description).
func dedupEMIs(emis []EMITransaction) []EMITransaction {
	type key struct {
		date   string
		amount int
		desc   string
	}
	seenIDs := map[string]struct{}{}
	seenKeys := map[key]struct{}{}
	out := make([]EMITransaction, 0, len(emis))

	for _, emi := range emis {
		if emi.TransactionID != "" {
			if _, ok := seenIDs[emi.TransactionID]; ok {
				continue
			}
			seenIDs[emi.TransactionID] = struct{}{}
			out = append(out, emi)
			continue
		}
		k := key{
			date:   emi.Date.Format("2006-01-02"),
			amount: int(math.Round(emi.Amount)),
			desc:   strings.Join(strings.Fields(strings.ToUpper(emi.Description)), " "),
		}
		if _, ok := seenKeys[k]; ok {
			continue
		}
		seenKeys[k] = struct{}{}
		out = append(out, emi)
	}
	return out
}

// groupRecurringEMIs buckets installments by (lender, amount rounded to the
// nearest unit) and accepts a bucket as recurring only when it holds at
// least two occurrences with identical amounts.
func (a *Analyzer) groupRecurringEMIs(emis []EMITransaction) []RecurringEMI {
	groups := map[string][]EMITransaction{}
	var order []string
	for _, emi := range emis {
		key := fmt.Sprintf("%s_%d", emi.LenderName, int(math.Round(emi.Amount)))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], emi)
	}

	var recurring []RecurringEMI
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		identical := true
		for _, emi := range group[1:] {
			if emi.Amount != group[0].Amount {
				identical = false
				break
			}
		}
		if !identical {
			continue
		}

		dayCounts := map[int]int{}
		var dates []time.Time
		var bounces []EMIBounce
		for _, emi := range group {
			if !emi.Date.IsZero() {
				dayCounts[emi.Date.Day()]++
				dates = append(dates, emi.Date)
			}
			if a.rules.IsBounce(emi.Description) {
				bounces = append(bounces, EMIBounce{
					Date:        emi.Date,
					Description: emi.Description,
					Reason:      "NACH return or insufficient funds",
				})
			}
		}

		paymentDay, best := 0, 0
		for day, count := range dayCounts {
			if count > best || (count == best && day < paymentDay) {
				paymentDay, best = day, count
			}
		}

		recurring = append(recurring, RecurringEMI{
			LenderName:  group[0].LenderName,
			EMIAmount:   group[0].Amount,
			Occurrences: len(group),
			Dates:       dates,
			PaymentDay:  paymentDay,
			Bounces:     bounces,
			BounceCount: len(bounces),
		})
	}
	return recurring
}

// analyzeCCPayments classifies the repayment pattern from the spread of
// payment amounts. Low variation suggests full statement payment; a very
// small minimum relative to the average overrides to MINIMUM_ONLY.
func (a *Analyzer) analyzeCCPayments(payments []EMITransaction) CCPaymentAnalysis {
	out := CCPaymentAnalysis{TotalPayments: len(payments)}
	if len(payments) == 0 {
		return out
	}

	amounts := make([]float64, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	avg := mean(amounts)
	out.AverageMonthlyPayment = round2(avg)

	if len(amounts) < 2 {
		return out
	}

	cv := 0.0
	if avg > 0 {
		cv = stddev(amounts) / avg * 100
	}
	switch {
	case cv < a.cfg.CCFullPaymentCVPct:
		out.PaymentPattern = CCPatternFullPayment
		out.PaymentConsistency = "HIGH"
	case cv > a.cfg.CCVariableCVPct:
		out.PaymentPattern = CCPatternVariable
		out.PaymentConsistency = "LOW"
	default:
		out.PaymentPattern = CCPatternMixed
		out.PaymentConsistency = "MEDIUM"
	}

	minPayment := amounts[0]
	for _, amt := range amounts[1:] {
		if amt < minPayment {
			minPayment = amt
		}
	}
	if minPayment < avg*a.cfg.CCMinimumPaymentPct/100 {
		out.PaymentPattern = CCPatternMinimumOnly
	}
	return out
}
