package analytics

import (
	"math"

	"go.uber.org/zap"
)

// DTIStatus bands the debt-to-income ratio.
type DTIStatus string

const (
	DTIHighRisk   DTIStatus = "HIGH_RISK"
	DTIMediumRisk DTIStatus = "MEDIUM_RISK"
	DTILowRisk    DTIStatus = "LOW_RISK"
)

// DTITrend compares DTI between the first and second halves of the salary
// history, holding obligations fixed.
type DTITrend struct {
	FirstHalfDTI     float64 `json:"first_half_dti"`
	SecondHalfDTI    float64 `json:"second_half_dti"`
	DTIChange        float64 `json:"dti_change"`
	IsIncreasing     bool    `json:"is_increasing"`
	Trend            string  `json:"trend"` // INCREASING, STABLE, DECREASING
	FirstHalfIncome  float64 `json:"first_half_income"`
	SecondHalfIncome float64 `json:"second_half_income"`
}

// DTIAnalysis is the debt-to-income output.
type DTIAnalysis struct {
	ActualDTI          float64   `json:"actual_dti"`
	NetIncome          float64   `json:"actual_net_income"`
	MonthlyObligations float64   `json:"actual_monthly_obligations"`
	Trend              *DTITrend `json:"dti_trend,omitempty"`
	Flags              []string  `json:"flags"`
	Status             DTIStatus `json:"dti_status"`
}

// CalculateDTI computes obligations / income x 100 from the income and
// obligation outputs. Zero or absent income yields a zero ratio rather
// than an error.
func (a *Analyzer) CalculateDTI(income IncomeAnalysis, obligations ObligationAnalysis) DTIAnalysis {
	netIncome := income.AverageMonthlySalary
	monthlyObligations := obligations.TotalMonthlyObligations

	actualDTI := 0.0
	if netIncome > 0 {
		actualDTI = monthlyObligations / netIncome * 100
	}

	out := DTIAnalysis{
		ActualDTI:          round2(actualDTI),
		NetIncome:          round2(netIncome),
		MonthlyObligations: round2(monthlyObligations),
		Flags:              []string{},
	}

	switch {
	case actualDTI > a.cfg.DTIHighRiskPct:
		out.Status = DTIHighRisk
		out.Flags = append(out.Flags, "HIGH_DTI")
	case actualDTI > a.cfg.DTIMediumRiskPct:
		out.Status = DTIMediumRisk
	default:
		out.Status = DTILowRisk
	}

	// Trend needs enough salary points to split into meaningful halves.
	if len(income.SalaryAmounts) >= 4 && netIncome > 0 {
		half := len(income.SalaryAmounts) / 2
		firstAvg := mean(income.SalaryAmounts[:half])
		secondAvg := mean(income.SalaryAmounts[half:])

		firstDTI, secondDTI := 0.0, 0.0
		if firstAvg > 0 {
			firstDTI = monthlyObligations / firstAvg * 100
		}
		if secondAvg > 0 {
			secondDTI = monthlyObligations / secondAvg * 100
		}
		change := secondDTI - firstDTI

		trend := &DTITrend{
			FirstHalfDTI:     round2(firstDTI),
			SecondHalfDTI:    round2(secondDTI),
			DTIChange:        round2(change),
			IsIncreasing:     change > a.cfg.DTITrendChangePts,
			FirstHalfIncome:  round2(firstAvg),
			SecondHalfIncome: round2(secondAvg),
		}
		switch {
		case trend.IsIncreasing:
			trend.Trend = "INCREASING"
		case math.Abs(change) <= a.cfg.DTITrendChangePts:
			trend.Trend = "STABLE"
		default:
			trend.Trend = "DECREASING"
		}
		out.Trend = trend

		if trend.IsIncreasing {
			a.logger.Warn("DTI trend increasing",
				zap.Float64("first_half_dti", trend.FirstHalfDTI),
				zap.Float64("second_half_dti", trend.SecondHalfDTI),
			)
		}
	}

	if out.Status == DTIHighRisk {
		a.logger.Warn("High DTI detected",
			zap.Float64("dti", out.ActualDTI),
			zap.Float64("obligations", monthlyObligations),
			zap.Float64("income", netIncome),
		)
	}
	return out
}
