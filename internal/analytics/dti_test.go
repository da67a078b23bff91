package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDTIBands(t *testing.T) {
	a := newTestAnalyzer(t)

	tests := []struct {
		name        string
		income      float64
		obligations float64
		wantDTI     float64
		wantStatus  DTIStatus
	}{
		{"low risk", 50000, 10000, 20.0, DTILowRisk},
		{"medium risk", 50000, 20000, 40.0, DTIMediumRisk},
		{"high risk", 50000, 30000, 60.0, DTIHighRisk},
		{"no income", 0, 10000, 0.0, DTILowRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			income := IncomeAnalysis{AverageMonthlySalary: tt.income}
			obligations := ObligationAnalysis{TotalMonthlyObligations: tt.obligations}

			dti := a.CalculateDTI(income, obligations)
			assert.Equal(t, tt.wantDTI, dti.ActualDTI)
			assert.Equal(t, tt.wantStatus, dti.Status)
		})
	}
}

func TestCalculateDTIHighRiskFlag(t *testing.T) {
	a := newTestAnalyzer(t)

	dti := a.CalculateDTI(
		IncomeAnalysis{AverageMonthlySalary: 40000},
		ObligationAnalysis{TotalMonthlyObligations: 25000},
	)
	assert.Equal(t, DTIHighRisk, dti.Status)
	assert.Contains(t, dti.Flags, "HIGH_DTI")
}

func TestCalculateDTITrendIncreasing(t *testing.T) {
	a := newTestAnalyzer(t)

	// Income dropped in the second half, so DTI on fixed obligations rose.
	income := IncomeAnalysis{
		AverageMonthlySalary: 45000,
		SalaryAmounts:        []float64{50000, 50000, 40000, 40000},
	}
	obligations := ObligationAnalysis{TotalMonthlyObligations: 10000}

	dti := a.CalculateDTI(income, obligations)
	require.NotNil(t, dti.Trend)
	assert.Equal(t, 20.0, dti.Trend.FirstHalfDTI)
	assert.Equal(t, 25.0, dti.Trend.SecondHalfDTI)
	assert.Equal(t, 5.0, dti.Trend.DTIChange)
	assert.False(t, dti.Trend.IsIncreasing) // change must exceed the threshold
	assert.Equal(t, "STABLE", dti.Trend.Trend)

	income.SalaryAmounts = []float64{50000, 50000, 35000, 35000}
	dti = a.CalculateDTI(income, obligations)
	require.NotNil(t, dti.Trend)
	assert.True(t, dti.Trend.IsIncreasing)
	assert.Equal(t, "INCREASING", dti.Trend.Trend)
}

func TestCalculateDTITrendNeedsFourSalaries(t *testing.T) {
	a := newTestAnalyzer(t)

	income := IncomeAnalysis{
		AverageMonthlySalary: 50000,
		SalaryAmounts:        []float64{50000, 50000, 50000},
	}
	dti := a.CalculateDTI(income, ObligationAnalysis{TotalMonthlyObligations: 10000})
	assert.Nil(t, dti.Trend)
}
