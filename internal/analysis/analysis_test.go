package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/multifamily-cli/internal/finance"
	"github.com/sells-group/multifamily-cli/internal/rent"
	"github.com/sells-group/multifamily-cli/internal/schedule"
	"github.com/sells-group/multifamily-cli/internal/unitmix"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	repo, err := schedule.Default()
	require.NoError(t, err)
	return New(repo, Options{})
}

func baseParams() Params {
	return Params{
		PostalCode:      "19120",
		UnitMix:         "1x1BR",
		Price:           100000,
		DownPaymentPct:  100,
		InterestRatePct: 7,
		TermYears:       30,
		Edition:         "2024",
	}
}

func TestAnalyze_AllCashEndToEnd(t *testing.T) {
	res, err := newAnalyzer(t).Analyze(context.Background(), baseParams())
	require.NoError(t, err)
	require.True(t, res.OK())

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.Equal(t, schedule.Edition("2024"), res.Edition)
	assert.Equal(t, "Olney / Logan / Feltonville", res.Neighborhood)
	assert.Empty(t, res.Warnings)

	require.Len(t, res.Units, 1)
	u := res.Units[0]
	assert.True(t, u.Valid())
	assert.Equal(t, 1240, u.Rent)
	assert.Equal(t, schedule.RentGroup(1), u.Group)
	assert.Equal(t, "Traditional Rents", u.GroupLabel)

	s := res.Summary
	assert.Equal(t, 1, s.ValidUnits)
	assert.Equal(t, 100000.0, s.DownPayment)
	assert.Equal(t, 0.0, s.LoanAmount)
	assert.Equal(t, 0.0, s.MonthlyPrincipalInterest)
	assert.Equal(t, 14880.0, s.AnnualGrossRent)
	assert.Equal(t, 14880.0, s.NOI)
	assert.Equal(t, 14880.0, s.AnnualCashFlow)
	assert.Equal(t, 1240.0, s.MonthlyCashFlow)
	assert.Equal(t, finance.Finite, s.CashOnCash.Kind)
	assert.InDelta(t, 14.88, s.CashOnCash.Value, 1e-9)
	assert.InDelta(t, 14.88, s.CapRate.Value, 1e-9)
	assert.InDelta(t, 6.72, s.GrossRentMultiplier.Value, 0.005)
	assert.Equal(t, "6.72", s.GrossRentMultiplier.Display())
	assert.Equal(t, finance.PositiveInfinite, s.RentToPITI.Kind)
	assert.Equal(t, 14880.0*5, s.FiveYearGrossRent)
	assert.Equal(t, 14880.0*5, s.FiveYearNOI)
}

func TestAnalyze_OperatingExpenses(t *testing.T) {
	p := baseParams()
	p.VacancyPct = 5
	p.MaintenancePct = 5
	p.ManagementPct = 8
	p.AnnualTax = 1200
	p.AnnualInsurance = 600
	p.OtherExpenses = 300
	p.DownPaymentPct = 25

	res, err := newAnalyzer(t).Analyze(context.Background(), p)
	require.NoError(t, err)
	s := res.Summary
	require.NotNil(t, s)

	assert.InDelta(t, 744, s.VacancyLoss, 1e-9)
	assert.InDelta(t, 14136, s.EffectiveGrossIncome, 1e-9)
	assert.InDelta(t, 744, s.Maintenance, 1e-9)
	assert.InDelta(t, 1190.4, s.Management, 1e-9)
	assert.InDelta(t, 4034.4, s.TotalOperatingExpenses, 1e-9)
	assert.InDelta(t, 10101.6, s.NOI, 1e-9)

	assert.InDelta(t, 25000, s.DownPayment, 1e-9)
	assert.InDelta(t, 75000, s.LoanAmount, 1e-9)
	wantPI := finance.MonthlyPayment(75000, 7, 30)
	assert.InDelta(t, wantPI, s.MonthlyPrincipalInterest, 1e-9)
	assert.InDelta(t, 100, s.MonthlyTax, 1e-9)
	assert.InDelta(t, 50, s.MonthlyInsurance, 1e-9)
	assert.InDelta(t, wantPI+150, s.MonthlyPITI, 1e-9)
	assert.InDelta(t, wantPI*12, s.AnnualDebtService, 1e-9)
	assert.InDelta(t, 10101.6-wantPI*12, s.AnnualCashFlow, 1e-9)
	assert.InDelta(t, 1240-(wantPI+150), s.BasicMonthlyCashFlow, 1e-9)
	assert.InDelta(t, (10101.6-wantPI*12)/25000*100, s.CashOnCash.Value, 1e-9)
	assert.InDelta(t, 10.1016, s.CapRate.Value, 1e-9)
	assert.InDelta(t, 1240/(wantPI+150), s.RentToPITI.Value, 1e-9)
}

func TestAnalyze_InfiniteSentinels(t *testing.T) {
	a := newAnalyzer(t)

	t.Run("zero down with positive cash flow", func(t *testing.T) {
		p := baseParams()
		p.DownPaymentPct = 0
		p.InterestRatePct = 0
		res, err := a.Analyze(context.Background(), p)
		require.NoError(t, err)
		require.NotNil(t, res.Summary)
		assert.Greater(t, res.Summary.AnnualCashFlow, 0.0)
		assert.Equal(t, finance.PositiveInfinite, res.Summary.CashOnCash.Kind)
		assert.Equal(t, "∞", res.Summary.CashOnCash.Display())
	})

	t.Run("zero down with negative cash flow", func(t *testing.T) {
		p := baseParams()
		p.Price = 1000000
		p.DownPaymentPct = 0
		res, err := a.Analyze(context.Background(), p)
		require.NoError(t, err)
		require.NotNil(t, res.Summary)
		assert.Less(t, res.Summary.AnnualCashFlow, 0.0)
		assert.Equal(t, finance.NegativeInfinite, res.Summary.CashOnCash.Kind)
	})

	t.Run("zero price with positive noi", func(t *testing.T) {
		p := baseParams()
		p.Price = 0
		res, err := a.Analyze(context.Background(), p)
		require.NoError(t, err)
		require.NotNil(t, res.Summary)
		assert.Equal(t, finance.PositiveInfinite, res.Summary.CapRate.Kind)
		assert.Equal(t, finance.FiniteRatio(0), res.Summary.GrossRentMultiplier)
		assert.False(t, math.IsNaN(res.Summary.CapRate.Value))
	})

	t.Run("zero price and zero noi", func(t *testing.T) {
		p := baseParams()
		p.Price = 0
		p.OtherExpenses = 14880
		res, err := a.Analyze(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, finance.ZeroByConvention, res.Summary.CapRate.Kind)
		assert.Equal(t, finance.ZeroByConvention, res.Summary.CashOnCash.Kind)
	})
}

func TestAnalyze_MalformedTokenIsWarning(t *testing.T) {
	p := baseParams()
	p.UnitMix = "1x1BR, lots of studios"
	res, err := newAnalyzer(t).Analyze(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Units, 1)
	assert.True(t, res.Units[0].Valid())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "lots of studios")
}

func TestAnalyze_PartialUnitFailure(t *testing.T) {
	p := baseParams()
	p.UnitMix = "1x1BR, 2xPENTHOUSE"
	res, err := newAnalyzer(t).Analyze(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.OK())

	require.Len(t, res.Units, 3)
	assert.True(t, res.Units[0].Valid())
	for _, u := range res.Units[1:] {
		assert.False(t, u.Valid())
		assert.Equal(t, rent.KindInvalidBedroom, u.FailureKind)
		assert.Zero(t, u.Rent)
		assert.Zero(t, u.Group)
	}
	assert.Equal(t, 1, res.Summary.ValidUnits)
	assert.Equal(t, 3, res.Summary.TotalUnits)
	assert.Equal(t, []string{"2 of 3 units could not be resolved and are excluded from the financials"}, res.Warnings)
	assert.Equal(t, []unitmix.Count{
		{Descriptor: "1BR", Class: schedule.BR1, Units: 1},
		{Descriptor: "PENTHOUSE", Units: 2},
	}, res.Mix)
}

func TestAnalyze_UnknownZIPIsFatalOnce(t *testing.T) {
	p := baseParams()
	p.PostalCode = "10001"
	p.UnitMix = "2x1BR, 1x2BR"
	res, err := newAnalyzer(t).Analyze(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Nil(t, res.Summary)
	assert.Contains(t, res.Error, "no valid units")
	assert.Equal(t, "Area Not Specified", res.Neighborhood)
	require.Len(t, res.Units, 3)
	for _, u := range res.Units {
		assert.Equal(t, rent.KindZIPNotFound, u.FailureKind)
	}

	zipWarnings := 0
	for _, w := range res.Warnings {
		if strings.Contains(w, "ZIP code 10001 not found") {
			zipWarnings++
		}
	}
	assert.Equal(t, 1, zipWarnings)
}

func TestAnalyze_FatalUnitMix(t *testing.T) {
	a := newAnalyzer(t)

	p := baseParams()
	p.UnitMix = "   "
	res, err := a.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, unitmix.ErrEmpty.Error(), res.Error)
	assert.Nil(t, res.Summary)
	assert.Empty(t, res.Units)

	p.UnitMix = "studio, 1BR"
	res, err = a.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, unitmix.ErrNoUnits.Error(), res.Error)
	assert.Nil(t, res.Summary)
	assert.Len(t, res.Warnings, 2)
}

func TestAnalyze_ValidationErrors(t *testing.T) {
	a := newAnalyzer(t)

	tests := []struct {
		name  string
		mod   func(*Params)
		field string
	}{
		{"down above 100", func(p *Params) { p.DownPaymentPct = 100.5 }, "down_payment_pct"},
		{"down negative", func(p *Params) { p.DownPaymentPct = -1 }, "down_payment_pct"},
		{"down nan", func(p *Params) { p.DownPaymentPct = math.NaN() }, "down_payment_pct"},
		{"negative price", func(p *Params) { p.Price = -1 }, "price"},
		{"infinite tax", func(p *Params) { p.AnnualTax = math.Inf(1) }, "annual_tax"},
		{"negative rate", func(p *Params) { p.InterestRatePct = -0.5 }, "interest_rate_pct"},
		{"vacancy over 100", func(p *Params) { p.VacancyPct = 101 }, "vacancy_pct"},
		{"negative term", func(p *Params) { p.TermYears = -30 }, "term_years"},
		{"unknown edition", func(p *Params) { p.Edition = "1999" }, "edition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mod(&p)
			res, err := a.Analyze(context.Background(), p)
			assert.Nil(t, res)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAnalyzer(t).Analyze(ctx, baseParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestAnalyze_DefaultEdition(t *testing.T) {
	repo, err := schedule.Default()
	require.NoError(t, err)

	p := baseParams()
	p.Edition = ""

	res, err := New(repo, Options{}).Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, schedule.Edition("2024"), res.Edition)
	assert.Equal(t, 1240, res.Units[0].Rent)

	res, err = New(repo, Options{DefaultEdition: "2025"}).Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, schedule.Edition("2025"), res.Edition)
	assert.Equal(t, 1390, res.Units[0].Rent)
	assert.Equal(t, schedule.RentGroup(2), res.Units[0].Group)
}

func TestAnalyze_EditionsAreIndependent(t *testing.T) {
	a, err := schedule.NewSchedule("A", "", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		[]schedule.Group{{ID: 1, Label: "Low", Ceilings: map[schedule.BedroomClass]int{schedule.BR1: 1000}}},
		map[string]schedule.RentGroup{"19120": 1})
	require.NoError(t, err)
	b, err := schedule.NewSchedule("B", "", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		[]schedule.Group{{ID: 1, Label: "High", Ceilings: map[schedule.BedroomClass]int{schedule.BR1: 2000}}},
		map[string]schedule.RentGroup{"19103": 1})
	require.NoError(t, err)
	repo, err := schedule.NewRepository(nil, a, b)
	require.NoError(t, err)
	an := New(repo, Options{})

	p := baseParams()
	p.PostalCode = "19103"
	p.Edition = "A"
	res, err := an.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, rent.KindZIPNotFound, res.Units[0].FailureKind)

	p.Edition = "B"
	res, err = an.Analyze(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, 2000, res.Units[0].Rent)
	assert.Equal(t, 24000.0, res.Summary.AnnualGrossRent)
}

func TestResult_JSON(t *testing.T) {
	p := baseParams()
	p.DownPaymentPct = 0
	p.InterestRatePct = 0
	res, err := newAnalyzer(t).Analyze(context.Background(), p)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res.ID, back.ID)
	assert.Equal(t, finance.PositiveInfinite, back.Summary.CashOnCash.Kind)
	assert.Equal(t, res.Units, back.Units)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	summary := raw["summary"].(map[string]any)
	assert.Equal(t, "+inf", summary["cash_on_cash_pct"])
}
