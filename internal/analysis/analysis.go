// Package analysis turns a property description into per-unit rents and a
// financial summary.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/multifamily-cli/internal/finance"
	"github.com/sells-group/multifamily-cli/internal/rent"
	"github.com/sells-group/multifamily-cli/internal/schedule"
	"github.com/sells-group/multifamily-cli/internal/unitmix"
)

const projectionYears = 5

// Result is the outcome of one analysis. Summary is nil when Error is set.
type Result struct {
	ID           string           `json:"id"`
	Edition      schedule.Edition `json:"edition"`
	PostalCode   string           `json:"zip"`
	Neighborhood string           `json:"neighborhood"`
	Mix          []unitmix.Count  `json:"mix,omitempty"`
	Units        []UnitResult     `json:"units"`
	Summary      *Summary         `json:"summary,omitempty"`
	Error        string           `json:"error,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// OK reports whether the financial summary is usable.
func (r *Result) OK() bool {
	return r != nil && r.Error == "" && r.Summary != nil
}

// UnitResult is one unit with either its resolved rent or the reason it
// could not be resolved.
type UnitResult struct {
	Number      int                   `json:"unit_number"`
	Descriptor  string                `json:"bedrooms"`
	Class       schedule.BedroomClass `json:"bedroom_class,omitempty"`
	Rent        int                   `json:"rent,omitempty"`
	Group       schedule.RentGroup    `json:"group,omitempty"`
	GroupLabel  string                `json:"group_label,omitempty"`
	Failure     string                `json:"error,omitempty"`
	FailureKind rent.Kind             `json:"error_kind,omitempty"`
}

// Valid reports whether the unit resolved to a rent.
func (u UnitResult) Valid() bool { return u.Failure == "" }

// Summary holds the property-level financials.
type Summary struct {
	TotalUnits int `json:"total_units"`
	ValidUnits int `json:"valid_units"`

	MonthlyGrossRent float64 `json:"monthly_gross_rent"`

	DownPayment              float64 `json:"down_payment"`
	LoanAmount               float64 `json:"loan_amount"`
	MonthlyPrincipalInterest float64 `json:"monthly_principal_interest"`
	MonthlyTax               float64 `json:"monthly_tax"`
	MonthlyInsurance         float64 `json:"monthly_insurance"`
	MonthlyPITI              float64 `json:"monthly_piti"`

	AnnualGrossRent        float64 `json:"annual_gross_rent"`
	VacancyLoss            float64 `json:"vacancy_loss"`
	EffectiveGrossIncome   float64 `json:"effective_gross_income"`
	AnnualTax              float64 `json:"annual_tax"`
	AnnualInsurance        float64 `json:"annual_insurance"`
	Maintenance            float64 `json:"maintenance"`
	Management             float64 `json:"management"`
	OtherExpenses          float64 `json:"other_expenses"`
	TotalOperatingExpenses float64 `json:"total_operating_expenses"`
	NOI                    float64 `json:"noi"`

	AnnualDebtService float64 `json:"annual_debt_service"`
	AnnualCashFlow    float64 `json:"annual_cash_flow"`
	MonthlyCashFlow   float64 `json:"monthly_cash_flow"`
	// BasicMonthlyCashFlow is rent minus PITI, before vacancy and expenses.
	BasicMonthlyCashFlow float64 `json:"basic_monthly_cash_flow"`

	CashOnCash          finance.Ratio `json:"cash_on_cash_pct"`
	CapRate             finance.Ratio `json:"cap_rate_pct"`
	GrossRentMultiplier finance.Ratio `json:"gross_rent_multiplier"`
	RentToPITI          finance.Ratio `json:"rent_to_piti"`

	FiveYearGrossRent float64 `json:"five_year_gross_rent"`
	FiveYearNOI       float64 `json:"five_year_noi"`
}

// Options configures an Analyzer.
type Options struct {
	UnitMix unitmix.Options
	// DefaultEdition is used when Params.Edition is empty. Empty means the
	// repository's earliest edition.
	DefaultEdition schedule.Edition
}

// Analyzer runs property analyses against one schedule repository. It holds
// no mutable state and is safe for concurrent use.
type Analyzer struct {
	repo     *schedule.Repository
	resolver *rent.Resolver
	opts     Options
}

// New creates an Analyzer.
func New(repo *schedule.Repository, opts Options) *Analyzer {
	return &Analyzer{
		repo:     repo,
		resolver: rent.NewResolver(repo),
		opts:     opts,
	}
}

// Edition returns the edition an analysis of p would use.
func (a *Analyzer) Edition(p Params) schedule.Edition {
	if e := p.normalized().Edition; e != "" {
		return e
	}
	if a.opts.DefaultEdition != "" {
		return a.opts.DefaultEdition
	}
	return a.repo.DefaultEdition()
}

// Analyze runs one analysis. Input errors are returned as *ValidationError
// before any work is done; every other problem is reported on the Result.
func (a *Analyzer) Analyze(ctx context.Context, p Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: canceled")
	}
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	edition := a.Edition(p)
	if _, err := a.repo.Schedule(edition); err != nil {
		return nil, &ValidationError{Field: "edition", Reason: fmt.Sprintf("%q is not a known edition", edition)}
	}

	res := &Result{
		ID:           uuid.NewString(),
		Edition:      edition,
		PostalCode:   p.PostalCode,
		Neighborhood: a.repo.NeighborhoodLabel(p.PostalCode),
		Units:        []UnitResult{},
	}
	log := zap.L().With(zap.String("analysis_id", res.ID), zap.String("zip", p.PostalCode), zap.String("edition", string(edition)))

	parsed, err := unitmix.Parse(p.UnitMix, a.opts.UnitMix)
	if parsed != nil {
		res.Warnings = append(res.Warnings, parsed.Warnings...)
	}
	if err != nil {
		res.Error = err.Error()
		log.Warn("analysis: unit mix rejected", zap.Error(err), zap.Strings("warnings", res.Warnings))
		return res, nil
	}
	res.Mix = parsed.Counts()

	if _, err := a.repo.ResolveGroup(p.PostalCode, edition); errors.Is(err, schedule.ErrZIPNotFound) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("ZIP code %s not found in the %s payment standards; no unit can be priced", p.PostalCode, edition))
	}

	var monthlyRent float64
	valid := 0
	for _, u := range parsed.Units {
		ur := UnitResult{Number: u.Number, Descriptor: u.Descriptor, Class: u.Class}
		r, err := a.resolver.Resolve(p.PostalCode, u.Descriptor, edition)
		if err != nil {
			ur.Failure = err.Error()
			ur.FailureKind = rent.KindOf(err)
		} else {
			ur.Class = r.Class
			ur.Rent = r.Ceiling
			ur.Group = r.Group
			ur.GroupLabel = r.GroupLabel
			monthlyRent += float64(r.Ceiling)
			valid++
		}
		res.Units = append(res.Units, ur)
	}

	if valid == 0 {
		res.Error = fmt.Sprintf("no valid units: rent could not be resolved for any of the %d units", len(res.Units))
		log.Warn("analysis: no valid units", zap.Int("units", len(res.Units)))
		return res, nil
	}
	if failed := len(res.Units) - valid; failed > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d of %d units could not be resolved and are excluded from the financials", failed, len(res.Units)))
	}

	res.Summary = summarize(p, monthlyRent, valid, len(res.Units))

	log.Info("analysis: complete",
		zap.Int("units", len(res.Units)),
		zap.Int("valid_units", valid),
		zap.Float64("noi", res.Summary.NOI),
		zap.Stringer("cap_rate", res.Summary.CapRate),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

// summarize computes the financial section from validated inputs and the
// total resolved monthly rent.
func summarize(p Params, monthlyRent float64, valid, total int) *Summary {
	s := &Summary{
		TotalUnits:       total,
		ValidUnits:       valid,
		MonthlyGrossRent: monthlyRent,
		AnnualTax:        p.AnnualTax,
		AnnualInsurance:  p.AnnualInsurance,
		OtherExpenses:    p.OtherExpenses,
	}

	s.DownPayment, s.LoanAmount = finance.Loan(p.Price, p.DownPaymentPct)
	s.MonthlyPrincipalInterest = finance.MonthlyPayment(s.LoanAmount, p.InterestRatePct, p.TermYears)
	s.MonthlyTax = p.AnnualTax / 12
	s.MonthlyInsurance = p.AnnualInsurance / 12
	s.MonthlyPITI = s.MonthlyPrincipalInterest + s.MonthlyTax + s.MonthlyInsurance

	s.AnnualGrossRent = monthlyRent * 12
	s.VacancyLoss = finance.Percent(s.AnnualGrossRent, p.VacancyPct)
	s.EffectiveGrossIncome = s.AnnualGrossRent - s.VacancyLoss

	s.Maintenance = finance.Percent(s.AnnualGrossRent, p.MaintenancePct)
	s.Management = finance.Percent(s.AnnualGrossRent, p.ManagementPct)
	s.TotalOperatingExpenses = s.AnnualTax + s.AnnualInsurance + s.Maintenance + s.Management + s.OtherExpenses
	s.NOI = s.EffectiveGrossIncome - s.TotalOperatingExpenses

	s.AnnualDebtService = s.MonthlyPrincipalInterest * 12
	s.AnnualCashFlow = s.NOI - s.AnnualDebtService
	s.MonthlyCashFlow = s.AnnualCashFlow / 12
	s.BasicMonthlyCashFlow = monthlyRent - s.MonthlyPITI

	s.CashOnCash = finance.SignedRatio(s.AnnualCashFlow, s.DownPayment, 100)
	s.CapRate = finance.SignedRatio(s.NOI, p.Price, 100)
	s.GrossRentMultiplier = finance.SignedRatio(p.Price, s.AnnualGrossRent, 1)
	s.RentToPITI = finance.SignedRatio(monthlyRent, s.MonthlyPITI, 1)

	s.FiveYearGrossRent = s.AnnualGrossRent * projectionYears
	s.FiveYearNOI = s.NOI * projectionYears
	return s
}
