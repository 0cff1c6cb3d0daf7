package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

// Params bundles every input of one property analysis.
type Params struct {
	PostalCode      string           `json:"zip" mapstructure:"zip"`
	UnitMix         string           `json:"units" mapstructure:"units"`
	Price           float64          `json:"price" mapstructure:"price"`
	DownPaymentPct  float64          `json:"down_payment_pct" mapstructure:"down_payment_pct"`
	InterestRatePct float64          `json:"interest_rate_pct" mapstructure:"interest_rate_pct"`
	TermYears       int              `json:"term_years" mapstructure:"term_years"`
	AnnualTax       float64          `json:"annual_tax" mapstructure:"annual_tax"`
	AnnualInsurance float64          `json:"annual_insurance" mapstructure:"annual_insurance"`
	VacancyPct      float64          `json:"vacancy_pct" mapstructure:"vacancy_pct"`
	MaintenancePct  float64          `json:"maintenance_pct" mapstructure:"maintenance_pct"`
	ManagementPct   float64          `json:"management_pct" mapstructure:"management_pct"`
	OtherExpenses   float64          `json:"other_expenses" mapstructure:"other_expenses"`
	Edition         schedule.Edition `json:"edition,omitempty" mapstructure:"edition"`
}

// ValidationError is an input problem found before any computation starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks ranges that do not depend on the rent tables.
func (p Params) Validate() error {
	if p.DownPaymentPct < 0 || p.DownPaymentPct > 100 || math.IsNaN(p.DownPaymentPct) {
		return &ValidationError{Field: "down_payment_pct", Reason: fmt.Sprintf("%g is outside 0-100", p.DownPaymentPct)}
	}

	money := []struct {
		field string
		value float64
	}{
		{"price", p.Price},
		{"annual_tax", p.AnnualTax},
		{"annual_insurance", p.AnnualInsurance},
		{"other_expenses", p.OtherExpenses},
		{"interest_rate_pct", p.InterestRatePct},
	}
	for _, m := range money {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return &ValidationError{Field: m.field, Reason: "must be a finite number"}
		}
		if m.value < 0 {
			return &ValidationError{Field: m.field, Reason: fmt.Sprintf("%g is negative", m.value)}
		}
	}

	pcts := []struct {
		field string
		value float64
	}{
		{"vacancy_pct", p.VacancyPct},
		{"maintenance_pct", p.MaintenancePct},
		{"management_pct", p.ManagementPct},
	}
	for _, pct := range pcts {
		if math.IsNaN(pct.value) || pct.value < 0 || pct.value > 100 {
			return &ValidationError{Field: pct.field, Reason: fmt.Sprintf("%g is outside 0-100", pct.value)}
		}
	}

	if p.TermYears < 0 {
		return &ValidationError{Field: "term_years", Reason: fmt.Sprintf("%d is negative", p.TermYears)}
	}
	return nil
}

func (p Params) normalized() Params {
	p.PostalCode = strings.TrimSpace(p.PostalCode)
	p.Edition = schedule.Edition(strings.TrimSpace(string(p.Edition)))
	return p
}
