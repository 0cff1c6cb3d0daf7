// Package report renders analysis results as text and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/multifamily-cli/internal/analysis"
	"github.com/sells-group/multifamily-cli/internal/finance"
)

const (
	title = "--- MULTIFAMILY ANALYSIS RESULTS ---"
	rule  = "--------------------------------------------------"

	labelWidth = 34
)

// Format renders a text report. Sections appear in a fixed order: header,
// errors and warnings, unit breakdown, financing, operating income and
// expenses, cash flow and returns, projections. A nil or incomplete result
// produces a diagnostic block instead of financial sections.
func Format(res *analysis.Result, params analysis.Params) string {
	w := newWriter()

	w.line(title)
	w.row(0, "Unit Mix", params.UnitMix)
	w.row(0, "ZIP Code", params.PostalCode)

	if res == nil {
		w.line(rule)
		w.line("DIAGNOSTIC: no analysis result was produced.")
		return w.String()
	}

	w.row(0, "Neighborhood", res.Neighborhood)
	w.row(0, "Rent Schedule", string(res.Edition))
	if res.ID != "" {
		w.row(0, "Analysis ID", res.ID)
	}

	if res.Error != "" || len(res.Warnings) > 0 {
		w.line(rule)
		if res.Error != "" {
			w.line("ERROR: %s", res.Error)
		}
		for _, warn := range res.Warnings {
			w.line("WARNING: %s", warn)
		}
	}

	if len(res.Units) > 0 {
		w.line(rule)
		writeUnits(w, res)
	}

	if res.Error != "" {
		return w.String()
	}
	s := res.Summary
	if s == nil {
		w.line(rule)
		w.line("DIAGNOSTIC: result is incomplete; the financial summary is missing.")
		return w.String()
	}

	w.line(rule)
	w.line("Financing:")
	w.row(1, "Purchase Price", w.money(params.Price))
	w.row(1, fmt.Sprintf("Down Payment (%s%%)", num(params.DownPaymentPct)), w.money(s.DownPayment))
	w.row(1, "Loan Amount", w.money(s.LoanAmount))
	w.row(1, "Loan Terms", fmt.Sprintf("%s%% for %d years", num(params.InterestRatePct), params.TermYears))
	w.row(1, "Monthly PITI", w.money(s.MonthlyPITI))
	w.row(2, "Principal & Interest", w.money(s.MonthlyPrincipalInterest))
	w.row(2, "Property Tax", w.money(s.MonthlyTax))
	w.row(2, "Insurance", w.money(s.MonthlyInsurance))
	w.row(1, "Basic Monthly Cash Flow", w.money(s.BasicMonthlyCashFlow)+" (rent minus PITI)")
	w.row(1, "Rent to PITI Multiple", multiple(s.RentToPITI))

	w.line(rule)
	w.line("Annual Operating Income & Expenses:")
	w.row(1, "Gross Potential Rent", w.money(s.AnnualGrossRent))
	w.row(1, fmt.Sprintf("Vacancy (%s%% of GPR)", num(params.VacancyPct)), "-"+w.money(s.VacancyLoss))
	w.row(1, "Effective Gross Income", w.money(s.EffectiveGrossIncome))
	w.row(1, "Operating Expenses", w.money(s.TotalOperatingExpenses))
	w.row(2, "Property Tax", w.money(s.AnnualTax))
	w.row(2, "Insurance", w.money(s.AnnualInsurance))
	w.row(2, fmt.Sprintf("Repairs & Maintenance (%s%%)", num(params.MaintenancePct)), w.money(s.Maintenance))
	w.row(2, fmt.Sprintf("Management (%s%%)", num(params.ManagementPct)), w.money(s.Management))
	w.row(2, "Other", w.money(s.OtherExpenses))
	w.row(1, "Net Operating Income", w.money(s.NOI))

	w.line(rule)
	w.line("Cash Flow & Returns:")
	w.row(1, "Annual Debt Service", w.money(s.AnnualDebtService))
	w.row(1, "Cash Flow Before Tax (annual)", w.money(s.AnnualCashFlow))
	w.row(1, "Cash Flow Before Tax (monthly)", w.money(s.MonthlyCashFlow))
	w.row(1, "Cash-on-Cash Return", percent(s.CashOnCash))
	w.row(1, "Cap Rate", percent(s.CapRate))
	w.row(1, "Gross Rent Multiplier", s.GrossRentMultiplier.Display())

	w.line(rule)
	w.line("Five-Year Projections (no growth assumed):")
	w.row(1, "Gross Potential Rent", w.money(s.FiveYearGrossRent))
	w.row(1, "Net Operating Income", w.money(s.FiveYearNOI))
	return w.String()
}

func writeUnits(w *writer, res *analysis.Result) {
	valid := 0
	var monthly float64
	w.line("Unit Breakdown (%d units):", len(res.Units))
	for _, u := range res.Units {
		if !u.Valid() {
			w.line("  Unit %d (%s): ERROR - %s", u.Number, u.Descriptor, u.Failure)
			continue
		}
		valid++
		monthly += float64(u.Rent)
		w.line("  Unit %d (%s): %s/mo, group %d (%s)", u.Number, u.Class.Label(), w.money(float64(u.Rent)), u.Group, u.GroupLabel)
	}
	if valid < len(res.Units) {
		w.line("  (%d of %d units priced)", valid, len(res.Units))
	}
	w.row(1, "Total Monthly Rent", w.money(monthly))
}

func percent(r finance.Ratio) string {
	if r.IsFinite() || r.Kind == finance.ZeroByConvention {
		return r.Display() + "%"
	}
	return r.Display()
}

func multiple(r finance.Ratio) string {
	if r.IsFinite() || r.Kind == finance.ZeroByConvention {
		return r.Display() + "x"
	}
	return r.Display()
}

// JSON renders res as indented JSON.
func JSON(res *analysis.Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal result")
	}
	return data, nil
}

type writer struct {
	b strings.Builder
	p *message.Printer
}

func newWriter() *writer {
	return &writer{p: message.NewPrinter(language.AmericanEnglish)}
}

func (w *writer) line(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// money formats v as $1,234.56, with a leading minus for losses. Amounts
// are rounded half away from zero to whole cents first.
func (w *writer) money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + w.p.Sprintf("%.2f", d.Neg().InexactFloat64())
	}
	return "$" + w.p.Sprintf("%.2f", d.InexactFloat64())
}

// row writes an aligned "label: value" line indented by depth levels.
func (w *writer) row(depth int, label, value string) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(&w.b, "%s%-*s %s\n", indent, labelWidth-len(indent), label+":", value)
}

// num formats a percentage input without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (w *writer) String() string { return w.b.String() }
