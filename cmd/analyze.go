package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/multifamily-cli/internal/analysis"
	"github.com/sells-group/multifamily-cli/internal/config"
	"github.com/sells-group/multifamily-cli/internal/report"
	"github.com/sells-group/multifamily-cli/internal/schedule"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one property",
	Long: `Prices every unit at the payment standard for its ZIP code, then projects
financing, operating income, cash flow, and returns.

Examples:
  multifamily-cli analyze --zip 19120 --units "6x2BR, 4x1BR" --price 500000

  # All cash purchase against the 2025 payment standards, JSON output
  multifamily-cli analyze --zip 19143 --units "3x3BR" --price 360000 --down 100 \
    --edition 2025 --format json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		repo, err := loadRepository(ctx, cfg)
		if err != nil {
			return err
		}

		p, err := analyzeParams(cmd.Flags(), cfg)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		res, err := newAnalyzer(repo, cfg).Analyze(ctx, p)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		if err := writeResult(cmd.OutOrStdout(), format, res, p); err != nil {
			return err
		}
		if res.Error != "" {
			return eris.Errorf("analyze: %s", res.Error)
		}
		return nil
	},
}

// analyzeParams builds analysis inputs from flags, falling back to the
// configured defaults for any flag left unset.
func analyzeParams(flags *pflag.FlagSet, c *config.Config) (analysis.Params, error) {
	p := defaultParams(c)

	p.PostalCode, _ = flags.GetString("zip")
	p.UnitMix, _ = flags.GetString("units")
	p.Price, _ = flags.GetFloat64("price")
	p.AnnualTax, _ = flags.GetFloat64("tax")
	p.AnnualInsurance, _ = flags.GetFloat64("insurance")
	p.OtherExpenses, _ = flags.GetFloat64("other")
	edition, _ := flags.GetString("edition")
	p.Edition = schedule.Edition(edition)

	overrides := []struct {
		name string
		dst  *float64
	}{
		{"down", &p.DownPaymentPct},
		{"rate", &p.InterestRatePct},
		{"vacancy", &p.VacancyPct},
		{"maintenance", &p.MaintenancePct},
		{"management", &p.ManagementPct},
	}
	for _, o := range overrides {
		if flags.Changed(o.name) {
			*o.dst, _ = flags.GetFloat64(o.name)
		}
	}
	if flags.Changed("term") {
		p.TermYears, _ = flags.GetInt("term")
	}

	if format, _ := flags.GetString("format"); format != "text" && format != "json" {
		return p, eris.Errorf("analyze: unknown format %q (want text or json)", format)
	}
	return p, nil
}

func writeResult(w io.Writer, format string, res *analysis.Result, p analysis.Params) error {
	if format == "json" {
		data, err := report.JSON(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return eris.Wrap(err, "write result")
	}
	_, err := fmt.Fprint(w, report.Format(res, p))
	return eris.Wrap(err, "write result")
}

func init() {
	f := analyzeCmd.Flags()
	f.String("zip", "", "property ZIP code (required)")
	f.String("units", "", `unit mix, e.g. "6x2BR, 4x1BR" (required)`)
	f.Float64("price", 0, "purchase price")
	f.Float64("down", 0, "down payment percent (default from config)")
	f.Float64("rate", 0, "annual interest rate percent (default from config)")
	f.Int("term", 0, "loan term in years (default from config)")
	f.Float64("tax", 0, "annual property tax")
	f.Float64("insurance", 0, "annual insurance")
	f.Float64("vacancy", 0, "vacancy percent of gross rent (default from config)")
	f.Float64("maintenance", 0, "repairs and maintenance percent of gross rent (default from config)")
	f.Float64("management", 0, "management percent of gross rent (default from config)")
	f.Float64("other", 0, "other annual operating expenses")
	f.String("edition", "", "payment standard edition (default: earliest)")
	f.String("format", "text", "output format: text or json")
	_ = analyzeCmd.MarkFlagRequired("zip")
	_ = analyzeCmd.MarkFlagRequired("units")
	rootCmd.AddCommand(analyzeCmd)
}
