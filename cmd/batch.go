package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/multifamily-cli/internal/analysis"
	"github.com/sells-group/multifamily-cli/internal/report"
	"github.com/sells-group/multifamily-cli/internal/schedule"
)

var (
	batchCSV         string
	batchConcurrency int
	batchOutput      string
	batchFormat      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every property listed in a CSV file",
	Long: `Reads one property per CSV row and analyzes them concurrently.

Recognized columns (header row required, order does not matter):
  zip, units, price, down_payment_pct, interest_rate_pct, term_years,
  annual_tax, annual_insurance, vacancy_pct, maintenance_pct,
  management_pct, other_expenses, edition

Blank cells fall back to the configured defaults.

Examples:
  multifamily-cli batch --csv listings.csv --output results.json
  multifamily-cli batch --csv listings.csv --format text --concurrency 8`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		if batchFormat != "json" && batchFormat != "text" {
			return eris.Errorf("batch: unknown format %q (want json or text)", batchFormat)
		}

		data, err := os.ReadFile(batchCSV)
		if err != nil {
			return eris.Wrap(err, "batch: read csv")
		}
		params, err := parseBatchCSV(data, defaultParams(cfg))
		if err != nil {
			return err
		}
		zap.L().Info("batch: parsed csv", zap.Int("properties", len(params)))

		repo, err := loadRepository(ctx, cfg)
		if err != nil {
			return err
		}
		items := runBatch(ctx, newAnalyzer(repo, cfg), params, batchConcurrency)

		if batchOutput == "" {
			return writeBatch(cmd.OutOrStdout(), batchFormat, items)
		}
		f, err := os.Create(batchOutput)
		if err != nil {
			return eris.Wrap(err, "batch: create output")
		}
		if err := writeBatch(f, batchFormat, items); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrap(f.Close(), "batch: close output")
	},
}

// batchRow is one CSV row. Pointer fields are nil for blank cells.
type batchRow struct {
	ZIP             string   `csv:"zip"`
	Units           string   `csv:"units"`
	Price           *float64 `csv:"price,omitempty"`
	DownPaymentPct  *float64 `csv:"down_payment_pct,omitempty"`
	InterestRatePct *float64 `csv:"interest_rate_pct,omitempty"`
	TermYears       *int     `csv:"term_years,omitempty"`
	AnnualTax       *float64 `csv:"annual_tax,omitempty"`
	AnnualInsurance *float64 `csv:"annual_insurance,omitempty"`
	VacancyPct      *float64 `csv:"vacancy_pct,omitempty"`
	MaintenancePct  *float64 `csv:"maintenance_pct,omitempty"`
	ManagementPct   *float64 `csv:"management_pct,omitempty"`
	OtherExpenses   *float64 `csv:"other_expenses,omitempty"`
	Edition         string   `csv:"edition,omitempty"`
}

// parseBatchCSV decodes property rows, filling blank cells from defaults.
func parseBatchCSV(data []byte, defaults analysis.Params) ([]analysis.Params, error) {
	var rows []batchRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "batch: decode csv")
	}
	if len(rows) == 0 {
		return nil, eris.New("batch: csv has no data rows")
	}

	out := make([]analysis.Params, 0, len(rows))
	for _, row := range rows {
		p := defaults
		p.PostalCode = strings.TrimSpace(row.ZIP)
		p.UnitMix = row.Units
		p.Edition = schedule.Edition(strings.TrimSpace(row.Edition))
		setFloat(&p.Price, row.Price)
		setFloat(&p.DownPaymentPct, row.DownPaymentPct)
		setFloat(&p.InterestRatePct, row.InterestRatePct)
		setFloat(&p.AnnualTax, row.AnnualTax)
		setFloat(&p.AnnualInsurance, row.AnnualInsurance)
		setFloat(&p.VacancyPct, row.VacancyPct)
		setFloat(&p.MaintenancePct, row.MaintenancePct)
		setFloat(&p.ManagementPct, row.ManagementPct)
		setFloat(&p.OtherExpenses, row.OtherExpenses)
		if row.TermYears != nil {
			p.TermYears = *row.TermYears
		}
		out = append(out, p)
	}
	return out, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// batchItem is the outcome for one CSV row. Row is 1-based and excludes the
// header.
type batchItem struct {
	Row    int              `json:"row"`
	Params analysis.Params  `json:"params"`
	Result *analysis.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// runBatch analyzes every property with at most concurrency in flight.
// Results keep input order.
func runBatch(ctx context.Context, a *analysis.Analyzer, params []analysis.Params, concurrency int) []batchItem {
	items := make([]batchItem, len(params))
	if concurrency < 1 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, p := range params {
		g.Go(func() error {
			item := batchItem{Row: i + 1, Params: p}
			res, err := a.Analyze(gCtx, p)
			switch {
			case err != nil:
				item.Error = err.Error()
			case res.Error != "":
				item.Result = res
				item.Error = res.Error
			default:
				item.Result = res
			}
			if item.Error != "" {
				failed.Add(1)
				zap.L().Warn("batch: property failed", zap.Int("row", item.Row), zap.String("zip", p.PostalCode), zap.String("error", item.Error))
			} else {
				succeeded.Add(1)
			}
			items[i] = item
			return nil // one bad row does not stop the batch
		})
	}
	_ = g.Wait()

	zap.L().Info("batch: complete",
		zap.Int("total", len(params)),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return items
}

func writeBatch(w io.Writer, format string, items []batchItem) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(items), "batch: write results")
	}
	for _, item := range items {
		var err error
		if item.Result == nil {
			_, err = fmt.Fprintf(w, "=== Row %d ===\nERROR: %s\n\n", item.Row, item.Error)
		} else {
			_, err = fmt.Fprintf(w, "=== Row %d ===\n%s\n", item.Row, report.Format(item.Result, item.Params))
		}
		if err != nil {
			return eris.Wrapf(err, "batch: write row %d", item.Row)
		}
	}
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to property CSV file (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max properties to analyze concurrently")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to file (default: stdout)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or text")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}
