package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/multifamily-cli/internal/analysis"
	"github.com/sells-group/multifamily-cli/internal/config"
	"github.com/sells-group/multifamily-cli/internal/schedule"
	"github.com/sells-group/multifamily-cli/internal/unitmix"
)

// loadRepository combines the embedded editions with any configured YAML
// files and the editions imported into the SQLite store. Later sources
// replace earlier ones with the same edition id.
func loadRepository(ctx context.Context, c *config.Config) (*schedule.Repository, error) {
	repo, err := schedule.Default()
	if err != nil {
		return nil, eris.Wrap(err, "load embedded schedules")
	}

	var extra []*schedule.Schedule
	for _, path := range c.Schedule.Files {
		s, err := schedule.LoadFile(path)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("schedule: loaded file", zap.String("path", path), zap.String("edition", string(s.Edition())))
		extra = append(extra, s)
	}

	stored, err := loadStored(ctx, c.Schedule.DatabasePath)
	if err != nil {
		return nil, err
	}
	extra = append(extra, stored...)

	if len(extra) > 0 {
		repo = repo.With(extra...)
	}

	if e := schedule.Edition(c.Schedule.DefaultEdition); e != "" {
		if _, err := repo.Schedule(e); err != nil {
			return nil, eris.Wrap(err, "config: schedule.default_edition")
		}
	}
	return repo, nil
}

// loadStored reads imported editions. A missing database file is not an
// error; it only exists once something has been imported.
func loadStored(ctx context.Context, path string) ([]*schedule.Schedule, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	st, err := openStore(ctx, path)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	schedules, err := st.LoadSchedules(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load imported schedules")
	}
	return schedules, nil
}

// openStore opens and migrates the schedule database, creating it if needed.
func openStore(ctx context.Context, path string) (*schedule.SQLiteStore, error) {
	st, err := schedule.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newAnalyzer(repo *schedule.Repository, c *config.Config) *analysis.Analyzer {
	return analysis.New(repo, analysis.Options{
		UnitMix: unitmix.Options{
			SingleUnitFallback: c.UnitMix.SingleUnitFallback,
			MaxUnits:           c.UnitMix.MaxUnits,
		},
		DefaultEdition: schedule.Edition(c.Schedule.DefaultEdition),
	})
}

// defaultParams returns analysis inputs pre-filled from configuration.
func defaultParams(c *config.Config) analysis.Params {
	return analysis.Params{
		DownPaymentPct:  c.Defaults.DownPaymentPct,
		InterestRatePct: c.Defaults.InterestRatePct,
		TermYears:       c.Defaults.TermYears,
		VacancyPct:      c.Defaults.VacancyPct,
		MaintenancePct:  c.Defaults.MaintenancePct,
		ManagementPct:   c.Defaults.ManagementPct,
	}
}

// editionOrDefault resolves an --edition flag against the configured and
// repository defaults.
func editionOrDefault(repo *schedule.Repository, c *config.Config, flag string) schedule.Edition {
	if flag != "" {
		return schedule.Edition(flag)
	}
	if c.Schedule.DefaultEdition != "" {
		return schedule.Edition(c.Schedule.DefaultEdition)
	}
	return repo.DefaultEdition()
}
