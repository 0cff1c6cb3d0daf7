package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "", cfg.Schedule.DefaultEdition)
	assert.Empty(t, cfg.Schedule.Files)
	assert.Equal(t, "multifamily.db", cfg.Schedule.DatabasePath)
	assert.False(t, cfg.UnitMix.SingleUnitFallback)
	assert.Equal(t, 1000, cfg.UnitMix.MaxUnits)
	assert.InDelta(t, 25.0, cfg.Defaults.DownPaymentPct, 0.001)
	assert.InDelta(t, 7.0, cfg.Defaults.InterestRatePct, 0.001)
	assert.Equal(t, 30, cfg.Defaults.TermYears)
	assert.InDelta(t, 5.0, cfg.Defaults.VacancyPct, 0.001)
	assert.InDelta(t, 5.0, cfg.Defaults.MaintenancePct, 0.001)
	assert.InDelta(t, 8.0, cfg.Defaults.ManagementPct, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins: ["https://deals.example.com"]
schedule:
  default_edition: "2025"
  files: ["custom/2026.yaml"]
unit_mix:
  single_unit_fallback: true
defaults:
  vacancy_pct: 7.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://deals.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "2025", cfg.Schedule.DefaultEdition)
	assert.Equal(t, []string{"custom/2026.yaml"}, cfg.Schedule.Files)
	assert.True(t, cfg.UnitMix.SingleUnitFallback)
	assert.InDelta(t, 7.5, cfg.Defaults.VacancyPct, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 8.0, cfg.Defaults.ManagementPct, 0.001)
	assert.Equal(t, "multifamily.db", cfg.Schedule.DatabasePath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
schedule:
  default_edition: "2025"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MULTIFAMILY_SCHEDULE_DEFAULT_EDITION", "2024")
	t.Setenv("MULTIFAMILY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "2024", cfg.Schedule.DefaultEdition)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MULTIFAMILY_SERVER_PORT", "3000")
	t.Setenv("MULTIFAMILY_DEFAULTS_TERM_YEARS", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Defaults.TermYears)
}

func TestLoadBadFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.RateLimit = 20
	cfg.Server.RateBurst = 40
	cfg.UnitMix.MaxUnits = 1000
	cfg.Defaults = DefaultsConfig{
		DownPaymentPct:  25,
		InterestRatePct: 7,
		TermYears:       30,
		VacancyPct:      5,
		MaintenancePct:  5,
		ManagementPct:   8,
	}
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("analyze"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_PercentBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Defaults.DownPaymentPct = 120
	cfg.Defaults.VacancyPct = -1

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults.down_payment_pct must be between 0 and 100")
	assert.Contains(t, err.Error(), "defaults.vacancy_pct must be between 0 and 100")
}

func TestValidate_NegativeLoanDefaults(t *testing.T) {
	cfg := validDefaults()
	cfg.Defaults.InterestRatePct = -1
	cfg.Defaults.TermYears = -5
	cfg.UnitMix.MaxUnits = -1

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interest_rate_pct")
	assert.Contains(t, err.Error(), "term_years")
	assert.Contains(t, err.Error(), "max_units")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port is irrelevant outside serve.
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateServe_RateLimit(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.RateBurst = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_burst")

	cfg.Server.RateLimit = 0
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.RateLimit = -1
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
