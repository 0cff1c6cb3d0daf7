package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	UnitMix  UnitMixConfig  `yaml:"unit_mix" mapstructure:"unit_mix"`
	Defaults DefaultsConfig `yaml:"defaults" mapstructure:"defaults"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ScheduleConfig selects the payment standard tables.
type ScheduleConfig struct {
	// DefaultEdition is used when a request names no edition. Empty means
	// the earliest edition available.
	DefaultEdition string   `yaml:"default_edition" mapstructure:"default_edition"`
	Files          []string `yaml:"files" mapstructure:"files"`
	DatabasePath   string   `yaml:"database_path" mapstructure:"database_path"`
}

// UnitMixConfig configures unit mix parsing.
type UnitMixConfig struct {
	SingleUnitFallback bool `yaml:"single_unit_fallback" mapstructure:"single_unit_fallback"`
	MaxUnits           int  `yaml:"max_units" mapstructure:"max_units"`
}

// DefaultsConfig holds the analysis inputs used when a flag or request
// field is omitted.
type DefaultsConfig struct {
	DownPaymentPct  float64 `yaml:"down_payment_pct" mapstructure:"down_payment_pct"`
	InterestRatePct float64 `yaml:"interest_rate_pct" mapstructure:"interest_rate_pct"`
	TermYears       int     `yaml:"term_years" mapstructure:"term_years"`
	VacancyPct      float64 `yaml:"vacancy_pct" mapstructure:"vacancy_pct"`
	MaintenancePct  float64 `yaml:"maintenance_pct" mapstructure:"maintenance_pct"`
	ManagementPct   float64 `yaml:"management_pct" mapstructure:"management_pct"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MULTIFAMILY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("schedule.default_edition", "")
	v.SetDefault("schedule.files", []string{})
	v.SetDefault("schedule.database_path", "multifamily.db")
	v.SetDefault("unit_mix.single_unit_fallback", false)
	v.SetDefault("unit_mix.max_units", 1000)
	v.SetDefault("defaults.down_payment_pct", 25.0)
	v.SetDefault("defaults.interest_rate_pct", 7.0)
	v.SetDefault("defaults.term_years", 30)
	v.SetDefault("defaults.vacancy_pct", 5.0)
	v.SetDefault("defaults.maintenance_pct", 5.0)
	v.SetDefault("defaults.management_pct", 8.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "analyze" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	pct := func(name string, v float64) {
		if v < 0 || v > 100 {
			errs = append(errs, "defaults."+name+" must be between 0 and 100")
		}
	}
	pct("down_payment_pct", c.Defaults.DownPaymentPct)
	pct("vacancy_pct", c.Defaults.VacancyPct)
	pct("maintenance_pct", c.Defaults.MaintenancePct)
	pct("management_pct", c.Defaults.ManagementPct)
	if c.Defaults.InterestRatePct < 0 {
		errs = append(errs, "defaults.interest_rate_pct must be >= 0")
	}
	if c.Defaults.TermYears < 0 {
		errs = append(errs, "defaults.term_years must be >= 0")
	}
	if c.UnitMix.MaxUnits < 0 {
		errs = append(errs, "unit_mix.max_units must be >= 0")
	}

	switch mode {
	case "analyze":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1 when rate_limit is set")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
