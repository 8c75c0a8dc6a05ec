package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the postgres connection string, preferring DATABASE_URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// Enabled reports whether a redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SchedulerConfig struct {
	StatsSpec string
	Timezone  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

type BusinessConfig struct {
	InitialLoanPeriodWeeks int
	MaxExtensionWeeks      int
	MaxDailyLoansPerIP     int
	InitialInterestPercent int64
	InterestGrowthFactor   string
	MaxAmountCZK           int64
	MaxAmountEUR           int64
	RiskWindowStart        string
	RiskWindowEnd          string
}

type HealthConfig struct {
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")

	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "loan_engine")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_SQLITE_PATH", "data/loan_engine.db")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 25)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_LOCK_TTL", "10s")

	v.SetDefault("SCHEDULER_STATS_SPEC", "@every 1h")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("INITIAL_LOAN_PERIOD_WEEKS", 1)
	v.SetDefault("MAX_EXTENSION_WEEKS", 52)
	v.SetDefault("MAX_DAILY_LOANS_PER_IP", 3)
	v.SetDefault("INITIAL_INTEREST_PERCENT", 10)
	v.SetDefault("INTEREST_GROWTH_FACTOR", "1.5")
	v.SetDefault("MAX_AMOUNT_CZK", 30000)
	v.SetDefault("MAX_AMOUNT_EUR", 15000)
	v.SetDefault("RISK_WINDOW_START", "00:00:00")
	v.SetDefault("RISK_WINDOW_END", "06:00:00")

	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	return FromViper(v)
}

// FromViper builds and validates the configuration from a populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	config := Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetString("DATABASE_PORT"),
			Name:            v.GetString("DATABASE_NAME"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			SQLitePath:      v.GetString("DATABASE_SQLITE_PATH"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			LockTTL:  v.GetDuration("REDIS_LOCK_TTL"),
		},
		Scheduler: SchedulerConfig{
			StatsSpec: v.GetString("SCHEDULER_STATS_SPEC"),
			Timezone:  v.GetString("SCHEDULER_TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerMinute: v.GetInt("RATE_LIMIT_REQUESTS_PER_MINUTE"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Business: BusinessConfig{
			InitialLoanPeriodWeeks: v.GetInt("INITIAL_LOAN_PERIOD_WEEKS"),
			MaxExtensionWeeks:      v.GetInt("MAX_EXTENSION_WEEKS"),
			MaxDailyLoansPerIP:     v.GetInt("MAX_DAILY_LOANS_PER_IP"),
			InitialInterestPercent: v.GetInt64("INITIAL_INTEREST_PERCENT"),
			InterestGrowthFactor:   v.GetString("INTEREST_GROWTH_FACTOR"),
			MaxAmountCZK:           v.GetInt64("MAX_AMOUNT_CZK"),
			MaxAmountEUR:           v.GetInt64("MAX_AMOUNT_EUR"),
			RiskWindowStart:        v.GetString("RISK_WINDOW_START"),
			RiskWindowEnd:          v.GetString("RISK_WINDOW_END"),
		},
		Health: HealthConfig{
			Timeout: v.GetDuration("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required for postgres")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DATABASE_SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Redis.Enabled() && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("REDIS_LOCK_TTL must be greater than 0")
	}

	// Validate scheduler spec
	if _, err := cron.ParseStandard(c.Scheduler.StatsSpec); err != nil {
		return fmt.Errorf("SCHEDULER_STATS_SPEC must be a valid cron spec: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid timezone: %w", err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_MINUTE and RATE_LIMIT_BURST must be greater than 0")
	}

	b := c.Business
	if b.InitialLoanPeriodWeeks <= 0 {
		return fmt.Errorf("INITIAL_LOAN_PERIOD_WEEKS must be greater than 0")
	}
	if b.MaxExtensionWeeks <= b.InitialLoanPeriodWeeks {
		return fmt.Errorf("MAX_EXTENSION_WEEKS must be greater than INITIAL_LOAN_PERIOD_WEEKS")
	}
	if b.MaxDailyLoansPerIP <= 0 {
		return fmt.Errorf("MAX_DAILY_LOANS_PER_IP must be greater than 0")
	}
	if b.InitialInterestPercent <= 0 {
		return fmt.Errorf("INITIAL_INTEREST_PERCENT must be greater than 0")
	}
	if b.MaxAmountCZK <= 0 || b.MaxAmountEUR <= 0 {
		return fmt.Errorf("MAX_AMOUNT_CZK and MAX_AMOUNT_EUR must be greater than 0")
	}

	// Validate interest growth factor
	factor, err := decimal.NewFromString(b.InterestGrowthFactor)
	if err != nil {
		return fmt.Errorf("INTEREST_GROWTH_FACTOR must be a valid decimal: %w", err)
	}
	if factor.LessThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("INTEREST_GROWTH_FACTOR must be greater than 1")
	}

	start, err := utils.ParseTimeOfDay(b.RiskWindowStart)
	if err != nil {
		return fmt.Errorf("RISK_WINDOW_START: %w", err)
	}
	end, err := utils.ParseTimeOfDay(b.RiskWindowEnd)
	if err != nil {
		return fmt.Errorf("RISK_WINDOW_END: %w", err)
	}
	if end < start {
		return fmt.Errorf("RISK_WINDOW_END must not be before RISK_WINDOW_START")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Policy builds the business policy. Call only on a validated config.
func (c *Config) Policy() domain.Policy {
	b := c.Business
	factor, _ := decimal.NewFromString(b.InterestGrowthFactor)
	start, _ := utils.ParseTimeOfDay(b.RiskWindowStart)
	end, _ := utils.ParseTimeOfDay(b.RiskWindowEnd)

	return domain.Policy{
		InitialPeriodWeeks:     b.InitialLoanPeriodWeeks,
		MaxExtensionWeeks:      b.MaxExtensionWeeks,
		MaxDailyLoansPerIP:     b.MaxDailyLoansPerIP,
		InitialInterestPercent: b.InitialInterestPercent,
		InterestGrowthFactor:   factor,
		AmountCeilings: map[domain.Currency]int64{
			domain.CurrencyCZK: b.MaxAmountCZK,
			domain.CurrencyEUR: b.MaxAmountEUR,
		},
		RiskWindowStart: start,
		RiskWindowEnd:   end,
	}
}

// SchedulerLocation returns the scheduler timezone
func (c *Config) SchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
