package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"APP_ENV"`
	AllowedOrigin string `mapstructure:"ALLOWED_ORIGIN"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	ReportCacheTTLSeconds int    `mapstructure:"REPORT_CACHE_TTL_SECONDS"`

	Timezone string `mapstructure:"TIMEZONE"`

	PrinterMode   string `mapstructure:"PRINTER_MODE"`
	PrinterPDFDir string `mapstructure:"PRINTER_PDF_DIR"`
	PrinterAddr   string `mapstructure:"PRINTER_ADDR"`
	PageWidth     int    `mapstructure:"PAGE_WIDTH"`

	BackupDir     string `mapstructure:"BACKUP_DIR"`
	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom      string `mapstructure:"SMTP_FROM"`
	BackupEmailTo string `mapstructure:"BACKUP_EMAIL_TO"`

	WriteRatePerSecond float64 `mapstructure:"WRITE_RATE_PER_SECOND"`
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"APP_ENV":                  "development",
	"ALLOWED_ORIGIN":           "http://127.0.0.1:3000",
	"STORE_DRIVER":             "sqlite",
	"SQLITE_PATH":              "pos.db",
	"DATABASE_URL":             "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"REPORT_CACHE_TTL_SECONDS": 60,
	"TIMEZONE":                 "Asia/Manila",
	"PRINTER_MODE":             "none",
	"PRINTER_PDF_DIR":          "",
	"PRINTER_ADDR":             "",
	"PAGE_WIDTH":               576,
	"BACKUP_DIR":               "",
	"SMTP_HOST":                "",
	"SMTP_PORT":                587,
	"SMTP_USER":                "",
	"SMTP_PASSWORD":            "",
	"SMTP_FROM":                "",
	"BACKUP_EMAIL_TO":          "",
	"WRITE_RATE_PER_SECOND":    5,
}

// Load reads the environment, after an optional .env file in the working
// directory. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	// Every key needs a default so Unmarshal sees environment-only values.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.PrinterMode = strings.ToLower(strings.TrimSpace(c.PrinterMode))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
	c.SMTPFrom = strings.TrimSpace(c.SMTPFrom)
	if c.SMTPFrom == "" {
		c.SMTPFrom = strings.TrimSpace(c.SMTPUser)
	}
	if c.ReportCacheTTLSeconds < 0 {
		c.ReportCacheTTLSeconds = 0
	}
	if c.PageWidth <= 0 {
		c.PageWidth = 576
	}
	if c.WriteRatePerSecond < 0 {
		c.WriteRatePerSecond = 0
	}
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q (use sqlite, postgres or memory)", c.StoreDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	if c.EmailConfigured() && c.SMTPFrom == "" {
		return errors.New("config: SMTP_FROM is required when SMTP_USER is empty")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Location is the timezone report ranges and receipts are rendered in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

// EmailConfigured reports whether backups can be shared by e-mail.
func (c Config) EmailConfigured() bool {
	return c.SMTPHost != "" && c.BackupEmailTo != ""
}
