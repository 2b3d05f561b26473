package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrEncryptionKeyRequired is returned in production when no credential encryption secret is set.
var ErrEncryptionKeyRequired = errors.New("config: security.encryption_key is required in production")

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Security  SecurityConfig
	Email     EmailConfig
	Scheduler SchedulerConfig
	Platforms PlatformsConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the process runs with production safeguards.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
}

// HTTPConfig holds admin console server settings
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// SecurityConfig holds secrets. EncryptionKey protects stored integration credentials,
// SessionSecret signs admin console sessions.
type SecurityConfig struct {
	EncryptionKey string
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	// AdminEmail and AdminPassword seed the first console admin when no user with that email exists
	AdminEmail    string
	AdminPassword string
}

// EmailConfig configures the outbound email provider
type EmailConfig struct {
	APIKey  string
	BaseURL string
	From    string
	Timeout time.Duration
}

// SchedulerConfig holds the automation job cadence
type SchedulerConfig struct {
	Enabled          bool
	SyncInterval     time.Duration
	LowCashInterval  time.Duration
	LowCashThreshold int64 // minor currency units
	OverdueHour      int
	WeeklyReportHour int
	WeeklyReportDay  time.Weekday
	ShutdownTimeout  time.Duration
}

// PlatformsConfig holds third-party API endpoints and app-level OAuth clients
type PlatformsConfig struct {
	Timeout time.Duration

	StripeBaseURL string

	PayPalBaseURL string

	QuickBooksBaseURL      string
	QuickBooksTokenURL     string
	QuickBooksClientID     string
	QuickBooksClientSecret string

	AsanaBaseURL string
}

// StorageConfig configures the S3-compatible archive for weekly reports
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// RedisConfig configures the shared session revocation list. When disabled,
// revocations are kept in process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with OPSHUB_ prefix (e.g., OPSHUB_DATABASE_PASSWORD)
// 2. Legacy variables ENCRYPTION_KEY, SESSION_SECRET and RESEND_API_KEY
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("OPSHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	legacy := map[string]string{
		"security.encryption_key": "ENCRYPTION_KEY",
		"security.session_secret": "SESSION_SECRET",
		"email.api_key":           "RESEND_API_KEY",
	}
	for key, name := range legacy {
		envName := "OPSHUB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Security: SecurityConfig{
			EncryptionKey: v.GetString("security.encryption_key"),
			SessionSecret: v.GetString("security.session_secret"),
			SessionTTL:    v.GetDuration("security.session_ttl"),
			CookieSecure:  v.GetBool("security.cookie_secure"),
			AdminEmail:    v.GetString("security.admin_email"),
			AdminPassword: v.GetString("security.admin_password"),
		},
		Email: EmailConfig{
			APIKey:  v.GetString("email.api_key"),
			BaseURL: v.GetString("email.base_url"),
			From:    v.GetString("email.from"),
			Timeout: v.GetDuration("email.timeout"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          !v.IsSet("scheduler.enabled") || v.GetBool("scheduler.enabled"),
			SyncInterval:     v.GetDuration("scheduler.sync_interval"),
			LowCashInterval:  v.GetDuration("scheduler.low_cash_interval"),
			LowCashThreshold: v.GetInt64("scheduler.low_cash_threshold"),
			OverdueHour:      v.GetInt("scheduler.overdue_hour"),
			WeeklyReportHour: v.GetInt("scheduler.weekly_report_hour"),
			WeeklyReportDay:  time.Weekday(v.GetInt("scheduler.weekly_report_day")),
			ShutdownTimeout:  v.GetDuration("scheduler.shutdown_timeout"),
		},
		Platforms: PlatformsConfig{
			Timeout:                v.GetDuration("platforms.timeout"),
			StripeBaseURL:          v.GetString("platforms.stripe_base_url"),
			PayPalBaseURL:          v.GetString("platforms.paypal_base_url"),
			QuickBooksBaseURL:      v.GetString("platforms.quickbooks_base_url"),
			QuickBooksTokenURL:     v.GetString("platforms.quickbooks_token_url"),
			QuickBooksClientID:     v.GetString("platforms.quickbooks_client_id"),
			QuickBooksClientSecret: v.GetString("platforms.quickbooks_client_secret"),
			AsanaBaseURL:           v.GetString("platforms.asana_base_url"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}
	if !v.IsSet("scheduler.weekly_report_day") {
		cfg.Scheduler.WeeklyReportDay = time.Monday
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "opshub"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "opshub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Security.SessionTTL == 0 {
		cfg.Security.SessionTTL = 24 * time.Hour
	}

	if cfg.Email.BaseURL == "" {
		cfg.Email.BaseURL = "https://api.resend.com"
	}
	if cfg.Email.From == "" {
		cfg.Email.From = "Ops Hub <notifications@opshub.local>"
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 10 * time.Second
	}

	if cfg.Scheduler.SyncInterval == 0 {
		cfg.Scheduler.SyncInterval = 15 * time.Minute
	}
	if cfg.Scheduler.LowCashInterval == 0 {
		cfg.Scheduler.LowCashInterval = time.Hour
	}
	if cfg.Scheduler.LowCashThreshold == 0 {
		cfg.Scheduler.LowCashThreshold = 500000
	}
	if cfg.Scheduler.OverdueHour == 0 {
		cfg.Scheduler.OverdueHour = 9
	}
	if cfg.Scheduler.WeeklyReportHour == 0 {
		cfg.Scheduler.WeeklyReportHour = 8
	}
	if cfg.Scheduler.ShutdownTimeout == 0 {
		cfg.Scheduler.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Platforms.Timeout == 0 {
		cfg.Platforms.Timeout = 30 * time.Second
	}
	if cfg.Platforms.StripeBaseURL == "" {
		cfg.Platforms.StripeBaseURL = "https://api.stripe.com"
	}
	if cfg.Platforms.PayPalBaseURL == "" {
		cfg.Platforms.PayPalBaseURL = "https://api-m.paypal.com"
	}
	if cfg.Platforms.QuickBooksBaseURL == "" {
		cfg.Platforms.QuickBooksBaseURL = "https://quickbooks.api.intuit.com"
	}
	if cfg.Platforms.QuickBooksTokenURL == "" {
		cfg.Platforms.QuickBooksTokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	}
	if cfg.Platforms.AsanaBaseURL == "" {
		cfg.Platforms.AsanaBaseURL = "https://app.asana.com/api/1.0"
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "opshub-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Scheduler.OverdueHour < 0 || c.Scheduler.OverdueHour > 23 {
		return fmt.Errorf("scheduler.overdue_hour must be between 0 and 23, got %d", c.Scheduler.OverdueHour)
	}
	if c.Scheduler.WeeklyReportHour < 0 || c.Scheduler.WeeklyReportHour > 23 {
		return fmt.Errorf("scheduler.weekly_report_hour must be between 0 and 23, got %d", c.Scheduler.WeeklyReportHour)
	}
	if c.Scheduler.WeeklyReportDay < time.Sunday || c.Scheduler.WeeklyReportDay > time.Saturday {
		return fmt.Errorf("scheduler.weekly_report_day must be between 0 (Sunday) and 6, got %d", c.Scheduler.WeeklyReportDay)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.IsProduction() {
		if c.Security.EncryptionKey == "" {
			return ErrEncryptionKeyRequired
		}
		if len(c.Security.SessionSecret) < 32 {
			return fmt.Errorf("security.session_secret must be at least 32 characters in production")
		}
		if !c.Security.CookieSecure {
			return fmt.Errorf("security.cookie_secure must be true in production")
		}
		if c.Email.APIKey == "" {
			return fmt.Errorf("email.api_key is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
