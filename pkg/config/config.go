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

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Scan     ScanConfig
	Schedule ScheduleConfig
	Backfill BackfillConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify access tokens issued by the portal.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScanConfig governs the attendance scan endpoint.
type ScanConfig struct {
	TokenSecret           string
	TokenIssuer           string
	TokenTTL              time.Duration
	TokenLeeway           time.Duration
	Timezone              string
	Zone                  *time.Location
	Timeout               time.Duration
	RejectOutsideGeofence bool
	RateLimitPerMinute    int
}

// ScheduleConfig tunes the active schedule read path.
type ScheduleConfig struct {
	CacheTTL time.Duration
}

// BackfillConfig configures the retry worker used for leave backfills.
type BackfillConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	var problems []error
	duration := func(key string) time.Duration {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scan = ScanConfig{
		TokenSecret:           v.GetString("SCAN_TOKEN_SECRET"),
		TokenIssuer:           v.GetString("SCAN_TOKEN_ISSUER"),
		TokenTTL:              duration("SCAN_TOKEN_TTL"),
		TokenLeeway:           duration("SCAN_TOKEN_LEEWAY"),
		Timezone:              v.GetString("SCAN_TIMEZONE"),
		Timeout:               duration("SCAN_TIMEOUT"),
		RejectOutsideGeofence: v.GetBool("SCAN_REJECT_OUTSIDE_GEOFENCE"),
		RateLimitPerMinute:    v.GetInt("SCAN_RATE_LIMIT_PER_MINUTE"),
	}

	cfg.Schedule = ScheduleConfig{
		CacheTTL: duration("SCHEDULE_CACHE_TTL"),
	}

	cfg.Backfill = BackfillConfig{
		Workers:    v.GetInt("BACKFILL_WORKERS"),
		MaxRetries: v.GetInt("BACKFILL_MAX_RETRIES"),
		RetryDelay: duration("BACKFILL_RETRY_DELAY"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	zone, err := time.LoadLocation(cfg.Scan.Timezone)
	if err != nil {
		problems = append(problems, fmt.Errorf("SCAN_TIMEZONE %q: %w", cfg.Scan.Timezone, err))
	}
	cfg.Scan.Zone = zone

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
	}
	return cfg, nil
}

// Location returns the attendance time zone resolved by Load, or UTC for a
// zero ScanConfig.
func (c ScanConfig) Location() *time.Location {
	if c.Zone == nil {
		return time.UTC
	}
	return c.Zone
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "internship_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCAN_TOKEN_SECRET", "dev_scan_secret")
	v.SetDefault("SCAN_TOKEN_ISSUER", "internship-portal")
	v.SetDefault("SCAN_TOKEN_TTL", "5m")
	v.SetDefault("SCAN_TOKEN_LEEWAY", "5s")
	v.SetDefault("SCAN_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("SCAN_TIMEOUT", "10s")
	v.SetDefault("SCAN_REJECT_OUTSIDE_GEOFENCE", false)
	v.SetDefault("SCAN_RATE_LIMIT_PER_MINUTE", 30)

	v.SetDefault("SCHEDULE_CACHE_TTL", "1m")

	v.SetDefault("BACKFILL_WORKERS", 1)
	v.SetDefault("BACKFILL_MAX_RETRIES", 5)
	v.SetDefault("BACKFILL_RETRY_DELAY", "30s")

	v.SetDefault("ENABLE_METRICS", true)
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
