package config

import (
	"errors"
	"strings"
	"time"

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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Schedule      ScheduleConfig
	Conflicts     ConflictsConfig
	Holiday       HolidayConfig
	Notifications NotificationsConfig
	Export        ExportConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScheduleConfig carries the shift-policy parameters that gate template
// validation and the assignment lifecycle.
type ScheduleConfig struct {
	MinShiftHours          float64
	MaxShiftHours          float64
	LongShiftWarningHours  float64
	BreakRequiredFromHours float64
	MaxGuardsWarning       int
	DurationToleranceHours float64
	CheckInGrace           time.Duration
	SkipConfirmation       bool
}

// ConflictsConfig carries detection thresholds. The overtime cap applies to
// the calendar month of the shift being checked.
type ConflictsConfig struct {
	MinRestHours            float64
	MonthlyOvertimeCapHours float64
	ReportCacheTTL          time.Duration
}

// HolidayConfig points at the external holiday calendar service.
type HolidayConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// ExportConfig controls where rendered report files land and how long
// signed download links stay valid.
type ExportConfig struct {
	StorageDir string
	SignSecret string
	ResultTTL  time.Duration
}

// NotificationsConfig tunes the outbound dispatch worker.
type NotificationsConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Schedule = ScheduleConfig{
		MinShiftHours:          v.GetFloat64("SCHEDULE_MIN_SHIFT_HOURS"),
		MaxShiftHours:          v.GetFloat64("SCHEDULE_MAX_SHIFT_HOURS"),
		LongShiftWarningHours:  v.GetFloat64("SCHEDULE_LONG_SHIFT_WARNING_HOURS"),
		BreakRequiredFromHours: v.GetFloat64("SCHEDULE_BREAK_REQUIRED_FROM_HOURS"),
		MaxGuardsWarning:       v.GetInt("SCHEDULE_MAX_GUARDS_WARNING"),
		DurationToleranceHours: v.GetFloat64("SCHEDULE_DURATION_TOLERANCE_HOURS"),
		CheckInGrace:           parseDuration(v.GetString("SCHEDULE_CHECKIN_GRACE"), 15*time.Minute),
		SkipConfirmation:       v.GetBool("SCHEDULE_SKIP_CONFIRMATION"),
	}

	cfg.Conflicts = ConflictsConfig{
		MinRestHours:            v.GetFloat64("CONFLICTS_MIN_REST_HOURS"),
		MonthlyOvertimeCapHours: v.GetFloat64("CONFLICTS_MONTHLY_OVERTIME_CAP_HOURS"),
		ReportCacheTTL:          parseDuration(v.GetString("CONFLICTS_REPORT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Holiday = HolidayConfig{
		BaseURL:  v.GetString("HOLIDAY_API_BASE_URL"),
		Timeout:  parseDuration(v.GetString("HOLIDAY_API_TIMEOUT"), 3*time.Second),
		CacheTTL: parseDuration(v.GetString("HOLIDAY_CACHE_TTL"), 12*time.Hour),
	}

	cfg.Export = ExportConfig{
		StorageDir: v.GetString("EXPORT_STORAGE_DIR"),
		SignSecret: v.GetString("EXPORT_SIGN_SECRET"),
		ResultTTL:  parseDuration(v.GetString("EXPORT_RESULT_TTL"), 24*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("NOTIFICATIONS_ENABLED"),
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "guard_shift_ops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_MIN_SHIFT_HOURS", 1.0)
	v.SetDefault("SCHEDULE_MAX_SHIFT_HOURS", 24.0)
	v.SetDefault("SCHEDULE_LONG_SHIFT_WARNING_HOURS", 12.0)
	v.SetDefault("SCHEDULE_BREAK_REQUIRED_FROM_HOURS", 6.0)
	v.SetDefault("SCHEDULE_MAX_GUARDS_WARNING", 50)
	v.SetDefault("SCHEDULE_DURATION_TOLERANCE_HOURS", 0.1)
	v.SetDefault("SCHEDULE_CHECKIN_GRACE", "15m")
	v.SetDefault("SCHEDULE_SKIP_CONFIRMATION", false)

	v.SetDefault("CONFLICTS_MIN_REST_HOURS", 12.0)
	v.SetDefault("CONFLICTS_MONTHLY_OVERTIME_CAP_HOURS", 40.0)
	v.SetDefault("CONFLICTS_REPORT_CACHE_TTL", "5m")

	v.SetDefault("HOLIDAY_API_BASE_URL", "http://localhost:9100")
	v.SetDefault("HOLIDAY_API_TIMEOUT", "3s")
	v.SetDefault("HOLIDAY_CACHE_TTL", "12h")

	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORT_SIGN_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_RESULT_TTL", "24h")

	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
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
