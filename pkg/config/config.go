package config

import (
	"errors"
	"fmt"
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

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Enroll   EnrollConfig
	Queue    QueueConfig
	Mail     MailConfig
	Watcher  WatcherConfig
	Fuel     FuelConfig
	CORS     CORSConfig
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

// RedisConfig addresses a single Redis instance. Sessions, attempt logs and
// shared state (host weights, seat stock, stop flags) live in separate
// logical databases so they can be flushed independently.
type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	SessionDB  int
	ProgressDB int
	SharedDB   int
}

type LogConfig struct {
	Level  string
	Format string
}

// EnrollConfig describes the remote enrollment deployment: the set of backend
// hosts, how to build their base URLs, and the currently open selection window.
type EnrollConfig struct {
	Hosts           []string
	BaseURLTemplate string
	Year            int
	Term            int
	OpenCategory    string
	OpeningTime     time.Time
	RequestTimeout  time.Duration
	LoginTimeout    time.Duration
	RetryDelay      time.Duration
	ContextIDTTL    time.Duration
}

// QueueConfig sizes the booking worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	JobTimeout time.Duration
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	From     string
	Username string
	Password string
	AdminTo  string
}

// WatcherConfig drives the background remaining-seat poller.
type WatcherConfig struct {
	Enabled  bool
	Interval time.Duration
	PageSize int
}

// FuelConfig holds the keyed secret for admission-token encoding.
type FuelConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// BaseURL renders the base URL for a backend host identifier.
func (c EnrollConfig) BaseURL(host string) string {
	return fmt.Sprintf(c.BaseURLTemplate, host)
}

// Countdown returns the remaining delay before the selection window opens,
// or zero once it is open.
func (c EnrollConfig) Countdown(now time.Time) time.Duration {
	if d := c.OpeningTime.Sub(now); d > 0 {
		return d
	}
	return 0
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
		Host:       v.GetString("REDIS_HOST"),
		Port:       v.GetInt("REDIS_PORT"),
		Password:   v.GetString("REDIS_PASSWORD"),
		SessionDB:  v.GetInt("REDIS_SESSION_DB"),
		ProgressDB: v.GetInt("REDIS_PROGRESS_DB"),
		SharedDB:   v.GetInt("REDIS_SHARED_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	openingTime, err := time.Parse(time.RFC3339, v.GetString("ENROLL_OPENING_TIME"))
	if err != nil {
		return nil, fmt.Errorf("parse ENROLL_OPENING_TIME: %w", err)
	}

	cfg.Enroll = EnrollConfig{
		Hosts:           splitAndTrim(v.GetString("ENROLL_HOSTS")),
		BaseURLTemplate: v.GetString("ENROLL_BASE_URL_TEMPLATE"),
		Year:            v.GetInt("ENROLL_YEAR"),
		Term:            v.GetInt("ENROLL_TERM"),
		OpenCategory:    v.GetString("ENROLL_OPEN_CATEGORY"),
		OpeningTime:     openingTime,
		RequestTimeout:  parseDuration(v.GetString("ENROLL_REQUEST_TIMEOUT"), 90*time.Second),
		LoginTimeout:    parseDuration(v.GetString("ENROLL_LOGIN_TIMEOUT"), 60*time.Second),
		RetryDelay:      parseDuration(v.GetString("ENROLL_RETRY_DELAY"), 500*time.Millisecond),
		ContextIDTTL:    parseDuration(v.GetString("ENROLL_CONTEXT_ID_TTL"), 30*time.Minute),
	}
	if len(cfg.Enroll.Hosts) == 0 {
		return nil, errors.New("ENROLL_HOSTS must name at least one backend host")
	}

	cfg.Queue = QueueConfig{
		Workers:    v.GetInt("QUEUE_WORKERS"),
		BufferSize: v.GetInt("QUEUE_BUFFER"),
		MaxRetries: v.GetInt("QUEUE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("QUEUE_RETRY_DELAY"), 5*time.Second),
		JobTimeout: parseDuration(v.GetString("QUEUE_JOB_TIMEOUT"), 2*time.Hour),
	}

	cfg.Mail = MailConfig{
		Enabled:  v.GetBool("MAIL_ENABLED"),
		Host:     v.GetString("MAIL_HOST"),
		Port:     v.GetInt("MAIL_PORT"),
		From:     v.GetString("MAIL_FROM"),
		Username: v.GetString("MAIL_USERNAME"),
		Password: v.GetString("MAIL_PASSWORD"),
		AdminTo:  v.GetString("MAIL_ADMIN_TO"),
	}

	cfg.Watcher = WatcherConfig{
		Enabled:  v.GetBool("WATCH_ENABLED"),
		Interval: parseDuration(v.GetString("WATCH_INTERVAL"), 5*time.Minute),
		PageSize: v.GetInt("WATCH_PAGE_SIZE"),
	}

	cfg.Fuel = FuelConfig{
		Secret: v.GetString("FUEL_SECRET"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
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
	v.SetDefault("DB_NAME", "snatcher")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 4)
	v.SetDefault("REDIS_PROGRESS_DB", 3)
	v.SetDefault("REDIS_SHARED_DB", 5)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENROLL_HOSTS", "5,6,7,8,9")
	v.SetDefault("ENROLL_BASE_URL_TEMPLATE", "http://10.3.132.%s/jwglxt")
	v.SetDefault("ENROLL_YEAR", 2024)
	v.SetDefault("ENROLL_TERM", 3)
	v.SetDefault("ENROLL_OPEN_CATEGORY", "general-elective")
	v.SetDefault("ENROLL_OPENING_TIME", "2024-06-29T09:00:01+08:00")
	v.SetDefault("ENROLL_REQUEST_TIMEOUT", "90s")
	v.SetDefault("ENROLL_LOGIN_TIMEOUT", "60s")
	v.SetDefault("ENROLL_RETRY_DELAY", "500ms")
	v.SetDefault("ENROLL_CONTEXT_ID_TTL", "30m")

	v.SetDefault("QUEUE_WORKERS", 256)
	v.SetDefault("QUEUE_BUFFER", 1024)
	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_RETRY_DELAY", "5s")
	v.SetDefault("QUEUE_JOB_TIMEOUT", "2h")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_HOST", "smtp.qq.com")
	v.SetDefault("MAIL_PORT", 465)
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_ADMIN_TO", "")

	v.SetDefault("WATCH_ENABLED", false)
	v.SetDefault("WATCH_INTERVAL", "5m")
	v.SetDefault("WATCH_PAGE_SIZE", 500)

	v.SetDefault("FUEL_SECRET", "dev_fuel_secret")
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
