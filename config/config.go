package config

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/models"
)

// Store drivers selectable with STORE_DRIVER
const (
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	StoreDriver   string
	RedisAddr     string
	RedisPassword string
	PostgresDSN   string

	JWTSecret   string
	OpenAIKey   string
	OpenAIModel string

	SyncDelay      time.Duration
	RequestTimeout time.Duration

	BackupCron    string
	EODReportCron string
	SendGridKey   string
	ReportFrom    string
	ReportTo      string
}

// New sets up all config related services
func New() *Config {
	env := os.Getenv("ENV")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	conf := &Config{
		URL:            os.Getenv("DB_URI"),
		DatabaseName:   getEnv("DB_NAME", "eris"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           getEnv("PORT", "8080"),
		Env:            env,
		StoreDriver:    os.Getenv("STORE_DRIVER"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SyncDelay:      getDuration("SYNC_DELAY", 2*time.Second),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		BackupCron:     getEnv("BACKUP_CRON", "@every 15m"),
		EODReportCron:  getEnv("EOD_REPORT_CRON", "0 23 * * *"),
		SendGridKey:    os.Getenv("SENDGRID_API_KEY"),
		ReportFrom:     getEnv("REPORT_EMAIL_FROM", "reports@pulsepoint.local"),
		ReportTo:       os.Getenv("REPORT_EMAIL_TO"),
	}
	if conf.StoreDriver == "" {
		conf.StoreDriver = StoreMemory
		if conf.URL != "" {
			conf.StoreDriver = StoreMongo
		}
	}
	if conf.JWTSecret == "" {
		zap.S().Warnw("JWT_SECRET not set, using an insecure development secret")
		conf.JWTSecret = "eris-development-secret"
	}
	return conf
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		zap.S().Warnw("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message, "status", httpStatusCode, "error", err)

	detail := ""
	if err != nil {
		detail = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: detail},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_, _ = w.Write(b)
}
