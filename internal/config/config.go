package config

import (
	"os"
	"strconv"
	"time"
)

type SyncServiceConfig struct {
	Port         string
	InslyCfg     InslyConfig
	PipedriveCfg PipedriveConfig
	SyncCfg      SyncConfig
	CallerCfg    CallerConfig
	RedisCfg     RedisConfig
	RabbitMQCfg  RabbitMQConfig
	SheetsCfg    SheetsConfig
}

type InslyConfig struct {
	BaseURL string
	Token   string
}

type PipedriveConfig struct {
	BaseURLV1 string
	BaseURLV2 string
	Token     string
	OwnerID   int64
	WonStage  int64
}

// SyncConfig holds the classification window and the orchestrator retry
// discipline. The lookback epoch and 21-day lookahead are business constants
// observed in production, kept configurable on purpose.
type SyncConfig struct {
	LookbackDate        time.Time
	LookaheadDays       int
	InterCustomerDelay  time.Duration
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
	MaxCustomerAttempts int
	ValidationBudget    int
	StartFrom           int
	AutoCloseFilterID   int
	NoSellerFilterID    int
}

type CallerConfig struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	TransportRetries int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type SheetsConfig struct {
	KeyfilePath   string
	SpreadsheetID string
}

func New() *SyncServiceConfig {
	return &SyncServiceConfig{
		Port: getEnvOrDefault("PORT", "8086"),
		InslyCfg: InslyConfig{
			BaseURL: getEnvOrDefault("INSLY_BASE_URL", "https://vingo-api.insly.com/api"),
			Token:   getEnvOrDefault("INSLY_BEARER_TOKEN", ""),
		},
		PipedriveCfg: PipedriveConfig{
			BaseURLV1: getEnvOrDefault("PIPEDRIVE_BASE_URL_V1", "https://api.pipedrive.com/v1"),
			BaseURLV2: getEnvOrDefault("PIPEDRIVE_BASE_URL_V2", "https://api.pipedrive.com/api/v2"),
			Token:     getEnvOrDefault("PIPEDRIVE_TOKEN", ""),
			OwnerID:   getEnvInt64("PIPEDRIVE_OWNER_ID", 22609901),
			WonStage:  getEnvInt64("PIPEDRIVE_WON_STAGE_ID", 5),
		},
		SyncCfg: SyncConfig{
			LookbackDate:        getEnvDate("SYNC_LOOKBACK_DATE", time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)),
			LookaheadDays:       getEnvInt("SYNC_LOOKAHEAD_DAYS", 21),
			InterCustomerDelay:  getEnvDuration("SYNC_INTER_CUSTOMER_DELAY", time.Second),
			RetryBaseDelay:      getEnvDuration("SYNC_RETRY_BASE_DELAY", 5*time.Second),
			RetryMaxDelay:       getEnvDuration("SYNC_RETRY_MAX_DELAY", 60*time.Second),
			MaxCustomerAttempts: getEnvInt("SYNC_MAX_CUSTOMER_ATTEMPTS", 8),
			ValidationBudget:    getEnvInt("SYNC_VALIDATION_RETRY_BUDGET", 2),
			StartFrom:           getEnvInt("SYNC_START_FROM", 1),
			AutoCloseFilterID:   getEnvInt("SYNC_AUTO_CLOSE_FILTER_ID", 107),
			NoSellerFilterID:    getEnvInt("SYNC_NO_SELLER_FILTER_ID", 74),
		},
		CallerCfg: CallerConfig{
			MaxAttempts:      getEnvInt("CALLER_MAX_ATTEMPTS", 10),
			BaseDelay:        getEnvDuration("CALLER_BASE_DELAY", 5*time.Second),
			MaxDelay:         getEnvDuration("CALLER_MAX_DELAY", 5*time.Minute),
			TransportRetries: getEnvInt("CALLER_TRANSPORT_RETRIES", 3),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", ""),
			Password: getEnvOrDefault("RABBITMQ_PWD", ""),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		SheetsCfg: SheetsConfig{
			KeyfilePath:   getEnvOrDefault("KEYFILE_PATH", ""),
			SpreadsheetID: getEnvOrDefault("SPREADSHEET_ID", ""),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDate(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
	}
	return defaultValue
}
