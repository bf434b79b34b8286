package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"crm-sync/internal/constants"

	"github.com/joho/godotenv"
)

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	URL string
}

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL string
}

// FeedConfig хранит конфигурацию фида CRM
type FeedConfig struct {
	DayURL string // инкрементальный фид (updates=day)
	AllURL string // полный фид (updates=all)
	Format string // "json" или "xml"
}

// SchedulerConfig хранит настройки планировщика
type SchedulerConfig struct {
	SyncIntervalSeconds int // период инкрементальной синхронизации
	FullSyncHour        int // час суток (0-23) для единственной полной синхронизации
}

// TranslateConfig хранит настройки фонового перевода
type TranslateConfig struct {
	PollSeconds int // период опроса буфера ожидающих переводов
	TargetLang  string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	Database    DBconfig
	RabbitMQ    RabbitMQConfig
	Feed        FeedConfig
	Scheduler   SchedulerConfig
	Translate   TranslateConfig
	NbuRatesURL string
	HTTPAddr    string
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		// .env опционален: в контейнере все приходит из окружения.
		log.Printf("Info: Could not load .env file (path: %v): %v.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
	}

	cfg.Feed.DayURL = getEnvAsString("CRM_FEED_DAY_URL", constants.DefaultFeedDayURL)
	cfg.Feed.AllURL = getEnvAsString("CRM_FEED_ALL_URL", constants.DefaultFeedAllURL)
	cfg.Feed.Format = getEnvAsString("CRM_FEED_FORMAT", "json")
	if cfg.Feed.Format != "json" && cfg.Feed.Format != "xml" {
		return nil, fmt.Errorf("CRM_FEED_FORMAT must be 'json' or 'xml', got %q", cfg.Feed.Format)
	}

	cfg.Scheduler.SyncIntervalSeconds = getEnvAsInt("SYNC_INTERVAL_SECONDS", 60)
	cfg.Scheduler.FullSyncHour = getEnvAsInt("FULL_SYNC_HOUR", 3)
	if cfg.Scheduler.FullSyncHour < 0 || cfg.Scheduler.FullSyncHour > 23 {
		return nil, fmt.Errorf("FULL_SYNC_HOUR must be within 0-23, got %d", cfg.Scheduler.FullSyncHour)
	}

	cfg.Translate.PollSeconds = getEnvAsInt("TRANSLATE_POLL_SECONDS", 5)
	cfg.Translate.TargetLang = getEnvAsString("TRANSLATE_TARGET_LANG", "en")

	cfg.NbuRatesURL = getEnvAsString("NBU_RATES_URL", constants.DefaultNbuRatesURL)
	cfg.HTTPAddr = getEnvAsString("HTTP_ADDR", ":3000")

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}
