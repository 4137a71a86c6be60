package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string // empty password selects peer authentication

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Telegram configuration
	Telegram TelegramConfig

	// API binding (dashboard reads live state from the database through this address)
	APIHost string
	APIPort int

	// Detection configuration
	Detection DetectionConfig

	// Engine configuration
	Engine EngineConfig

	// Watcher configuration
	Watcher WatcherConfig
}

// TelegramConfig holds Telegram bot credentials. Alerts are disabled
// when either field is empty.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// DetectionConfig holds spike detector parameters and thresholds
type DetectionConfig struct {
	MinSpikeRatio  float64
	LookbackHours  int // live mode candle lookback
	BatchHours     int // historical backfill slice size
	HistoryDays    int // historical backfill depth
	MarketCapFloor float64
}

// EngineConfig holds detection engine thresholds. Values here are
// environment-level defaults; rows in pump.detector_config override
// them at engine construction time.
type EngineConfig struct {
	MinSignalCount           int
	HighThreshold            float64
	MediumThreshold          float64
	CriticalWindowMinSignals int
	AnalysisIntervalMinutes  int
}

// WatcherConfig holds breakout watcher parameters
type WatcherConfig struct {
	SpotThreshold    float64
	FuturesThreshold float64
	CooldownHours    int
	IntervalMinutes  int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "crypto_data"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "elcrypto"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", ""),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// Telegram configuration
		Telegram: TelegramConfig{
			BotToken: getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvOrDefault("TELEGRAM_CHAT_ID", ""),
		},

		APIHost: getEnvOrDefault("API_HOST", "0.0.0.0"),
		APIPort: getEnvInt("API_PORT", 8080),

		// Detection configuration
		Detection: DetectionConfig{
			MinSpikeRatio:  getEnvFloat("DETECTOR_MIN_SPIKE_RATIO", 1.5),
			LookbackHours:  getEnvInt("DETECTOR_LOOKBACK_HOURS", 4),
			BatchHours:     getEnvInt("DETECTOR_BATCH_HOURS", 48),
			HistoryDays:    getEnvInt("DETECTOR_HISTORY_DAYS", 30),
			MarketCapFloor: getEnvFloat("DETECTOR_MARKET_CAP_FLOOR", 100_000_000),
		},

		// Engine configuration
		Engine: EngineConfig{
			MinSignalCount:           getEnvInt("ENGINE_MIN_SIGNAL_COUNT", 10),
			HighThreshold:            getEnvFloat("ENGINE_HIGH_THRESHOLD", 75.0),
			MediumThreshold:          getEnvFloat("ENGINE_MEDIUM_THRESHOLD", 50.0),
			CriticalWindowMinSignals: getEnvInt("ENGINE_CRITICAL_WINDOW_MIN", 4),
			AnalysisIntervalMinutes:  getEnvInt("ENGINE_ANALYSIS_INTERVAL", 30),
		},

		// Watcher configuration
		Watcher: WatcherConfig{
			SpotThreshold:    getEnvFloat("WATCHER_SPOT_THRESHOLD", 2.0),
			FuturesThreshold: getEnvFloat("WATCHER_FUTURES_THRESHOLD", 1.5),
			CooldownHours:    getEnvInt("WATCHER_COOLDOWN_HOURS", 6),
			IntervalMinutes:  getEnvInt("WATCHER_INTERVAL_MINUTES", 60),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
