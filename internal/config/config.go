package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config - глобальная конфигурация бота
type Config struct {
	Env         string // "local", "prod"
	BotToken    string
	PostgresDSN string

	// Зеркало подписок в GitHub Gist (необязательно, без него бот работает)
	GithubToken string
	GistID      string

	Monitor MonitorConfig
	Stream  StreamConfig

	HTTPTimeout time.Duration
}

// MonitorConfig - параметры движка мониторинга цен
type MonitorConfig struct {
	CheckInterval time.Duration // период цикла проверки
	StartupDelay  time.Duration // задержка первой проверки после запуска
	CacheTTL      time.Duration // окно свежести цены в кэше
	RateLimit     int           // бюджет вызовов CoinGecko на окно
	RateWindow    time.Duration // длина окна бюджета
}

// StreamConfig - живой поток цен Binance, прогревающий кэш
type StreamConfig struct {
	Enabled bool
}

// LoadConfig загружает настройки из окружения (.env подхватывается
// через godotenv/autoload в main)
func LoadConfig() (*Config, error) {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return &Config{
		Env:         getEnv("ENV", "local"),
		BotToken:    token,
		PostgresDSN: dsn,
		GithubToken: os.Getenv("GITHUB_TOKEN"),
		GistID:      os.Getenv("GIST_ID"),
		Monitor: MonitorConfig{
			// Дефолты повторяют лимиты бесплатного API CoinGecko:
			// ~10 запросов в минуту, кэш цены живет 2 минуты
			CheckInterval: getEnvDuration("CHECK_INTERVAL", 30*time.Second),
			StartupDelay:  getEnvDuration("STARTUP_DELAY", time.Second),
			CacheTTL:      getEnvDuration("PRICE_CACHE_TTL", 120*time.Second),
			RateLimit:     getEnvInt("API_RATE_LIMIT", 10),
			RateWindow:    getEnvDuration("API_RATE_WINDOW", time.Minute),
		},
		Stream: StreamConfig{
			Enabled: getEnvBool("BINANCE_STREAM", false),
		},
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
