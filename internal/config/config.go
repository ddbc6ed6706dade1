// Пакет config — загрузка и валидация конфигурации Registration Gateway
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Профили ингестии.
const (
	// ProfileBasic — исходный профиль: datetime или start_datetime,
	// только обычные файлы в качестве локальных ассетов.
	ProfileBasic = "basic"
	// ProfileExtended — расширенный профиль: обязательные start/end datetime,
	// канонизация дат, роли ассетов, file:size, директории-ассеты.
	ProfileExtended = "extended"
)

// Config содержит все параметры конфигурации Registration Gateway.
type Config struct {
	// Порт HTTP-сервера (диапазон 8020-8029)
	Port int
	// Профиль ингестии (basic, extended)
	Profile string
	// URI расширения STAC, обязательного в extended-профиле
	RequiredExtension string

	// --- PostgreSQL (Identity/Policy Store) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Пользователь PostgreSQL
	DBUser string
	// Пароль PostgreSQL
	DBPassword string
	// Имя базы данных
	DBName string
	// Режим SSL (disable, require, verify-full)
	DBSSLMode string

	// --- Каталог ---

	// Таймаут HTTP-запросов к каталогу
	CatalogueTimeout time.Duration
	// Путь к CA-сертификату для TLS каталога (опционально)
	CatalogueCACert string
	// URL health endpoint каталога для dephealth (опционально)
	CatalogueHealthURL string

	// --- Кэш grants ---

	// Максимальное количество записей в LRU-кэше grants
	GrantCacheSize int
	// TTL записи кэша grants
	GrantCacheTTL time.Duration

	// --- Аутентификация ---

	// URL JWKS endpoint для Bearer-аутентификации (пусто — только Basic)
	JWKSUrl string
	// Путь к CA-сертификату для JWKS endpoint (опционально)
	JWKSCACert string
	// Ожидаемый issuer JWT (пусто — не проверяется)
	JWTIssuer string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- TLS / сервер ---

	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Логирование ---

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Dephealth ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// RG_PORT — порт HTTP-сервера (по умолчанию 8020)
	port, err := getEnvInt("RG_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("RG_PORT: %w", err)
	}
	if port < 8020 || port > 8029 {
		return nil, fmt.Errorf("RG_PORT: значение %d вне допустимого диапазона 8020-8029", port)
	}
	cfg.Port = port

	// RG_PROFILE — профиль ингестии (по умолчанию basic)
	cfg.Profile = getEnvDefault("RG_PROFILE", ProfileBasic)
	if cfg.Profile != ProfileBasic && cfg.Profile != ProfileExtended {
		return nil, fmt.Errorf("RG_PROFILE: недопустимое значение %q, допустимые: basic, extended", cfg.Profile)
	}

	// RG_REQUIRED_EXTENSION — URI обязательного расширения для extended-профиля.
	// По умолчанию file extension (определяет file:size).
	cfg.RequiredExtension = getEnvDefault("RG_REQUIRED_EXTENSION",
		"https://stac-extensions.github.io/file/v2.1.0/schema.json")

	// RG_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("RG_DB_HOST")
	if err != nil {
		return nil, err
	}

	// RG_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("RG_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RG_DB_PORT: %w", err)
	}

	// RG_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("RG_DB_USER")
	if err != nil {
		return nil, err
	}

	// RG_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("RG_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// RG_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("RG_DB_NAME")
	if err != nil {
		return nil, err
	}

	// RG_DB_SSLMODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("RG_DB_SSLMODE", "disable")

	// RG_CATALOGUE_TIMEOUT — таймаут запросов к каталогу (по умолчанию 30s)
	cfg.CatalogueTimeout, err = getEnvDuration("RG_CATALOGUE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_CATALOGUE_TIMEOUT: %w", err)
	}

	// RG_CATALOGUE_CA_CERT — CA-сертификат каталога (опционально)
	cfg.CatalogueCACert = getEnvDefault("RG_CATALOGUE_CA_CERT", "")

	// RG_CATALOGUE_HEALTH_URL — health endpoint каталога для dephealth (опционально)
	cfg.CatalogueHealthURL = getEnvDefault("RG_CATALOGUE_HEALTH_URL", "")

	// RG_GRANT_CACHE_SIZE — размер LRU-кэша grants (по умолчанию 1024)
	cfg.GrantCacheSize, err = getEnvInt("RG_GRANT_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("RG_GRANT_CACHE_SIZE: %w", err)
	}
	if cfg.GrantCacheSize <= 0 {
		return nil, fmt.Errorf("RG_GRANT_CACHE_SIZE: значение должно быть положительным")
	}

	// RG_GRANT_CACHE_TTL — TTL кэша grants (по умолчанию 5m)
	cfg.GrantCacheTTL, err = getEnvDuration("RG_GRANT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RG_GRANT_CACHE_TTL: %w", err)
	}

	// RG_JWKS_URL — JWKS endpoint для Bearer-аутентификации (опционально)
	cfg.JWKSUrl = getEnvDefault("RG_JWKS_URL", "")

	// RG_JWKS_CA_CERT — CA-сертификат JWKS endpoint (опционально)
	cfg.JWKSCACert = getEnvDefault("RG_JWKS_CA_CERT", "")

	// RG_JWT_ISSUER — ожидаемый issuer JWT (опционально)
	cfg.JWTIssuer = getEnvDefault("RG_JWT_ISSUER", "")

	// RG_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 5m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("RG_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RG_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// RG_JWT_LEEWAY — допустимое отклонение времени JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("RG_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_JWT_LEEWAY: %w", err)
	}

	// RG_TLS_CERT / RG_TLS_KEY — TLS сервера (опционально, но только парой)
	cfg.TLSCert = getEnvDefault("RG_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("RG_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("RG_TLS_CERT и RG_TLS_KEY должны задаваться вместе")
	}

	// RG_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("RG_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_SHUTDOWN_TIMEOUT: %w", err)
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("RG_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("RG_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("RG_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// RG_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RG_LOG_LEVEL: %w", err)
	}

	// RG_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// RG_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("RG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// RG_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "registration-gateway")
	cfg.DephealthGroup = getEnvDefault("RG_DEPHEALTH_GROUP", "registration-gateway")

	return cfg, nil
}

// Extended сообщает, действует ли расширенный профиль ингестии.
func (c *Config) Extended() bool {
	return c.Profile == ProfileExtended
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
