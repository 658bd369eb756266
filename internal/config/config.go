// Пакет config: загрузка и валидация конфигурации File Catalog
// из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды поискового индекса.
const (
	SearchBackendAzure  = "azure"
	SearchBackendRedis  = "redis"
	SearchBackendMemory = "memory"
	SearchBackendNone   = "none"
)

// Режимы формирования ссылок на скачивание.
const (
	LinkModePath = "path"
	LinkModeGCS  = "gcs"
)

// Config содержит все параметры конфигурации File Catalog.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула подключений
	DBMaxConns int

	// --- Поисковый индекс ---

	// Бэкенд индекса: azure, redis, memory, none
	SearchBackend string
	// Таймаут запросов к индексу при поиске
	IndexTimeout time.Duration
	// Таймаут синхронизации записи с индексом после коммита
	IndexSyncTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений с индексом (опционально)
	SearchCACertPath string

	// Azure AI Search
	AzureSearchEndpoint   string
	AzureSearchAPIKey     string
	AzureSearchIndex      string
	AzureSearchAPIVersion string
	// Набор синонимов, подключаемый к полнотекстовым полям (пусто: без синонимов)
	AzureSynonymMap string

	// RediSearch
	RedisAddrs    []string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisIndex    string
	RedisPrefix   string

	// --- Поиск ---

	// Размер страницы по умолчанию
	DefaultPageSize int
	// Максимальный размер страницы
	MaxPageSize int
	// Окно подсчёта скачиваний (0: за всё время)
	DownloadCountWindow time.Duration

	// --- Кэш ---

	CacheMaxSize int
	CacheTTL     time.Duration

	// --- Ссылки на скачивание ---

	// Режим: path (базовый URL + blob path) или gcs (подписанные URL)
	LinkMode        string
	LinkBaseURL     string
	GCSBucket       string
	GCSCredentials  string
	GCSSigningEmail string
	GCSPrivateKey   string
	GCSSignedURLTTL time.Duration

	// --- JWT (опционально: без JWKS URL аутентификация отключена) ---

	JWTJWKSURL string
	JWTIssuer  string
	// CA-сертификат для HTTPS-запросов к JWKS (опционально)
	JWTCACertPath       string
	JWTLeeway           time.Duration
	JWKSRefreshInterval time.Duration
	JWKSClientTimeout   time.Duration
	// Группы, дающие роль admin (через запятую)
	RoleAdminGroups []string

	// --- Topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Реконсиляция индекса ---

	// Cron-расписание полной сверки индекса (пусто: выключено)
	ReindexSchedule string
	// Размер страницы при обходе реестра
	ReindexPageSize int

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Перед чтением переменных подгружается файл .env из рабочего каталога,
// если он существует. Уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FC_PORT: порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FC_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// FC_LOG_LEVEL: уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FC_LOG_LEVEL: %w", err)
	}

	// FC_LOG_FORMAT: формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FC_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FC_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FC_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FC_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("FC_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("FC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FC_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("FC_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("FC_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("FC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("FC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("FC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	cfg.DBMaxConns, err = getEnvInt("FC_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("FC_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("FC_DB_MAX_CONNS: значение должно быть >= 1, получено %d", cfg.DBMaxConns)
	}

	// --- Поисковый индекс ---

	// FC_SEARCH_BACKEND: бэкенд индекса (по умолчанию azure)
	cfg.SearchBackend = strings.ToLower(getEnvDefault("FC_SEARCH_BACKEND", SearchBackendAzure))
	switch cfg.SearchBackend {
	case SearchBackendAzure, SearchBackendRedis, SearchBackendMemory, SearchBackendNone:
	default:
		return nil, fmt.Errorf("FC_SEARCH_BACKEND: недопустимое значение %q, допустимые: azure, redis, memory, none", cfg.SearchBackend)
	}

	cfg.IndexTimeout, err = getEnvDurationFallback("FC_INDEX_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_INDEX_TIMEOUT: %w", err)
	}
	cfg.IndexSyncTimeout, err = getEnvDurationFallback("FC_INDEX_SYNC_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_INDEX_SYNC_TIMEOUT: %w", err)
	}
	cfg.SearchCACertPath = getEnvDefault("FC_SEARCH_CA_CERT_PATH", "")

	// Пустые значения Azure допустимы: индекс считается не настроенным.
	cfg.AzureSearchEndpoint = strings.TrimRight(getEnvDefault("FC_AZURE_SEARCH_ENDPOINT", ""), "/")
	cfg.AzureSearchAPIKey = getEnvDefault("FC_AZURE_SEARCH_API_KEY", "")
	cfg.AzureSearchIndex = getEnvDefault("FC_AZURE_SEARCH_INDEX", "")
	cfg.AzureSearchAPIVersion = getEnvDefault("FC_AZURE_SEARCH_API_VERSION", "2024-07-01")
	cfg.AzureSynonymMap = getEnvDefault("FC_AZURE_SYNONYM_MAP", "")
	if cfg.AzureSearchEndpoint != "" {
		if _, err := url.ParseRequestURI(cfg.AzureSearchEndpoint); err != nil {
			return nil, fmt.Errorf("FC_AZURE_SEARCH_ENDPOINT: некорректный URL %q", cfg.AzureSearchEndpoint)
		}
	}

	cfg.RedisAddrs = parseCSV(getEnvDefault("FC_REDIS_ADDRS", ""))
	cfg.RedisUsername = getEnvDefault("FC_REDIS_USERNAME", "")
	cfg.RedisPassword = getEnvDefault("FC_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("FC_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FC_REDIS_DB: %w", err)
	}
	cfg.RedisIndex = getEnvDefault("FC_REDIS_INDEX", "idx:files")
	cfg.RedisPrefix = getEnvDefault("FC_REDIS_PREFIX", "file:")

	// --- Поиск ---

	cfg.DefaultPageSize, err = getEnvInt("FC_DEFAULT_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("FC_DEFAULT_PAGE_SIZE: %w", err)
	}
	cfg.MaxPageSize, err = getEnvInt("FC_MAX_PAGE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("FC_MAX_PAGE_SIZE: %w", err)
	}
	if cfg.DefaultPageSize < 1 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("FC_DEFAULT_PAGE_SIZE/FC_MAX_PAGE_SIZE: требуется 1 <= default (%d) <= max (%d)",
			cfg.DefaultPageSize, cfg.MaxPageSize)
	}
	cfg.DownloadCountWindow, err = getEnvDuration("FC_DOWNLOAD_COUNT_WINDOW", 0)
	if err != nil {
		return nil, fmt.Errorf("FC_DOWNLOAD_COUNT_WINDOW: %w", err)
	}
	if cfg.DownloadCountWindow < 0 {
		return nil, fmt.Errorf("FC_DOWNLOAD_COUNT_WINDOW: значение должно быть >= 0")
	}

	// --- Кэш ---

	cfg.CacheMaxSize, err = getEnvInt("FC_CACHE_MAX_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("FC_CACHE_MAX_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("FC_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FC_CACHE_TTL: %w", err)
	}

	// --- Ссылки на скачивание ---

	cfg.LinkMode = strings.ToLower(getEnvDefault("FC_LINK_MODE", LinkModePath))
	cfg.LinkBaseURL = strings.TrimRight(getEnvDefault("FC_LINK_BASE_URL", ""), "/")
	cfg.GCSBucket = getEnvDefault("FC_GCS_BUCKET", "")
	cfg.GCSCredentials = getEnvDefault("FC_GCS_CREDENTIALS_FILE", "")
	cfg.GCSSigningEmail = getEnvDefault("FC_GCS_SIGNING_EMAIL", "")
	// Ключ в переменной окружения обычно хранится с экранированными переводами строк.
	cfg.GCSPrivateKey = strings.ReplaceAll(getEnvDefault("FC_GCS_PRIVATE_KEY", ""), `\n`, "\n")
	cfg.GCSSignedURLTTL, err = getEnvDurationFallback("FC_GCS_SIGNED_URL_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FC_GCS_SIGNED_URL_TTL: %w", err)
	}
	switch cfg.LinkMode {
	case LinkModePath:
	case LinkModeGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("FC_GCS_BUCKET: обязателен при FC_LINK_MODE=gcs")
		}
		if (cfg.GCSSigningEmail == "") != (cfg.GCSPrivateKey == "") {
			return nil, fmt.Errorf("FC_GCS_SIGNING_EMAIL и FC_GCS_PRIVATE_KEY задаются только вместе")
		}
	default:
		return nil, fmt.Errorf("FC_LINK_MODE: недопустимое значение %q, допустимые: path, gcs", cfg.LinkMode)
	}

	// --- JWT ---

	cfg.JWTJWKSURL = getEnvDefault("FC_JWT_JWKS_URL", "")
	cfg.JWTIssuer = getEnvDefault("FC_JWT_ISSUER", "")
	cfg.JWTCACertPath = getEnvDefault("FC_JWT_CA_CERT_PATH", "")
	cfg.JWTLeeway, err = getEnvDuration("FC_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("FC_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FC_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDurationFallback("FC_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("FC_ROLE_ADMIN_GROUPS", "filecatalog-admins"))

	// --- Topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("FC_DEPHEALTH_GROUP", "filecatalog")
	cfg.DephealthCheckInterval, err = getEnvDuration("FC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Реконсиляция ---

	cfg.ReindexSchedule = getEnvDefault("FC_REINDEX_SCHEDULE", "")
	cfg.ReindexPageSize, err = getEnvInt("FC_REINDEX_PAGE_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("FC_REINDEX_PAGE_SIZE: %w", err)
	}
	if cfg.ReindexPageSize < 1 || cfg.ReindexPageSize > 10000 {
		return nil, fmt.Errorf("FC_REINDEX_PAGE_SIZE: значение %d вне допустимого диапазона 1-10000", cfg.ReindexPageSize)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("FC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// AuthEnabled сообщает, включена ли проверка JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTJWKSURL != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без учётных данных
// (для лейблов мониторинга зависимостей).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL подключения для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvDurationFallback возвращает time.Duration из переменной окружения.
// Если переменная не задана, используется fallbackVal.
// Если задана: парсится и валидируется (> 0).
func getEnvDurationFallback(key string, fallbackVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallbackVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
