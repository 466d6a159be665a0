// Пакет config — загрузка и валидация конфигурации Work Records
// из переменных окружения (и опционального .env файла).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы хранилища записей.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config содержит все параметры конфигурации Work Records.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (по умолчанию 5000)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Хранилище записей ---

	// StoreDriver — postgres, mongo или memory
	StoreDriver string

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// --- Медиа ---

	// Учётные данные Cloudinary. Если не заданы — используется локальное хранилище.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	// Папка в Cloudinary (по умолчанию work_records)
	MediaFolder string
	// Директория локального хранилища изображений
	MediaDir string
	// Базовый URL сервиса для ссылок на локальные изображения
	PublicURL string
	// Максимальный размер одного файла в байтах (WR_MEDIA_MAX_FILE_SIZE, например "50MB")
	MediaMaxFileSize int64
	// Максимальное количество изображений в одном запросе
	MediaMaxFiles int
	// Максимальная ширина/высота изображения (пропорциональное уменьшение)
	MediaMaxDimension int
	// Таймаут одного обращения к медиа-хранилищу
	MediaTimeout time.Duration

	// --- JWT (опционально) ---

	// URL JWKS endpoint. Пустое значение — аутентификация отключена.
	AuthJWKSURL string
	// Ожидаемый issuer JWT (пустое — не проверяется)
	AuthIssuer string
	// Интервал обновления ключей JWKS
	AuthJWKSRefreshInterval time.Duration

	// --- CORS ---

	CORSAllowedOrigins []string

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
}

// LoadDotEnv загружает переменные из .env файла, если он существует.
// Уже заданные переменные окружения не перезаписываются.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("загрузка %s: %w", p, err)
		}
	}
	return nil
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:gocyclo,cyclop // линейная загрузка большого числа параметров
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("WR_PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("WR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("WR_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("WR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("WR_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("WR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("WR_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("WR_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("WR_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("WR_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("WR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Хранилище записей ---

	cfg.StoreDriver = strings.ToLower(getEnvDefault("WR_STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if err := loadPostgres(cfg); err != nil {
			return nil, err
		}
	case StoreDriverMongo:
		cfg.MongoURI, err = getEnvRequired("WR_MONGO_URI")
		if err != nil {
			return nil, err
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("WR_STORE_DRIVER: недопустимый драйвер %q, допустимые: postgres, mongo, memory", cfg.StoreDriver)
	}
	cfg.MongoDatabase = getEnvDefault("WR_MONGO_DATABASE", "workrecords")
	cfg.MongoCollection = getEnvDefault("WR_MONGO_COLLECTION", "workrecords")

	// --- Медиа ---

	cfg.CloudinaryCloudName = os.Getenv("WR_CLOUDINARY_CLOUD_NAME")
	cfg.CloudinaryAPIKey = os.Getenv("WR_CLOUDINARY_API_KEY")
	cfg.CloudinaryAPISecret = os.Getenv("WR_CLOUDINARY_API_SECRET")
	cfg.MediaFolder = getEnvDefault("WR_MEDIA_FOLDER", "work_records")
	cfg.MediaDir = getEnvDefault("WR_MEDIA_DIR", "./data/media")

	cfg.PublicURL = strings.TrimRight(getEnvDefault("WR_PUBLIC_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	if u, perr := url.Parse(cfg.PublicURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("WR_PUBLIC_URL: некорректный URL %q", cfg.PublicURL)
	}

	cfg.MediaMaxFileSize, err = getEnvSize("WR_MEDIA_MAX_FILE_SIZE", 50*units.MB)
	if err != nil {
		return nil, fmt.Errorf("WR_MEDIA_MAX_FILE_SIZE: %w", err)
	}

	cfg.MediaMaxFiles, err = getEnvInt("WR_MEDIA_MAX_FILES", 10)
	if err != nil {
		return nil, fmt.Errorf("WR_MEDIA_MAX_FILES: %w", err)
	}
	if cfg.MediaMaxFiles < 1 {
		return nil, errors.New("WR_MEDIA_MAX_FILES: значение должно быть >= 1")
	}

	cfg.MediaMaxDimension, err = getEnvInt("WR_MEDIA_MAX_DIMENSION", 1500)
	if err != nil {
		return nil, fmt.Errorf("WR_MEDIA_MAX_DIMENSION: %w", err)
	}
	if cfg.MediaMaxDimension < 1 {
		return nil, errors.New("WR_MEDIA_MAX_DIMENSION: значение должно быть >= 1")
	}

	cfg.MediaTimeout, err = getEnvDurationPositive("WR_MEDIA_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_MEDIA_TIMEOUT: %w", err)
	}

	// --- JWT ---

	cfg.AuthJWKSURL = os.Getenv("WR_AUTH_JWKS_URL")
	cfg.AuthIssuer = os.Getenv("WR_AUTH_ISSUER")
	cfg.AuthJWKSRefreshInterval, err = getEnvDurationPositive("WR_AUTH_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WR_AUTH_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- CORS ---

	cfg.CORSAllowedOrigins = splitList(getEnvDefault("WR_CORS_ALLOWED_ORIGINS", "*"))

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("WR_DEPHEALTH_GROUP", "workrecords")
	cfg.DephealthCheckInterval, err = getEnvDurationPositive("WR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// loadPostgres загружает параметры подключения к PostgreSQL.
func loadPostgres(cfg *Config) error {
	var err error
	if cfg.DBHost, err = getEnvRequired("WR_DB_HOST"); err != nil {
		return err
	}
	if cfg.DBPort, err = getEnvInt("WR_DB_PORT", 5432); err != nil {
		return fmt.Errorf("WR_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("WR_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = getEnvRequired("WR_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = getEnvRequired("WR_DB_PASSWORD"); err != nil {
		return err
	}
	cfg.DBSSLMode = getEnvDefault("WR_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("WR_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}
	return nil
}

// CloudinaryConfigured сообщает, заданы ли все учётные данные Cloudinary.
func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// AuthEnabled сообщает, включена ли JWT-аутентификация изменяющих запросов.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWKSURL != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате pgx.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и лейблов topologymetrics).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
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

// getEnvDurationPositive — как getEnvDuration, но значение должно быть > 0.
func getEnvDurationPositive(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("значение должно быть > 0")
	}
	return d, nil
}

// getEnvSize возвращает размер в байтах из человекочитаемой строки в SI (50MB, 1GB).
func getEnvSize(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := units.FromHumanSize(val)
	if err != nil {
		return 0, fmt.Errorf("некорректный размер: %q (примеры: 50MB, 500kB)", val)
	}
	if n <= 0 {
		return 0, errors.New("размер должен быть > 0")
	}
	return n, nil
}

// splitList разбирает список через запятую, отбрасывая пустые элементы.
func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
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
