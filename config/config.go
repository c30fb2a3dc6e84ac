package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// placeholder signing key for local development only
const devJWTSecret = "dev-only-jwt-secret"

type Config struct {
	AppEnv             string
	AppPort            string
	AllowedOrigins     string
	DBDriver           string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	DBSQLitePath       string
	DBMaxIdleConns     int
	DBMaxOpenConns     int
	JWTSecret          string
	JWTExpirationHours int
	UploadDir          string
	MaxUploadSizeBytes int64
	NATSURL            string
	LoginRatePerMinute int
	LoginRateBurst     int
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

type loader struct {
	logger *zap.Logger
}

func (l loader) getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	l.logger.Debug("env not set, using default", zap.String("key", key), zap.String("default", defaultValue))
	return defaultValue
}

func (l loader) getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		l.logger.Warn("invalid integer env value, using default", zap.String("key", key), zap.Int("default", defaultValue))
	}
	return defaultValue
}

func (l loader) getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		l.logger.Warn("invalid integer env value, using default", zap.String("key", key), zap.Int64("default", defaultValue))
	}
	return defaultValue
}

// getSecret never logs the value. Outside production an unset key falls back
// to devDefault; in production it stays empty.
func (l loader) getSecret(key, devDefault string, production bool) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if production {
		return ""
	}
	l.logger.Warn("secret not set, using development placeholder", zap.String("key", key))
	return devDefault
}

// LoadEnvFile applies a .env file from the working directory, if present,
// without overriding variables already set.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Load reads configuration from the environment. A nil logger discards
// diagnostics.
func Load(logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := loader{logger: logger}

	appEnv := l.getEnv("APP_ENV", "development")

	return Config{
		AppEnv:             appEnv,
		AppPort:            l.getEnv("APP_PORT", "8080"),
		AllowedOrigins:     l.getEnv("ALLOWED_ORIGINS", "*"),
		DBDriver:           l.getEnv("DB_DRIVER", "postgres"),
		DBHost:             l.getEnv("DB_HOST", "localhost"),
		DBPort:             l.getEnv("DB_PORT", "5432"),
		DBUser:             l.getEnv("DB_USER", "taskmanager"),
		DBPassword:         l.getSecret("DB_PASSWORD", "taskmanager", false),
		DBName:             l.getEnv("DB_NAME", "taskmanager"),
		DBSQLitePath:       l.getEnv("DB_SQLITE_PATH", "taskmanager.db"),
		DBMaxIdleConns:     l.getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:     l.getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		JWTSecret:          l.getSecret("JWT_SECRET", devJWTSecret, appEnv == "production"),
		JWTExpirationHours: l.getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		UploadDir:          l.getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSizeBytes: l.getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 10<<20),
		NATSURL:            l.getEnv("NATS_URL", ""),
		LoginRatePerMinute: l.getEnvAsInt("LOGIN_RATE_PER_MINUTE", 20),
		LoginRateBurst:     l.getEnvAsInt("LOGIN_RATE_BURST", 5),
	}
}
