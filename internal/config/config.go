package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	MySQLDSN    string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	UploadDir   string
	FrontendURL string
	ResetDB     bool

	Mail MailConfig
	Log  LogConfig

	LateFeePerDay decimal.Decimal
}

// MailConfig holds SMTP settings. An empty Host means mails are only logged.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
	Dev   bool
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/coinlecture?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:  getEnv("SQLITE_PATH", "coinlecture.db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		UploadDir:   getEnv("UPLOAD_DIR", "public/images/books"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		ResetDB:     os.Getenv("RESET_DB") == "true",
		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getEnvInt("MAIL_PORT", 587),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getEnv("MAIL_FROM", "noreply@lecoinlecture.com"),
		},
		Log:           logConfig(),
		LateFeePerDay: getEnvDecimal("LATE_FEE_PER_DAY", decimal.NewFromFloat(0.50)),
	}
}

// String returns a printable summary with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{port: %s, db: %s, redis: %s, uploads: %s, mail: %q, jwt: ***}",
		c.ServerPort, c.DBDriver, c.RedisAddr, c.UploadDir, c.Mail.Host)
}

func logConfig() LogConfig {
	dev := os.Getenv("LOG_DEV") == "1"
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		if dev {
			lvl = "debug"
		} else {
			lvl = "info"
		}
	}
	return LogConfig{Level: lvl, Dev: dev}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil && !parsed.IsNegative() {
			return parsed
		}
	}
	return def
}
