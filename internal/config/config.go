package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv    string
	AppPort   string
	APIPrefix string
	ClientURL string
	PublicURL string
	Timezone  *time.Location

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret        string
	JWTExpiration    time.Duration
	JWTCookieExpires time.Duration
	BcryptCost       int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	RateLimitWindow      time.Duration
	RateLimitMax         int
	LoginRateLimitWindow time.Duration
	LoginRateLimitMax    int
	RedisURL             string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	// Try to load .env file but don't fail if it doesn't exist
	_ = godotenv.Load()

	jwtExpiration, err := getDuration("JWT_EXPIRATION", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cookieDays, err := getInt("JWT_COOKIE_EXPIRE_DAYS", 7)
	if err != nil {
		return nil, err
	}
	bcryptCost, err := getInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	window, err := getDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	maxRequests, err := getInt("RATE_LIMIT_MAX_REQUESTS", 100)
	if err != nil {
		return nil, err
	}
	loginWindow, err := getDuration("LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	loginMax, err := getInt("LOGIN_RATE_LIMIT_MAX_REQUESTS", 10)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", EnvDevelopment),
		AppPort:   getEnv("APP_PORT", "5000"),
		APIPrefix: getEnv("API_PREFIX", "/api/v1"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:3000"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:5000"),
		Timezone:  loc,

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "mindcare"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", "default-secret"),
		JWTExpiration:    jwtExpiration,
		JWTCookieExpires: time.Duration(cookieDays) * 24 * time.Hour,
		BcryptCost:       bcryptCost,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    getEnv("EMAIL_FROM", "noreply@mindcare.com"),

		RateLimitWindow:      window,
		RateLimitMax:         maxRequests,
		LoginRateLimitWindow: loginWindow,
		LoginRateLimitMax:    loginMax,
		RedisURL:             os.Getenv("REDIS_URL"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),
	}

	if cfg.IsProduction() && cfg.JWTSecret == "default-secret" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format, use a value like '24h': %w", key, err)
	}
	return d, nil
}
