package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	SessionSecret     string
	SessionCookieName string
	SessionCookieKey  string
	SessionTTL        time.Duration
	SessionSecure     bool
	RedisURL          string

	// Local accounts
	BcryptCost int

	// Delegated identity providers
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	ProviderTimeout    time.Duration

	// Redirect targets after a provider callback
	FrontendURL        string
	FailureRedirectURL string

	// Server
	Port        string
	CORSOrigins string
	LogLevel    string
	LogRetain   time.Duration

	// Per-IP requests per minute on the credential endpoints
	AuthRateLimit int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	frontend := getEnv("FRONTEND_URL", "http://localhost:3000")

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "kiteboard"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "kb_session"),
		SessionCookieKey:  getEnv("SESSION_COOKIE_KEY", ""),
		SessionTTL:        parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionSecure:     parseBool(getEnv("SESSION_SECURE", "false")),
		RedisURL:          getEnv("REDIS_URL", ""),

		BcryptCost: parseInt(getEnv("BCRYPT_COST", "10"), 10),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:5000/auth/google/callback"),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", "http://localhost:5000/auth/github/callback"),
		ProviderTimeout:    parseDuration(getEnv("PROVIDER_TIMEOUT", "10s"), 10*time.Second),

		FrontendURL:        frontend,
		FailureRedirectURL: getEnv("FAILURE_REDIRECT_URL", frontend+"/login?error=auth_failed"),

		Port:        getEnv("PORT", "5000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000, http://localhost:3001"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogRetain:   parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// GoogleEnabled reports whether Google sign-in has client credentials.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GitHubEnabled reports whether GitHub sign-in has client credentials.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
