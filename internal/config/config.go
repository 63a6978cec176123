package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session credential (JWT) settings.
	JWTSecret      string
	SessionTTLDays int
	CookieName     string

	// Lifetimes for the email-bound token flows.
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	// Outbound mail.
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string

	FrontendURL    string
	AllowedOrigins []string

	// Seeded admin account.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Observability.
	OTLPEndpoint   string
	TracingEnabled bool
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTLDays: getEnvInt("JWT_COOKIE_EXPIRE", 7),
		CookieName:     getEnv("SESSION_COOKIE_NAME", "token"),

		VerificationTTL: time.Duration(getEnvInt("VERIFICATION_TOKEN_TTL_HOURS", 24)) * time.Hour,
		ResetTTL:        time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,

		SMTPHost:      getEnv("EMAIL_HOST", ""),
		SMTPPort:      getEnvInt("EMAIL_PORT", 587),
		SMTPUser:      getEnv("EMAIL_USER", ""),
		SMTPPassword:  getEnv("EMAIL_PASS", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@primeestates.dev"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Prime Estates"),

		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", getEnv("FRONTEND_URL", "http://localhost:5173"))),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		TracingEnabled: getEnv("TRACING_ENABLED", "") == "1",
	}
}

// SessionTTL converts the cookie-expiry day count into a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "primeestates")
	pass := getEnv("DB_PASSWORD", "primeestates")
	name := getEnv("DB_NAME", "primeestates")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
