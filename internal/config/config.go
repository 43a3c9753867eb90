package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string // empty selects the SQLite fallback
	SQLitePath           string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// LocalTimezone resolves form date/time input server-side (CLI and
	// dispatch messages render in it too).
	LocalTimezone *time.Location

	TelegramBotToken string
	OpenRouterAPIKey string
	// PublicURL, when set, is where the Telegram webhook is registered.
	PublicURL string

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		SQLitePath:           getenv("SQLITE_PATH", "tonalli.db"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		TelegramBotToken:     getenv("TELEGRAM_BOT_TOKEN", ""),
		OpenRouterAPIKey:     getenv("OPENROUTER_API_KEY", ""),
		PublicURL:            strings.TrimRight(getenv("PUBLIC_URL", ""), "/"),
		RateLimitRPS:         getenvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       getenvInt("RATE_LIMIT_BURST", 20),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")

	tz := getenv("LOCAL_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("invalid LOCAL_TIMEZONE, using system local", "value", tz, "error", err)
		loc = time.Local
	}
	cfg.LocalTimezone = loc

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("unparseable int env, using default", "key", key, "value", v)
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("unparseable float env, using default", "key", key, "value", v)
		return def
	}
	return f
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
