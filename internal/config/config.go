package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is everything the server reads from the environment.
type AppConfig struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
	AutoMigrate    bool

	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxLife    time.Duration
	DBConnectTimeout time.Duration

	// Static credential pair for the login gate. Either may be empty;
	// that is reported per request, not at startup.
	AuthEmail    string
	AuthPassword string

	ReportDateFallback bool
	LoginRatePerMinute int
	RatingsCacheTTL    time.Duration
}

// Load reads .env (if any) and the process environment.
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() *AppConfig {
	return &AppConfig{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Port:           getEnv("PORT", "5000"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		AutoMigrate:    getEnvAsBool("AUTO_MIGRATE", false),

		DBMaxOpenConns:   getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLife:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBConnectTimeout: getEnvAsDuration("DB_CONNECT_TIMEOUT", 30*time.Second),

		AuthEmail:    os.Getenv("EMAIL"),
		AuthPassword: os.Getenv("PASSWORD"),

		ReportDateFallback: getEnvAsBool("REPORT_DATE_FALLBACK", true),
		LoginRatePerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 30),
		RatingsCacheTTL:    getEnvAsDuration("RATINGS_CACHE_TTL", 5*time.Minute), // <= 0 disables the cache
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s %q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s %q, using default %t", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s %q, using default %s", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
