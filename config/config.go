package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	Referral ReferralConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WebhookConfig struct {
	// Secret signs inbound platform webhooks (HMAC-SHA256). Empty disables
	// verification, for local development only.
	Secret string
}

type ReferralConfig struct {
	// SignupURL is where /r/:code redirects after recording the click.
	SignupURL string
	// OriginSalt keys the one-way origin hash on attribution clicks.
	OriginSalt string
	// LeaderboardTTL bounds staleness of cached leaderboard reads.
	LeaderboardTTL time.Duration
	// LeaderboardSize is the default top-N slice length.
	LeaderboardSize int
	// StatsTTL bounds staleness of cached member-stats reads. Ledger
	// commits invalidate the key early.
	StatsTTL time.Duration
}

// Load reads configuration from the environment. A .env file is honored
// when present so local runs do not need exported variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8080"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  getdur("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getdur("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "referly:referly@tcp(localhost:3306)/referly?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getint("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getint("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getdur("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			Secret: getenv("JWT_SECRET", "change-me-in-production"),
			Expiry: getdur("JWT_EXPIRY", 24*time.Hour),
			Issuer: getenv("JWT_ISSUER", "referly"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		Webhook: WebhookConfig{
			Secret: getenv("WEBHOOK_SECRET", ""),
		},
		Referral: ReferralConfig{
			SignupURL:       getenv("REFERRAL_SIGNUP_URL", "https://app.example.com/join"),
			OriginSalt:      getenv("ORIGIN_HASH_SALT", "change-me-origin-salt"),
			LeaderboardTTL:  getdur("LEADERBOARD_TTL", 5*time.Minute),
			LeaderboardSize: getint("LEADERBOARD_SIZE", 25),
			StatsTTL:        getdur("STATS_TTL", time.Minute),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getdur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
