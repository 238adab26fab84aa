package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const devSessionSecret = "dev-session-secret-change-me"

// Config holds everything the server reads from the environment.
type Config struct {
	Port                 string
	GinMode              string
	DatabasePath         string
	SessionSecret        string
	SessionCookieName    string
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	CookieSecure         bool
	PasswordAlgo         string
	BcryptCost           int
	RedisHost            string
	RedisPassword        string
	CORSOrigins          []string
}

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  No .env file found, falling back to system environment variables")
	} else {
		log.Println("✅ .env file loaded")
	}
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8000"),
		GinMode:           getEnv("GIN_MODE", gin.DebugMode),
		DatabasePath:      getEnv("DATABASE_PATH", "app.db"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session_id"),
		PasswordAlgo:      strings.ToLower(getEnv("PASSWORD_ALGO", "bcrypt")),
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
	}

	var err error
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionSweepInterval, err = getDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return Config{}, err
	}

	switch cfg.PasswordAlgo {
	case "bcrypt", "argon2id":
	default:
		return Config{}, fmt.Errorf("PASSWORD_ALGO must be bcrypt or argon2id, got %q", cfg.PasswordAlgo)
	}

	if cfg.SessionSecret == "" {
		if cfg.GinMode == gin.ReleaseMode {
			return Config{}, fmt.Errorf("SESSION_SECRET is required in %s mode", gin.ReleaseMode)
		}
		log.Println("⚠️ SESSION_SECRET missing, using the development secret")
		cfg.SessionSecret = devSessionSecret
	}

	return cfg, nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive duration", k, v)
	}
	return parsed, nil
}

func getInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return parsed, nil
}

func getBool(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return parsed, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
