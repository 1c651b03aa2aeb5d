package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Token TTL policy window. The bounds are enforced once at configuration-load
// time; no per-call validation happens anywhere else.
const (
	minAccessTTL  = 1 * time.Minute
	maxAccessTTL  = 30 * time.Minute
	minRefreshTTL = 12 * time.Hour
	maxRefreshTTL = 7 * 24 * time.Hour
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Admin fields are optional; when AdminUsername is empty
// no admin account is bootstrapped at startup.
type Config struct {
	Env        string        // application environment (e.g. "dev", "prod")
	Port       string        // HTTP port to listen on
	DBUser     string        // database username
	DBPass     string        // database password (optional)
	DBHost     string        // database host address
	DBPort     string        // database port number
	DBName     string        // database name
	JWTSecret  string        // shared secret for HMAC token signing
	AccessTTL  time.Duration // access token time-to-live
	RefreshTTL time.Duration // refresh token time-to-live
	BcryptCost int           // bcrypt cost for password hashing

	AdminUsername string // bootstrap admin login (optional)
	AdminPassword string // bootstrap admin password
	AdminName     string // bootstrap admin display name
}

// Load reads configuration from environment variables and returns a Config.
// Required variables are enforced by must() and missing or out-of-policy
// values cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  time.Duration(mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTTL: time.Duration(mustInt("REFRESH_TOKEN_TTL_HOURS")) * time.Hour,
		BcryptCost: mustInt("BCRYPT_COST"),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     os.Getenv("ADMIN_NAME"),
	}
	if err := validateTTLs(cfg.AccessTTL, cfg.RefreshTTL); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// validateTTLs checks the token lifetimes against the policy window: access
// tokens between 1 and 30 minutes, refresh tokens between 12 hours and 7 days.
func validateTTLs(access, refresh time.Duration) error {
	if access < minAccessTTL || access > maxAccessTTL {
		return fmt.Errorf("access token TTL %s outside allowed range [%s, %s]", access, minAccessTTL, maxAccessTTL)
	}
	if refresh < minRefreshTTL || refresh > maxRefreshTTL {
		return fmt.Errorf("refresh token TTL %s outside allowed range [%s, %s]", refresh, minRefreshTTL, maxRefreshTTL)
	}
	return nil
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
