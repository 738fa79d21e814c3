// Package config loads runtime configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the API server. Every field maps
// to a MEMBERHUB_* environment variable; an optional .env file is honored for
// local development.
type Config struct {
	HTTPAddr    string        // address the HTTP server binds to
	GRPCAddr    string        // optional gRPC health listener ("" disables)
	PGDSN       string        // PostgreSQL DSN ("" runs against in-memory stores)
	AuthSecret  string        // HS256 signing secret for access tokens
	InviteToken string        // shared access token gating sign-in/sign-up
	AMQPURL     string        // optional broker URL for system-event fan-out
	AccessTTL   time.Duration // access token lifetime
	RefreshTTL  time.Duration // refresh token lifetime
	RateBurst   int           // per-IP rate limit burst
	RatePerSec  int           // per-IP rate limit refill
}

// Load reads configuration, applying defaults where a variable is unset.
// Secrets have no defaults; callers decide whether their absence is fatal.
func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:    getenv("MEMBERHUB_HTTP_ADDR", ":8080"),
		GRPCAddr:    os.Getenv("MEMBERHUB_GRPC_ADDR"),
		PGDSN:       os.Getenv("MEMBERHUB_PG_DSN"),
		AuthSecret:  os.Getenv("MEMBERHUB_AUTH_SECRET"),
		InviteToken: os.Getenv("MEMBERHUB_ACCESS_TOKEN"),
		AMQPURL:     os.Getenv("MEMBERHUB_AMQP_URL"),
		AccessTTL:   getduration("MEMBERHUB_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:  getduration("MEMBERHUB_REFRESH_TTL", 14*24*time.Hour),
		RateBurst:   getint("MEMBERHUB_RATE_BURST", 20),
		RatePerSec:  getint("MEMBERHUB_RATE_PER_SEC", 10),
	}
}

// MustSecrets exits the process when the security-critical values are absent.
func (c Config) MustSecrets() Config {
	if c.AuthSecret == "" {
		log.Fatal("missing required env var: MEMBERHUB_AUTH_SECRET")
	}
	if c.InviteToken == "" {
		log.Fatal("missing required env var: MEMBERHUB_ACCESS_TOKEN")
	}
	return c
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, raw)
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, raw)
	}
	return d
}
