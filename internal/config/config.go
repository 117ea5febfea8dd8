package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port string

	// Secrets
	JWTSecret            string
	InternalSharedSecret string

	// Limits
	MaxJSONBodyBytes int64
	MaxUploadBytes   int64
	MaxFetchBytes    int64
	MaxDecodeBytes   int64

	// Upstream fetch
	FetchTimeout  time.Duration
	FetchAttempts int
	FetchDelay    time.Duration

	// Concurrency
	MaxConcurrentRequests int64

	// Server timeouts
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Request timeouts
	ResolveTimeout time.Duration

	// rate limiting (per IP)
	RateLimitEvery time.Duration
	RateLimitBurst int

	// housekeeping
	CleanupInterval time.Duration
	BlobMaxAge      time.Duration

	// http
	MaxHeaderBytes int
}

// Defaults are the built-in values before environment or file overrides.
func Defaults() Config {
	return Config{
		Port: "8080",

		MaxJSONBodyBytes: 2 << 20,
		MaxUploadBytes:   50 << 20,
		MaxFetchBytes:    50 << 20,
		MaxDecodeBytes:   10 << 20,

		FetchTimeout:  25 * time.Second,
		FetchAttempts: 3,
		FetchDelay:    time.Second,

		MaxConcurrentRequests: 15,

		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,

		ResolveTimeout: 90 * time.Second,

		RateLimitEvery: 600 * time.Millisecond,
		RateLimitBurst: 20,

		CleanupInterval: 5 * time.Minute,
		BlobMaxAge:      30 * time.Minute,

		MaxHeaderBytes: 1 << 20,
	}
}

func Load() Config {
	d := Defaults()
	return Config{
		Port: envStr("PORT", d.Port),

		JWTSecret:            envStr("JWT_SECRET", ""),
		InternalSharedSecret: envStr("INTERNAL_SHARED_SECRET", ""),

		MaxJSONBodyBytes: int64(envInt("MAX_JSON_BODY_BYTES", int(d.MaxJSONBodyBytes))),
		MaxUploadBytes:   int64(envInt("MAX_UPLOAD_BYTES", int(d.MaxUploadBytes))),
		MaxFetchBytes:    int64(envInt("MAX_FETCH_BYTES", int(d.MaxFetchBytes))),
		MaxDecodeBytes:   int64(envInt("MAX_DECODE_BYTES", int(d.MaxDecodeBytes))),

		FetchTimeout:  envDur("FETCH_TIMEOUT", d.FetchTimeout),
		FetchAttempts: envInt("FETCH_ATTEMPTS", d.FetchAttempts),
		FetchDelay:    envDur("FETCH_DELAY", d.FetchDelay),

		MaxConcurrentRequests: int64(envInt("MAX_CONCURRENT_REQUESTS", int(d.MaxConcurrentRequests))),

		ReadHeaderTimeout: envDur("READ_HEADER_TIMEOUT", d.ReadHeaderTimeout),
		ReadTimeout:       envDur("READ_TIMEOUT", d.ReadTimeout),
		WriteTimeout:      envDur("WRITE_TIMEOUT", d.WriteTimeout),
		IdleTimeout:       envDur("IDLE_TIMEOUT", d.IdleTimeout),

		ResolveTimeout: envDur("RESOLVE_TIMEOUT", d.ResolveTimeout),

		RateLimitEvery: envDur("RATE_LIMIT_EVERY", d.RateLimitEvery),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", d.RateLimitBurst),

		CleanupInterval: envDur("CLEANUP_INTERVAL", d.CleanupInterval),
		BlobMaxAge:      envDur("BLOB_MAX_AGE", d.BlobMaxAge),

		MaxHeaderBytes: envInt("MAX_HEADER_BYTES", d.MaxHeaderBytes),
	}
}

func (c Config) Validate() error {
	if len(strings.TrimSpace(c.JWTSecret)) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.MaxDecodeBytes > c.MaxFetchBytes {
		return fmt.Errorf("MAX_DECODE_BYTES (%d) must not exceed MAX_FETCH_BYTES (%d)", c.MaxDecodeBytes, c.MaxFetchBytes)
	}
	return nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
