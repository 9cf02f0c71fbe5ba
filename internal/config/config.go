// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, rate limiting, observability, and the credentials/endpoints for
// the generative API and the key-value store. Everything is read once at
// startup and injected into constructors; no package below main reads the
// environment on its own.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/growthlens/go-growth-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// XAIConfig defines settings for the generative API client.
type XAIConfig struct {
	APIKey      string        // XAI_API_KEY (empty is valid; the client raises a config error per request)
	BaseURL     string        // XAI_BASE_URL, no trailing slash
	Model       string        // XAI_MODEL
	RealtimeURL string        // REALTIME_API_URL; empty disables the realtime strategy
	Timeout     time.Duration // XAI_TIMEOUT, per HTTP call
	MaxAttempts int           // XAI_MAX_ATTEMPTS, agent-loop bound
}

// KVConfig defines settings for the key-value store. The store is
// considered configured only when both URL and Token are present; otherwise
// the cache degrades to always-miss and the usage limiter to open access.
type KVConfig struct {
	URL   string // KV_REST_API_URL / REDIS_URL
	Token string // KV_REST_API_TOKEN / REDIS_TOKEN
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // generous: report generation can take minutes
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	XAI          XAIConfig
	KV           KVConfig
	DailyLimit   int           // free reports per IP per UTC day
	ReportTTL    time.Duration // report retention window
	RecentMax    int           // recently-analyzed feed cap

	// Edge rate limiting (token bucket, independent of the daily quota)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// KVConfigured reports whether both key-value store settings are present.
func (c Config) KVConfigured() bool {
	return strings.TrimSpace(c.KV.URL) != "" && strings.TrimSpace(c.KV.Token) != ""
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 150*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		XAI: XAIConfig{
			APIKey:      getenv("XAI_API_KEY", ""),
			BaseURL:     strings.TrimRight(getenv("XAI_BASE_URL", "https://api.x.ai/v1"), "/"),
			Model:       getenv("XAI_MODEL", "grok-4-1-fast-reasoning"),
			RealtimeURL: strings.TrimRight(getenv("REALTIME_API_URL", ""), "/"),
			Timeout:     getdur("XAI_TIMEOUT", 120*time.Second),
			MaxAttempts: getint("XAI_MAX_ATTEMPTS", 10),
		},
		KV: KVConfig{
			URL:   firstEnv("KV_REST_API_URL", "REDIS_URL"),
			Token: firstEnv("KV_REST_API_TOKEN", "REDIS_TOKEN"),
		},
		DailyLimit: getint("DAILY_LIMIT", 5),
		ReportTTL:  getdur("REPORT_TTL", 90*24*time.Hour),
		RecentMax:  getint("RECENT_MAX", 20),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-growth-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.XAI.Timeout <= 0 {
		return cfg, errors.New("XAI_TIMEOUT must be > 0")
	}
	if cfg.XAI.MaxAttempts < 1 {
		return cfg, errors.New("XAI_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.DailyLimit < 1 {
		return cfg, errors.New("DAILY_LIMIT must be >= 1")
	}
	if cfg.ReportTTL <= 0 {
		return cfg, errors.New("REPORT_TTL must be > 0")
	}
	if cfg.RecentMax < 1 {
		return cfg, errors.New("RECENT_MAX must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// firstEnv returns the first non-empty value among the given variables.
// Used for settings with a legacy alias.
func firstEnv(keys ...string) string {
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, os.Getenv(k))
	}
	return sysutil.FirstNonEmpty(vals...)
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
