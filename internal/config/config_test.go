package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "GIN_MODE",
		"LOG_LEVEL", "API_BASE_PATH",
		"XAI_API_KEY", "XAI_BASE_URL", "XAI_MODEL", "REALTIME_API_URL",
		"XAI_TIMEOUT", "XAI_MAX_ATTEMPTS",
		"KV_REST_API_URL", "KV_REST_API_TOKEN", "REDIS_URL", "REDIS_TOKEN",
		"DAILY_LIMIT", "REPORT_TTL", "RECENT_MAX",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS",
		"OTEL_ENABLED",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
	if cfg.XAI.BaseURL != "https://api.x.ai/v1" {
		t.Errorf("XAI.BaseURL = %q", cfg.XAI.BaseURL)
	}
	if cfg.XAI.Model != "grok-4-1-fast-reasoning" {
		t.Errorf("XAI.Model = %q", cfg.XAI.Model)
	}
	if cfg.XAI.Timeout != 120*time.Second {
		t.Errorf("XAI.Timeout = %v, want 120s", cfg.XAI.Timeout)
	}
	if cfg.XAI.MaxAttempts != 10 {
		t.Errorf("XAI.MaxAttempts = %d, want 10", cfg.XAI.MaxAttempts)
	}
	if cfg.DailyLimit != 5 {
		t.Errorf("DailyLimit = %d, want 5", cfg.DailyLimit)
	}
	if cfg.ReportTTL != 90*24*time.Hour {
		t.Errorf("ReportTTL = %v, want 2160h", cfg.ReportTTL)
	}
	if cfg.RecentMax != 20 {
		t.Errorf("RecentMax = %d, want 20", cfg.RecentMax)
	}
	if cfg.KVConfigured() {
		t.Error("KVConfigured() = true with no KV env set")
	}
	if cfg.OTEL.ServiceName != "go-growth-backend" {
		t.Errorf("OTEL.ServiceName = %q", cfg.OTEL.ServiceName)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "DEBUG")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("XAI_BASE_URL", "https://example.test/v1/")
	t.Setenv("REALTIME_API_URL", "http://realtime:8000/")
	t.Setenv("XAI_MAX_ATTEMPTS", "3")
	t.Setenv("DAILY_LIMIT", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test ,")
	t.Setenv("KV_REST_API_URL", "rediss://host:6379")
	t.Setenv("KV_REST_API_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q, want debug", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
	if cfg.XAI.BaseURL != "https://example.test/v1" {
		t.Errorf("XAI.BaseURL = %q, trailing slash not stripped", cfg.XAI.BaseURL)
	}
	if cfg.XAI.RealtimeURL != "http://realtime:8000" {
		t.Errorf("XAI.RealtimeURL = %q", cfg.XAI.RealtimeURL)
	}
	if cfg.XAI.MaxAttempts != 3 {
		t.Errorf("XAI.MaxAttempts = %d, want 3", cfg.XAI.MaxAttempts)
	}
	if cfg.DailyLimit != 2 {
		t.Errorf("DailyLimit = %d, want 2", cfg.DailyLimit)
	}
	want := []string{"https://a.test", "https://b.test"}
	if len(cfg.CORS.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORS.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.CORS.AllowedOrigins[i], want[i])
		}
	}
	if !cfg.KVConfigured() {
		t.Error("KVConfigured() = false with URL and token set")
	}
}

func TestLoad_LegacyKVAlias(t *testing.T) {
	t.Setenv("KV_REST_API_URL", "")
	t.Setenv("KV_REST_API_TOKEN", "")
	t.Setenv("REDIS_URL", "redis://legacy:6379")
	t.Setenv("REDIS_TOKEN", "legacy-tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.KV.URL != "redis://legacy:6379" {
		t.Errorf("KV.URL = %q", cfg.KV.URL)
	}
	if cfg.KV.Token != "legacy-tok" {
		t.Errorf("KV.Token = %q", cfg.KV.Token)
	}
}

func TestLoad_BoolFlagsAcceptTruthyAliases(t *testing.T) {
	cases := []struct {
		val  string
		want bool
	}{
		{"on", true},
		{" YES ", true},
		{"y", true},
		{"off", false},
		{"no", false},
		{"maybe", false}, // unrecognized keeps the default
	}
	for _, tc := range cases {
		t.Setenv("ENABLE_HSTS", tc.val)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() with ENABLE_HSTS=%q: %v", tc.val, err)
		}
		if cfg.Security.EnableHSTS != tc.want {
			t.Errorf("ENABLE_HSTS=%q -> %v, want %v", tc.val, cfg.Security.EnableHSTS, tc.want)
		}
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"zero attempts", "XAI_MAX_ATTEMPTS", "0", "XAI_MAX_ATTEMPTS"},
		{"zero daily limit", "DAILY_LIMIT", "0", "DAILY_LIMIT"},
		{"zero recent max", "RECENT_MAX", "0", "RECENT_MAX"},
		{"negative rps", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv(c.key, c.val)
			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err, c.want)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "shout")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad did not panic on invalid config")
		}
	}()
	MustLoad()
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
