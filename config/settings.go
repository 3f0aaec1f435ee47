package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmdatafocus/distributor_backend/utils"
)

const (
	defaultPort              = "8080"
	defaultReferenceTimezone = "Asia/Phnom_Penh"
)

// Settings is the env-driven runtime configuration.
type Settings struct {
	Port string

	// ReferenceTimezone fixes the calendar used for every date computation.
	ReferenceTimezone   string
	MovingAveragePeriod int

	SheetAPIBaseURL   string
	SheetAPIKey       string
	SheetAPIKeyHeader string
	SheetAPITimeout   time.Duration

	SnapshotCacheEnabled bool
	SnapshotCacheTTL     time.Duration
	RedisAddress         string

	CorsAllowedOrigins []string
	Production         bool
	ReportSlowMs       int64
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// GetSettings reads the environment each call so tests can use t.Setenv.
func GetSettings() Settings {
	port := envString("API_PORT", "")
	if port == "" {
		port = envString("PORT", defaultPort)
	}
	return Settings{
		Port:                 port,
		ReferenceTimezone:    envString("REFERENCE_TIMEZONE", defaultReferenceTimezone),
		MovingAveragePeriod:  int(envInt("MOVING_AVERAGE_PERIOD", 3)),
		SheetAPIBaseURL:      strings.TrimRight(envString("SHEET_API_BASE_URL", ""), "/"),
		SheetAPIKey:          envString("SHEET_API_KEY", ""),
		SheetAPIKeyHeader:    envString("SHEET_API_KEY_HEADER", "X-API-Key"),
		SheetAPITimeout:      time.Duration(envInt("SHEET_API_TIMEOUT_SECONDS", 30)) * time.Second,
		SnapshotCacheEnabled: envBool("ENABLE_SNAPSHOT_CACHE"),
		SnapshotCacheTTL:     time.Duration(envInt("SNAPSHOT_CACHE_TTL_SECONDS", 120)) * time.Second,
		RedisAddress:         envString("REDIS_ADDRESS", ""),
		CorsAllowedOrigins:   utils.SplitAndTrim(envString("CORS_ALLOWED_ORIGINS", "")),
		Production:           strings.EqualFold(envString("GO_ENV", ""), "production"),
		ReportSlowMs:         envInt("REPORT_SLOW_MS", 500),
	}
}

func envString(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt ignores non-positive and unparseable values.
func envInt(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}
