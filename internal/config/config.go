package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	SQLitePath  string
	LogLevel    string

	HostedVerifierBaseURL    string
	HostedVerifierTimeoutSec int
	HostedVerifierMaxRetries int

	YtDlpBin           string
	DownloadTempDir    string
	DownloadTimeoutSec int
	DownloadMaxBytes   int64

	C2PAToolBin        string
	C2PAToolTimeoutSec int

	FFProbeBin        string
	FFProbeTimeoutSec int

	SigningKeyPath string

	MockMode bool

	StatusTTLSec int

	RateLimitRequests      int
	RateLimitWindowSeconds int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		SQLitePath:               envDefault("SQLITE_PATH", "trustmark.db"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		HostedVerifierBaseURL:    os.Getenv("HOSTED_VERIFIER_BASE_URL"),
		HostedVerifierTimeoutSec: envIntDefault("HOSTED_VERIFIER_TIMEOUT_SECONDS", 15),
		HostedVerifierMaxRetries: envIntDefault("HOSTED_VERIFIER_MAX_RETRIES", 2),
		YtDlpBin:                 envDefault("YTDLP_BIN", "yt-dlp"),
		DownloadTempDir:          envDefault("DOWNLOAD_TEMP_DIR", os.TempDir()),
		DownloadTimeoutSec:       envIntDefault("DOWNLOAD_TIMEOUT_SECONDS", 300),
		DownloadMaxBytes:         envInt64Default("DOWNLOAD_MAX_BYTES", 500_000_000),
		C2PAToolBin:              envDefault("C2PATOOL_BIN", "c2patool"),
		C2PAToolTimeoutSec:       envIntDefault("C2PATOOL_TIMEOUT_SECONDS", 60),
		FFProbeBin:               envDefault("FFPROBE_BIN", "ffprobe"),
		FFProbeTimeoutSec:        envIntDefault("FFPROBE_TIMEOUT_SECONDS", 30),
		SigningKeyPath:           envDefault("SIGNING_KEY_PATH", "signing.key"),
		MockMode:                 envBoolDefault("MOCK_MODE", false),
		StatusTTLSec:             envIntDefault("STATUS_TTL_SECONDS", 3600),
		RateLimitRequests:        envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:   envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) HostedVerifierTimeout() time.Duration {
	return time.Duration(c.HostedVerifierTimeoutSec) * time.Second
}

func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

func (c Config) C2PAToolTimeout() time.Duration {
	return time.Duration(c.C2PAToolTimeoutSec) * time.Second
}

func (c Config) FFProbeTimeout() time.Duration {
	return time.Duration(c.FFProbeTimeoutSec) * time.Second
}

func (c Config) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLSec) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envInt64Default(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
