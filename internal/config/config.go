package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Inbound channel
	WebhookSecret string // path segment guarding the webhook endpoint
	TelegramToken string // bot token for replies (optional, empty = replies disabled)
	ChannelFile   string // path to channels.yaml (optional, empty = accept all chats)

	// Metadata resolution
	ResolveTimeout time.Duration // hard budget for fetch+parse (default: 5s)

	// Versioned store
	StoreBackend string        // "github" | "memory"
	StoreTimeout time.Duration // per-call timeout for store reads/writes
	GitHubAPI    string        // base URL of the contents API
	GitHubToken  string        // token with contents write access
	GitHubOwner  string        // repository owner
	GitHubRepo   string        // repository name
	GitHubPath   string        // path of the log file inside the repo
	GitHubBranch string        // branch holding the log file

	// Sweep
	SweepInterval time.Duration // interval between retry-queue sweeps (default: 1h)
	AlertOnDrop   bool          // true => log permanently dropped entries at Error level

	// Redis (retry queue)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts []string // optional, restrict webhook access to specific Host headers
	AllowedCIDRS []string // optional, restrict operational endpoints to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Rate limiting (webhook)
	RateLimitBurst  int // token bucket burst per client IP
	RateLimitRefill int // tokens refilled per IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("STASH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("STASH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("STASH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("STASH_PRETTY_LOG", true),

		// Inbound channel
		WebhookSecret: requireEnv("STASH_WEBHOOK_SECRET"),
		TelegramToken: getenv("STASH_TELEGRAM_TOKEN", ""),
		ChannelFile:   getenv("STASH_CHANNEL_FILE", ""),

		// Metadata resolution
		ResolveTimeout: mustDuration("STASH_RESOLVE_TIMEOUT", 5*time.Second),

		// Versioned store
		StoreBackend: getenv("STASH_STORE_BACKEND", "github"),
		StoreTimeout: mustDuration("STASH_STORE_TIMEOUT", 10*time.Second),
		GitHubAPI:    getenv("STASH_GITHUB_API", "https://api.github.com"),
		GitHubToken:  getenv("STASH_GITHUB_TOKEN", ""),
		GitHubOwner:  getenv("STASH_GITHUB_OWNER", ""),
		GitHubRepo:   getenv("STASH_GITHUB_REPO", ""),
		GitHubPath:   getenv("STASH_GITHUB_PATH", "bookmarks.jsonl"),
		GitHubBranch: getenv("STASH_GITHUB_BRANCH", "main"),

		// Sweep
		SweepInterval: mustDuration("STASH_SWEEP_INTERVAL", time.Hour),
		AlertOnDrop:   mustBool("STASH_ALERT_ON_DROP", false),

		// Redis settings
		RedisAddr:             requireEnv("STASH_REDIS_ADDR"),
		RedisUser:             getenv("STASH_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("STASH_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("STASH_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("STASH_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("STASH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("STASH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("STASH_TRUST_PROXY", true),

		// Rate limiting
		RateLimitBurst:  getenvInt("STASH_RL_BURST", 20),
		RateLimitRefill: getenvInt("STASH_RL_REFILL_PER_MIN", 60),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: STASH_REDIS_PASSWORD is required when STASH_REDIS_PASSWORD_REQUIRED=true")
	}

	// Validate store backend configuration
	switch cfg.StoreBackend {
	case "memory":
		// nothing to validate, dev/test only
	case "github":
		if cfg.GitHubToken == "" || cfg.GitHubOwner == "" || cfg.GitHubRepo == "" {
			panic("❌ FATAL: STASH_GITHUB_TOKEN, STASH_GITHUB_OWNER and STASH_GITHUB_REPO are required when STASH_STORE_BACKEND=github")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown STASH_STORE_BACKEND %q (expected github or memory)", cfg.StoreBackend))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.GitHubToken = "***REDACTED***"
		cfgCopy.TelegramToken = "***REDACTED***"
		cfgCopy.WebhookSecret = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
