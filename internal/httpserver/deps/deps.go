package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stash-sh/stash/internal/ingest"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/queue"
	"github.com/stash-sh/stash/internal/sources/channels"
	"github.com/stash-sh/stash/internal/telegram"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	WebhookSecret string             // path segment guarding the webhook endpoint
	Ingest        *ingest.Service    // submission pipeline
	Channels      *channels.Registry // nil = accept messages from any chat
	Notifier      *telegram.Client   // nil = outbound replies disabled

	RedisClient  *redis.Client // Redis client connection (retry queue)
	Queue        *queue.Queue  // retry queue, used by infra reporting
	StoreBackend string        // active append-log backend name

	SweepTrigger chan struct{} // channel to trigger a manual retry sweep

	AllowedHosts []string // Host headers allowed to reach the webhook
	AllowedCIDRS []string // IPs allowed to reach operational endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RateLimitBurst  int // webhook token bucket burst per client IP
	RateLimitRefill int // webhook tokens refilled per IP per minute
}
