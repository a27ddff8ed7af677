package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/stash-sh/stash/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	Backend        string `json:"backend,omitempty"`
	PendingEntries *int   `json:"pending_entries,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports component health: the append-log backend, the Redis
// retry queue, and the number of entries waiting for the next sweep.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		redisStatus := checkRedis(d)
		queueStatus := checkQueue(r.Context(), d, redisStatus.OK)

		components := map[string]componentStatus{
			"store": {
				OK:      true,
				Backend: d.StoreBackend,
			},
			"redis": redisStatus,
			"queue": queueStatus,
		}

		response := infraResponse{
			Mode:       determineMode(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// determineMode summarizes overall posture. Without Redis a failed
// append has no fallback, so submissions can be lost.
func determineMode(components map[string]componentStatus) string {
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "lossy"
	}
	return "durable"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Impact: "retry-queue-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "retry-queue-disabled",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Impact: "retry-queue-enabled",
	}
}

func checkQueue(ctx context.Context, d deps.Deps, redisOK bool) componentStatus {
	if !redisOK || d.Queue == nil {
		return componentStatus{OK: false, Error: "unavailable"}
	}

	ids, err := d.Queue.List(ctx)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	pending := len(ids)
	return componentStatus{OK: true, PendingEntries: &pending}
}
