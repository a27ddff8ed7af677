// Package queue holds write attempts that exhausted the store adapter's
// immediate retries, keyed per bookmark id in Redis, until a sweep
// either lands them in the log or drops them for good.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stash-sh/stash/internal/domain"
)

const (
	// MaxAttempts is the ceiling after which an entry is dropped.
	MaxAttempts = 3
)

// ErrEntryNotFound is returned when no retry entry exists for an id.
var ErrEntryNotFound = errors.New("retry entry not found")

// RetryEntry is a queued, not-yet-durable write awaiting a future sweep.
type RetryEntry struct {
	Bookmark    *domain.Bookmark `json:"bookmark"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"last_error"`
	CreatedAt   time.Time        `json:"created_at"`
	LastAttempt time.Time        `json:"last_attempt"`
}

// NewRetryEntry builds the entry for a bookmark whose first persistence
// attempt failed with cause.
func NewRetryEntry(b *domain.Bookmark, cause error) *RetryEntry {
	now := time.Now().UTC()
	e := &RetryEntry{
		Bookmark:    b,
		Attempts:    1,
		CreatedAt:   now,
		LastAttempt: now,
	}
	if cause != nil {
		e.LastError = cause.Error()
	}
	return e
}

// Queue stores retry entries in Redis. Entries have no TTL; only the
// attempt ceiling removes them.
type Queue struct {
	client *redis.Client
}

// New creates a retry queue over an established Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Put stores (or overwrites) the entry under its bookmark's key.
func (q *Queue) Put(ctx context.Context, e *RetryEntry) error {
	if e.Bookmark == nil || e.Bookmark.ID == "" {
		return fmt.Errorf("retry entry has no bookmark id")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal retry entry: %w", err)
	}
	if err := q.client.Set(ctx, RetryKey(e.Bookmark.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save retry entry: %w", err)
	}
	return nil
}

// Get retrieves the entry for a bookmark id.
func (q *Queue) Get(ctx context.Context, bookmarkID string) (*RetryEntry, error) {
	data, err := q.client.Get(ctx, RetryKey(bookmarkID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, bookmarkID)
		}
		return nil, fmt.Errorf("failed to get retry entry: %w", err)
	}

	var e RetryEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry entry: %w", err)
	}
	return &e, nil
}

// Delete removes the entry for a bookmark id. Missing keys are fine.
func (q *Queue) Delete(ctx context.Context, bookmarkID string) error {
	if err := q.client.Del(ctx, RetryKey(bookmarkID)).Err(); err != nil {
		return fmt.Errorf("failed to delete retry entry: %w", err)
	}
	return nil
}

// List returns the bookmark ids of all pending entries.
func (q *Queue) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := q.client.Scan(ctx, 0, KeyPrefixRetry+"*", 0).Iterator()
	for iter.Next(ctx) {
		id, err := ExtractBookmarkID(iter.Val())
		if err != nil {
			// Foreign key under our prefix; skip it.
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list retry entries: %w", err)
	}
	return ids, nil
}
