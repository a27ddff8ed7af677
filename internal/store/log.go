package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
)

// Revision is an opaque marker of the blob's exact content state.
// A stale revision causes the backing store to reject a conditional
// write instead of silently overwriting.
type Revision string

// Blob is the minimal primitive the backing store must provide: fetch
// the whole content with its revision, and replace the whole content
// only if the revision still matches.
type Blob interface {
	Fetch(ctx context.Context) (content []byte, rev Revision, err error)
	CompareAndSwap(ctx context.Context, content []byte, base Revision) (Revision, error)
}

const (
	// maxAppendAttempts bounds the conflict-retry loop.
	maxAppendAttempts = 3
	// backoffBase scales the randomized wait between colliding attempts.
	backoffBase = 100 * time.Millisecond
)

// Log is the append-only bookmark log over a CAS blob.
//
// The backing store has no native append, so Append re-reads the current
// state on every conflict, reapplies the pending records on top and
// retries the conditional replace. This loop is the only correctness
// mechanism keeping concurrent writers from clobbering each other; it
// lives here and nowhere else.
type Log struct {
	blob   Blob
	logger logger.Logger

	mu          sync.Mutex
	lastContent []byte
	lastRev     Revision
}

// NewLog creates the log adapter over a blob backend.
func NewLog(blob Blob, log logger.Logger) *Log {
	return &Log{
		blob:   blob,
		logger: log,
	}
}

// Read returns every record in commit order together with the revision
// token required for a subsequent conditional append.
func (l *Log) Read(ctx context.Context) ([]*domain.Bookmark, Revision, error) {
	content, rev, err := l.blob.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch log: %w", err)
	}
	records, err := decodeRecords(content)
	if err != nil {
		return nil, "", err
	}
	l.remember(content, rev)
	return records, rev, nil
}

// Append conditionally appends records on top of base. On conflict it
// re-reads the current state, reapplies the records and retries, up to
// maxAppendAttempts with randomized backoff. Exhaustion yields
// ErrPersistence, which callers escalate to the retry queue.
func (l *Log) Append(ctx context.Context, records []*domain.Bookmark, base Revision) (Revision, error) {
	if len(records) == 0 {
		return base, nil
	}
	for _, b := range records {
		if err := b.Validate(); err != nil {
			return "", err
		}
	}

	lines, err := encodeRecords(records)
	if err != nil {
		return "", err
	}

	current, known := l.contentFor(base)

	var lastErr error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		if !known {
			// Base content unknown (or stale): re-read and rebase.
			content, rev, err := l.blob.Fetch(ctx)
			if err != nil {
				return "", fmt.Errorf("refetch log: %w", err)
			}
			current, base, known = content, rev, true
		}

		next := appendContent(current, lines)
		newRev, err := l.blob.CompareAndSwap(ctx, next, base)
		if err == nil {
			l.remember(next, newRev)
			return newRev, nil
		}
		if !errors.Is(err, ErrConflict) {
			return "", fmt.Errorf("conditional write: %w", err)
		}

		lastErr = err
		known = false
		l.logger.Warn("append conflict, rebasing on fresh state",
			logger.String("base", string(base)),
			logger.Int("attempt", attempt))

		if attempt < maxAppendAttempts {
			if err := sleepJittered(ctx, attempt); err != nil {
				return "", fmt.Errorf("append canceled: %w", err)
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrPersistence, maxAppendAttempts, lastErr)
}

// contentFor returns the cached content when it matches base, so the
// first CAS attempt after a Read does not refetch.
func (l *Log) contentFor(base Revision) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastRev != "" && l.lastRev == base {
		return l.lastContent, true
	}
	return nil, false
}

func (l *Log) remember(content []byte, rev Revision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastContent = content
	l.lastRev = rev
}

// sleepJittered waits a randomized, attempt-scaled duration to
// desynchronize colliding writers.
func sleepJittered(ctx context.Context, attempt int) error {
	wait := time.Duration(attempt)*backoffBase + time.Duration(rand.Int63n(int64(backoffBase)))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
