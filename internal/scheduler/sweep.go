package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/queue"
	"github.com/stash-sh/stash/internal/store"
)

// RetryQueue is the slice of the retry queue the sweeper needs.
type RetryQueue interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, bookmarkID string) (*queue.RetryEntry, error)
	Put(ctx context.Context, e *queue.RetryEntry) error
	Delete(ctx context.Context, bookmarkID string) error
}

// AppendLog is the slice of the store adapter the sweeper needs.
type AppendLog interface {
	Read(ctx context.Context) ([]*domain.Bookmark, store.Revision, error)
	Append(ctx context.Context, records []*domain.Bookmark, base store.Revision) (store.Revision, error)
}

// Per-entry sweep outcomes.
const (
	outcomeResolved = "resolved"
	outcomePending  = "pending"
	outcomeDropped  = "dropped"
	outcomeSkipped  = "skipped"
)

// Sweeper periodically drains the retry queue back through the store
// adapter. It is just another unprivileged writer racing live
// submissions on the same conditional-write primitive.
type Sweeper struct {
	queue         RetryQueue
	store         AppendLog
	logger        logger.Logger
	interval      time.Duration
	alertOnDrop   bool
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSweeper creates a sweeper. manualTrigger may be nil when no manual
// trigger endpoint is wired.
func NewSweeper(
	q RetryQueue,
	log AppendLog,
	lg logger.Logger,
	interval time.Duration,
	alertOnDrop bool,
	manualTrigger chan struct{},
) *Sweeper {
	return &Sweeper{
		queue:         q,
		store:         log,
		logger:        lg,
		interval:      interval,
		alertOnDrop:   alertOnDrop,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs one sweep immediately, then sweeps on every tick or manual
// trigger until Stop or ctx cancellation.
func (sw *Sweeper) Start(ctx context.Context) error {
	if err := sw.Sweep(ctx); err != nil {
		sw.logger.Warn("initial sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(sw.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sw.Sweep(ctx); err != nil {
					sw.logger.Error("sweep failed", logger.Error(err))
				}
			case <-sw.manualTrigger:
				sw.logger.Info("manual sweep triggered")
				if err := sw.Sweep(ctx); err != nil {
					sw.logger.Error("sweep failed", logger.Error(err))
				}
			case <-sw.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (sw *Sweeper) Stop() {
	close(sw.stopCh)
}

// Sweep re-attempts every pending retry entry once. Entries are
// processed independently; a failure or panic in one never aborts the
// others.
func (sw *Sweeper) Sweep(ctx context.Context) error {
	ids, err := sw.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list retry entries: %w", err)
	}
	if len(ids) == 0 {
		sw.logger.Debug("retry queue empty, nothing to sweep")
		return nil
	}

	sw.logger.Info("sweeping retry queue", logger.Int("pending", len(ids)))

	tally := map[string]int{}
	for _, id := range ids {
		outcome := sw.sweepOne(ctx, id)
		tally[outcome]++
	}

	sw.logger.Info("sweep completed",
		logger.Int("resolved", tally[outcomeResolved]),
		logger.Int("still_pending", tally[outcomePending]),
		logger.Int("dropped", tally[outcomeDropped]),
		logger.Int("skipped", tally[outcomeSkipped]))
	return nil
}

// sweepOne handles a single entry, isolating panics so one broken entry
// cannot take down the rest of the sweep.
func (sw *Sweeper) sweepOne(ctx context.Context, id string) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			sw.logger.Error("panic while sweeping entry",
				logger.String("bookmark_id", id),
				logger.String("panic", fmt.Sprint(r)))
			outcome = outcomeSkipped
		}
	}()

	entry, err := sw.queue.Get(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrEntryNotFound) {
			// Raced with a concurrent resolution; nothing to do.
			return outcomeSkipped
		}
		sw.logger.Warn("failed to load retry entry",
			logger.String("bookmark_id", id),
			logger.Error(err))
		return outcomeSkipped
	}

	// The bookmark is replayed verbatim; enrichment happened once, at
	// original ingestion time.
	if err := sw.attemptAppend(ctx, entry.Bookmark); err != nil {
		return sw.recordFailure(ctx, entry, err)
	}

	if err := sw.queue.Delete(ctx, id); err != nil {
		sw.logger.Warn("appended but failed to delete retry entry",
			logger.String("bookmark_id", id),
			logger.Error(err))
	}
	sw.logger.Info("retry entry resolved",
		logger.String("bookmark_id", id),
		logger.String("url", entry.Bookmark.URL),
		logger.Int("attempts", entry.Attempts))
	return outcomeResolved
}

func (sw *Sweeper) attemptAppend(ctx context.Context, b *domain.Bookmark) error {
	_, base, err := sw.store.Read(ctx)
	if err != nil {
		return err
	}
	_, err = sw.store.Append(ctx, []*domain.Bookmark{b}, base)
	return err
}

// recordFailure applies the retry state machine: increment attempts and
// re-queue, or drop the entry once the ceiling is exceeded.
func (sw *Sweeper) recordFailure(ctx context.Context, entry *queue.RetryEntry, cause error) string {
	entry.Attempts++
	entry.LastError = cause.Error()
	entry.LastAttempt = time.Now().UTC()

	id := entry.Bookmark.ID
	if entry.Attempts > queue.MaxAttempts {
		if err := sw.queue.Delete(ctx, id); err != nil {
			sw.logger.Warn("failed to delete exhausted retry entry",
				logger.String("bookmark_id", id),
				logger.Error(err))
		}
		// Whether a drop pages an operator or just leaves a trace is a
		// deployment policy decision.
		if sw.alertOnDrop {
			sw.logger.Error("retry entry dropped after max attempts",
				logger.String("bookmark_id", id),
				logger.String("url", entry.Bookmark.URL),
				logger.Int("attempts", queue.MaxAttempts),
				logger.String("last_error", entry.LastError))
		} else {
			sw.logger.Warn("retry entry dropped after max attempts",
				logger.String("bookmark_id", id),
				logger.String("url", entry.Bookmark.URL),
				logger.Int("attempts", queue.MaxAttempts),
				logger.String("last_error", entry.LastError))
		}
		return outcomeDropped
	}

	if err := sw.queue.Put(ctx, entry); err != nil {
		sw.logger.Error("failed to update retry entry",
			logger.String("bookmark_id", id),
			logger.Error(err))
		return outcomeSkipped
	}
	sw.logger.Info("retry entry still pending",
		logger.String("bookmark_id", id),
		logger.Int("attempts", entry.Attempts),
		logger.String("last_error", entry.LastError))
	return outcomePending
}
