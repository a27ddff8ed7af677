// Package ingest turns raw inbound messages into durable bookmark
// records: extract a URL, enrich it best effort, append it to the
// versioned log, and fall back to the retry queue when the log write
// fails.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/metadata"
	"github.com/stash-sh/stash/internal/queue"
	"github.com/stash-sh/stash/internal/store"
)

// MetadataResolver is the slice of the resolver Submit needs.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (metadata.Result, error)
}

// AppendLog is the slice of the store adapter Submit needs.
type AppendLog interface {
	Read(ctx context.Context) ([]*domain.Bookmark, store.Revision, error)
	Append(ctx context.Context, records []*domain.Bookmark, base store.Revision) (store.Revision, error)
}

// RetryQueue is the slice of the retry queue Submit needs.
type RetryQueue interface {
	Put(ctx context.Context, e *queue.RetryEntry) error
}

// Service orchestrates one submission end to end.
type Service struct {
	resolver MetadataResolver
	store    AppendLog
	queue    RetryQueue
	logger   logger.Logger
}

// New creates the ingestion service.
func New(resolver MetadataResolver, log AppendLog, q RetryQueue, lg logger.Logger) *Service {
	return &Service{
		resolver: resolver,
		store:    log,
		queue:    q,
		logger:   lg,
	}
}

// Submit processes one raw inbound message. The returned outcome is
// always one of Saved, Queued or Ignored; the error is non-nil only
// when the bookmark could be neither persisted nor queued, in which
// case it is genuinely lost and the caller should say so.
func (s *Service) Submit(ctx context.Context, rawText string, source domain.Source) (domain.Outcome, error) {
	rawURL, ok := domain.ExtractURL(rawText)
	if !ok {
		s.logger.Debug("no url in message, ignoring")
		return domain.OutcomeIgnored, nil
	}
	if err := domain.ValidateURL(rawURL); err != nil {
		// Structurally invalid URLs are rejected outright, never queued.
		s.logger.Info("rejecting invalid url",
			logger.String("url", rawURL),
			logger.Error(err))
		return domain.OutcomeIgnored, nil
	}

	bookmark := domain.NewBookmark(rawURL, source)

	res, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			s.logger.Info("resolver rejected url",
				logger.String("url", rawURL))
			return domain.OutcomeIgnored, nil
		}
		// The resolver contract absorbs transient failures; anything
		// else is unexpected but must not block persistence.
		s.logger.Warn("unexpected resolver error, saving without enrichment",
			logger.String("url", rawURL),
			logger.Error(err))
		res = metadata.Result{CanonicalURL: rawURL, Partial: true}
	}

	bookmark.Title = res.Title
	bookmark.Description = res.Description
	bookmark.Image = res.Image
	if res.CanonicalURL != "" {
		bookmark.URL = res.CanonicalURL
	}
	if res.Partial {
		bookmark.ExtractionStatus = domain.ExtractionPartial
	}

	if err := s.persist(ctx, bookmark); err != nil {
		return s.enqueue(ctx, bookmark, err)
	}

	s.logger.Info("bookmark saved",
		logger.String("bookmark_id", bookmark.ID),
		logger.String("url", bookmark.URL),
		logger.String("extraction_status", string(bookmark.ExtractionStatus)))
	return domain.OutcomeSaved, nil
}

func (s *Service) persist(ctx context.Context, b *domain.Bookmark) error {
	_, base, err := s.store.Read(ctx)
	if err != nil {
		return err
	}
	_, err = s.store.Append(ctx, []*domain.Bookmark{b}, base)
	return err
}

// enqueue escalates a failed write to the retry queue so a later sweep
// can replay it.
func (s *Service) enqueue(ctx context.Context, b *domain.Bookmark, cause error) (domain.Outcome, error) {
	s.logger.Warn("persistence failed, queueing for retry",
		logger.String("bookmark_id", b.ID),
		logger.String("url", b.URL),
		logger.Error(cause))

	entry := queue.NewRetryEntry(b, cause)
	if err := s.queue.Put(ctx, entry); err != nil {
		s.logger.Error("failed to queue bookmark, record lost",
			logger.String("bookmark_id", b.ID),
			logger.String("url", b.URL),
			logger.Error(err))
		return "", fmt.Errorf("persist failed (%v) and enqueue failed: %w", cause, err)
	}
	return domain.OutcomeQueued, nil
}
