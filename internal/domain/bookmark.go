package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies the channel a bookmark was submitted through.
type Source string

const (
	// SourceTelegram marks bookmarks submitted via the Telegram webhook.
	SourceTelegram Source = "telegram"
)

// ExtractionStatus reflects how metadata resolution went for a bookmark.
type ExtractionStatus string

const (
	// ExtractionSuccess means enrichment fields were resolved normally.
	ExtractionSuccess ExtractionStatus = "success"
	// ExtractionPartial means resolution failed or timed out and the
	// bookmark was saved without (some) enrichment fields.
	ExtractionPartial ExtractionStatus = "partial"
	// ExtractionFailed marks records whose resolution produced nothing at
	// all. Kept for compatibility with records written by other tooling
	// sharing the same log file.
	ExtractionFailed ExtractionStatus = "failed"
)

// Bookmark is one persisted entry in the append-only log.
// Once appended it is never mutated or removed.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, generated at creation.
	ID string `json:"id"`

	// URL is the saved absolute http/https URL.
	URL string `json:"url"`

	// ─────────────────────────────
	// Enrichment (best effort)
	// ─────────────────────────────

	// Title, Description and Image come from the page's preview metadata.
	// Absent when resolution failed.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`

	// ─────────────────────────────
	// Provenance & classification
	// ─────────────────────────────

	// Tags is an unordered set of labels, empty by default.
	Tags []string `json:"tags"`

	// Source indicates which channel submitted the bookmark.
	Source Source `json:"source"`

	// Timestamp is the creation time. Never in the future.
	Timestamp time.Time `json:"timestamp"`

	// ExtractionStatus records how metadata resolution went.
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}

// NewBookmark builds a provisional bookmark for a submitted URL.
// The record only becomes durable once it appears in the remote log.
func NewBookmark(url string, source Source) *Bookmark {
	return &Bookmark{
		ID:               uuid.NewString(),
		URL:              url,
		Tags:             []string{},
		Source:           source,
		Timestamp:        time.Now().UTC(),
		ExtractionStatus: ExtractionSuccess,
	}
}

// Validate checks the invariants a record must satisfy before it is
// appended to the log.
func (b *Bookmark) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bookmark has no id")
	}
	if err := ValidateURL(b.URL); err != nil {
		return fmt.Errorf("bookmark %s: %w", b.ID, err)
	}
	if b.Timestamp.After(time.Now().Add(time.Minute)) {
		return fmt.Errorf("bookmark %s: timestamp is in the future", b.ID)
	}
	return nil
}
