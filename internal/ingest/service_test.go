package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/metadata"
	"github.com/stash-sh/stash/internal/queue"
	"github.com/stash-sh/stash/internal/store"
)

func testLogger() logger.Logger {
	return logger.New("error", false)
}

// fakeResolver returns a scripted result without touching the network.
type fakeResolver struct {
	result metadata.Result
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (metadata.Result, error) {
	f.calls++
	if f.err != nil {
		return metadata.Result{}, f.err
	}
	res := f.result
	if res.CanonicalURL == "" {
		res.CanonicalURL = rawURL
	}
	return res, nil
}

// fakeRetryQueue records Put calls.
type fakeRetryQueue struct {
	entries []*queue.RetryEntry
	err     error
}

func (f *fakeRetryQueue) Put(ctx context.Context, e *queue.RetryEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

// brokenBlob always conflicts, so every append exhausts its retries.
type brokenBlob struct{}

func (brokenBlob) Fetch(ctx context.Context) ([]byte, store.Revision, error) {
	return nil, "r0", nil
}

func (brokenBlob) CompareAndSwap(ctx context.Context, content []byte, base store.Revision) (store.Revision, error) {
	return "", &store.ConflictError{Expected: base}
}

func TestSubmitSaved(t *testing.T) {
	blob := store.NewMemBlob()
	log := store.NewLog(blob, testLogger())
	resolver := &fakeResolver{result: metadata.Result{Title: "A Title", Description: "Desc"}}
	q := &fakeRetryQueue{}
	svc := New(resolver, log, q, testLogger())

	outcome, err := svc.Submit(context.Background(), "save https://example.com/post please", domain.SourceTelegram)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome != domain.OutcomeSaved {
		t.Fatalf("outcome = %q, want saved", outcome)
	}
	if len(q.entries) != 0 {
		t.Error("nothing should be queued on success")
	}

	records, _, err := log.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("log has %d records, want 1", len(records))
	}
	b := records[0]
	if b.URL != "https://example.com/post" {
		t.Errorf("URL = %q", b.URL)
	}
	if b.Title != "A Title" {
		t.Errorf("Title = %q", b.Title)
	}
	if b.ExtractionStatus != domain.ExtractionSuccess {
		t.Errorf("ExtractionStatus = %q, want success", b.ExtractionStatus)
	}
	if b.ID == "" {
		t.Error("record has no id")
	}
}

func TestSubmitPartialEnrichmentStillSaves(t *testing.T) {
	log := store.NewLog(store.NewMemBlob(), testLogger())
	// Simulated timeout: resolver degraded to a partial result.
	resolver := &fakeResolver{result: metadata.Result{Partial: true}}
	svc := New(resolver, log, &fakeRetryQueue{}, testLogger())

	outcome, err := svc.Submit(context.Background(), "https://slow.example/page", domain.SourceTelegram)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome != domain.OutcomeSaved {
		t.Fatalf("outcome = %q, want saved despite partial metadata", outcome)
	}

	records, _, _ := log.Read(context.Background())
	if len(records) != 1 {
		t.Fatalf("log has %d records, want 1", len(records))
	}
	if records[0].URL != "https://slow.example/page" {
		t.Errorf("URL = %q", records[0].URL)
	}
	if records[0].ExtractionStatus != domain.ExtractionPartial {
		t.Errorf("ExtractionStatus = %q, want partial", records[0].ExtractionStatus)
	}
	if records[0].Title != "" {
		t.Errorf("partial record must have no title, got %q", records[0].Title)
	}
}

func TestSubmitIgnoredWithoutURL(t *testing.T) {
	log := store.NewLog(store.NewMemBlob(), testLogger())
	resolver := &fakeResolver{}
	q := &fakeRetryQueue{}
	svc := New(resolver, log, q, testLogger())

	outcome, err := svc.Submit(context.Background(), "hello, no link here", domain.SourceTelegram)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome != domain.OutcomeIgnored {
		t.Fatalf("outcome = %q, want ignored", outcome)
	}
	if resolver.calls != 0 {
		t.Error("resolver must not be called without a URL")
	}
	records, _, _ := log.Read(context.Background())
	if len(records) != 0 {
		t.Error("ignored submission must have no side effects")
	}
}

func TestSubmitQueuedOnPersistenceFailure(t *testing.T) {
	log := store.NewLog(brokenBlob{}, testLogger())
	resolver := &fakeResolver{result: metadata.Result{Title: "T"}}
	q := &fakeRetryQueue{}
	svc := New(resolver, log, q, testLogger())

	outcome, err := svc.Submit(context.Background(), "https://example.com/x", domain.SourceTelegram)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome != domain.OutcomeQueued {
		t.Fatalf("outcome = %q, want queued", outcome)
	}
	if len(q.entries) != 1 {
		t.Fatalf("queue has %d entries, want 1", len(q.entries))
	}
	e := q.entries[0]
	if e.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", e.Attempts)
	}
	if e.Bookmark.URL != "https://example.com/x" {
		t.Errorf("queued URL = %q", e.Bookmark.URL)
	}
	if e.LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestSubmitEnqueueFailureSurfaces(t *testing.T) {
	log := store.NewLog(brokenBlob{}, testLogger())
	resolver := &fakeResolver{}
	q := &fakeRetryQueue{err: errors.New("redis down")}
	svc := New(resolver, log, q, testLogger())

	outcome, err := svc.Submit(context.Background(), "https://example.com/x", domain.SourceTelegram)
	if err == nil {
		t.Fatal("expected error when both persist and enqueue fail")
	}
	if outcome != "" {
		t.Errorf("outcome = %q, want empty on total failure", outcome)
	}
}

func TestSubmitUsesCanonicalURL(t *testing.T) {
	log := store.NewLog(store.NewMemBlob(), testLogger())
	resolver := &fakeResolver{result: metadata.Result{
		Title:        "T",
		CanonicalURL: "https://example.com/canonical",
	}}
	svc := New(resolver, log, &fakeRetryQueue{}, testLogger())

	if _, err := svc.Submit(context.Background(), "https://example.com/?utm_source=x", domain.SourceTelegram); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	records, _, _ := log.Read(context.Background())
	if len(records) != 1 {
		t.Fatal("no record saved")
	}
	if records[0].URL != "https://example.com/canonical" {
		t.Errorf("URL = %q, want canonical", records[0].URL)
	}
}

func TestSubmitManyProduceUniqueIDs(t *testing.T) {
	log := store.NewLog(store.NewMemBlob(), testLogger())
	svc := New(&fakeResolver{}, log, &fakeRetryQueue{}, testLogger())

	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("https://example.com/%d", i)
		if outcome, err := svc.Submit(context.Background(), text, domain.SourceTelegram); err != nil || outcome != domain.OutcomeSaved {
			t.Fatalf("Submit(%d) = %q, %v", i, outcome, err)
		}
	}

	records, _, _ := log.Read(context.Background())
	if len(records) != 5 {
		t.Fatalf("log has %d records, want 5", len(records))
	}
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.ID] {
			t.Errorf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}
