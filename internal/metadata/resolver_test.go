package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
)

func testLogger() logger.Logger {
	return logger.New("error", false)
}

func TestResolveExtractsOpenGraph(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG Description">
<meta property="og:image" content="https://img.example/cover.png">
<link rel="canonical" href="https://canonical.example/post">
</head><body>hi</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	r := New(testLogger(), time.Second)
	res, err := r.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Partial {
		t.Error("Partial = true, want false")
	}
	if res.Title != "OG Title" {
		t.Errorf("Title = %q, want %q", res.Title, "OG Title")
	}
	if res.Description != "OG Description" {
		t.Errorf("Description = %q, want %q", res.Description, "OG Description")
	}
	if res.Image != "https://img.example/cover.png" {
		t.Errorf("Image = %q", res.Image)
	}
	if res.CanonicalURL != "https://canonical.example/post" {
		t.Errorf("CanonicalURL = %q", res.CanonicalURL)
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		wantTitle string
		wantDesc  string
	}{
		{
			name: "twitter before generic",
			page: `<html><head>
<title>Doc Title</title>
<meta name="twitter:title" content="Tweet Title">
<meta name="description" content="Generic description">
</head></html>`,
			wantTitle: "Tweet Title",
			wantDesc:  "Generic description",
		},
		{
			name:      "generic only",
			page:      `<html><head><title>Doc Title</title></head></html>`,
			wantTitle: "Doc Title",
			wantDesc:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.page))
			}))
			defer srv.Close()

			r := New(testLogger(), time.Second)
			res, err := r.Resolve(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if res.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", res.Title, tt.wantTitle)
			}
			if res.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", res.Description, tt.wantDesc)
			}
		})
	}
}

func TestResolveTimeoutIsPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	r := New(testLogger(), 50*time.Millisecond)
	res, err := r.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("timeout must not surface as error, got %v", err)
	}
	if !res.Partial {
		t.Error("Partial = false after timeout, want true")
	}
	if res.CanonicalURL != srv.URL {
		t.Errorf("CanonicalURL = %q, want submitted URL", res.CanonicalURL)
	}
}

func TestResolveNon2xxIsPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(testLogger(), time.Second)
	res, err := r.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("non-2xx must not surface as error, got %v", err)
	}
	if !res.Partial {
		t.Error("Partial = false for 404, want true")
	}
}

func TestResolveInvalidURL(t *testing.T) {
	r := New(testLogger(), time.Second)
	for _, raw := range []string{"ftp://example.com", "not a url", "https://"} {
		_, err := r.Resolve(context.Background(), raw)
		if !errors.Is(err, domain.ErrInvalidURL) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}
