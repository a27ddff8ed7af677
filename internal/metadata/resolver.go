package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/stash-sh/stash/internal/domain"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/utils"
)

const (
	// DefaultTimeout bounds the whole fetch+parse of one resolution.
	DefaultTimeout = 5 * time.Second
	// maxBodyBytes caps how much of a page is read for parsing.
	maxBodyBytes = 512 << 10
	// maxRedirects caps redirect chains before giving up.
	maxRedirects = 5

	userAgent = "stash/1.0 (+https://github.com/stash-sh/stash)"
)

// Result holds the best-effort enrichment fields for a URL.
// Partial is true when the page could not be fetched or parsed; the
// zero-value fields are then intentional, not an error.
type Result struct {
	Title        string
	Description  string
	Image        string
	CanonicalURL string
	Partial      bool
}

// Resolver fetches preview metadata for submitted URLs.
// A single attempt per URL, no internal retries.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// New creates a resolver with a bounded HTTP client.
func New(log logger.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return &Resolver{
		client:  client,
		timeout: timeout,
		logger:  log,
	}
}

// Resolve fetches the page at rawURL and extracts preview metadata.
// It fails only for structurally invalid URLs (domain.ErrInvalidURL);
// network errors, timeouts and non-2xx responses all degrade to a
// partial result so the caller can still persist the bookmark.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Result, error) {
	if err := domain.ValidateURL(rawURL); err != nil {
		return Result{}, err
	}

	res := Result{CanonicalURL: rawURL}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.Partial = true
		return res, nil
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("metadata fetch failed",
			logger.String("url", rawURL),
			logger.Error(err))
		res.Partial = true
		return res, nil
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Debug("metadata fetch non-2xx",
			logger.String("url", rawURL),
			logger.Int("status", resp.StatusCode))
		res.Partial = true
		return res, nil
	}

	fields, err := extract(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		r.logger.Debug("metadata parse failed",
			logger.String("url", rawURL),
			logger.Error(err))
		res.Partial = true
		return res, nil
	}

	// First non-empty value wins: Open Graph, then Twitter card, then the
	// generic document tags.
	res.Title = firstNonEmpty(fields["og:title"], fields["twitter:title"], fields["html:title"])
	res.Description = firstNonEmpty(fields["og:description"], fields["twitter:description"], fields["html:description"])
	res.Image = firstNonEmpty(fields["og:image"], fields["twitter:image"])
	if canonical := fields["html:canonical"]; canonical != "" {
		if domain.ValidateURL(canonical) == nil {
			res.CanonicalURL = canonical
		}
	}

	if res.Title == "" && res.Description == "" && res.Image == "" {
		res.Partial = true
	}
	return res, nil
}

// extract walks the HTML document and collects the tags the resolver
// cares about into a flat map.
func extract(body io.Reader) (map[string]string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	fields := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && fields["html:title"] == "" {
					fields["html:title"] = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				collectMeta(n, fields)
			case "link":
				collectCanonical(n, fields)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return fields, nil
}

func collectMeta(n *html.Node, fields map[string]string) {
	var name, content string
	for _, a := range n.Attr {
		switch a.Key {
		case "property", "name":
			name = strings.ToLower(a.Val)
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	if name == "" || content == "" {
		return
	}
	switch name {
	case "og:title", "og:description", "og:image",
		"twitter:title", "twitter:description", "twitter:image":
		if fields[name] == "" {
			fields[name] = content
		}
	case "description":
		if fields["html:description"] == "" {
			fields["html:description"] = content
		}
	}
}

func collectCanonical(n *html.Node, fields map[string]string) {
	var rel, href string
	for _, a := range n.Attr {
		switch a.Key {
		case "rel":
			rel = strings.ToLower(a.Val)
		case "href":
			href = strings.TrimSpace(a.Val)
		}
	}
	if rel == "canonical" && href != "" && fields["html:canonical"] == "" {
		fields["html:canonical"] = href
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
