// Package githubfile implements the store.Blob primitive on top of the
// GitHub contents API. The file's blob sha is the revision token: GET
// returns content+sha, PUT carries the expected sha and the API answers
// 409 when another commit moved the file first.
package githubfile

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/store"
	"github.com/stash-sh/stash/internal/utils"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second

	commitMessage = "stash: append bookmarks"
)

// Options configures the contents-API client.
type Options struct {
	BaseURL string        // API base URL (default: https://api.github.com)
	Token   string        // token with contents write access
	Owner   string        // repository owner
	Repo    string        // repository name
	Path    string        // path of the log file inside the repo
	Branch  string        // branch holding the log file
	Timeout time.Duration // per-call HTTP timeout
}

// Client talks to the contents API for a single file.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
	path    string
	branch  string
	logger  logger.Logger
}

// New creates a contents-API client for one file.
func New(opts Options, log logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		owner:   opts.Owner,
		repo:    opts.Repo,
		path:    opts.Path,
		branch:  opts.Branch,
		logger:  log,
	}
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Fetch reads the file. A missing file is an empty log with an empty
// revision (the first conditional write then creates it).
func (c *Client) Fetch(ctx context.Context) ([]byte, store.Revision, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(true), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build contents request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", c.path, err)
	}
	defer utils.Close(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return nil, "", nil
	default:
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", c.path, resp.StatusCode)
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode contents response: %w", err)
	}
	if body.Encoding != "" && body.Encoding != "base64" {
		return nil, "", fmt.Errorf("unexpected contents encoding %q", body.Encoding)
	}

	// The API wraps base64 payloads with newlines.
	raw := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, body.Content)
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode contents payload: %w", err)
	}
	return content, store.Revision(body.SHA), nil
}

// CompareAndSwap replaces the whole file only if base still matches its
// blob sha. An empty base creates the file. A 409 (or a 422, which the
// API also uses for sha mismatches) maps to store.ErrConflict.
func (c *Client) CompareAndSwap(ctx context.Context, content []byte, base store.Revision) (store.Revision, error) {
	payload := putRequest{
		Message: commitMessage,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     string(base),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode put request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(false), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build put request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", c.path, err)
	}
	defer utils.Close(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out putResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode put response: %w", err)
		}
		return store.Revision(out.Content.SHA), nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		c.logger.Debug("conditional write rejected",
			logger.String("path", c.path),
			logger.Int("status", resp.StatusCode))
		return "", &store.ConflictError{Expected: base}
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("put %s: unexpected status %d: %s", c.path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func (c *Client) contentsURL(withRef bool) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), c.path)
	if withRef && c.branch != "" {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
