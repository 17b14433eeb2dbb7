// Package client talks to the imports API: it encodes filter bundles,
// attaches the session token and turns responses into pages or typed
// errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	ImportsPath       = "/api/imports"
	LegacyImportsPath = "/api/list/imports"
	RatingsPath       = "/api/ratings"
	LoginPath         = "/api/auth/login"

	maxBody = 32 << 20
)

// Client is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	onUnauthorized func()

	mu          sync.Mutex
	importPaths []string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTokenStore(s TokenStore) Option { return func(c *Client) { c.tokens = s } }

// WithUnauthorizedHandler sets the hook run after a 401 has cleared the
// stored token, typically a redirect to login.
func WithUnauthorizedHandler(fn func()) Option { return func(c *Client) { c.onUnauthorized = fn } }

// WithoutLegacyFallback disables the retry against LegacyImportsPath.
func WithoutLegacyFallback() Option {
	return func(c *Client) { c.importPaths = []string{ImportsPath} }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 30 * time.Second},
		tokens:      &MemoryTokenStore{},
		importPaths: []string{ImportsPath, LegacyImportsPath},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope accepts both the current and the legacy response shapes.
type envelope struct {
	Items      []Record `json:"items"`
	Data       []Record `json:"data"`
	Total      *int64   `json:"total"`
	TotalCount *int64   `json:"totalCount"`
	Message    string   `json:"message"`
	Error      string   `json:"error"`
}

// FetchImports retrieves one page for b. If the server has no
// ImportsPath route, the legacy path is tried and remembered.
func (c *Client) FetchImports(ctx context.Context, b FilterBundle) (*Page, error) {
	query := b.Values()
	_, limit := b.PageLimit()

	paths := c.paths()
	for i, path := range paths {
		var env envelope
		err := c.getJSON(ctx, path, query, &env)
		if err != nil {
			if i < len(paths)-1 && isNotFound(err) {
				continue
			}
			return nil, err
		}
		if i > 0 {
			c.prefer(path)
		}
		return env.page(limit), nil
	}
	return nil, fmt.Errorf("no imports endpoint configured")
}

func (e *envelope) page(limit int) *Page {
	items := e.Items
	if items == nil {
		items = e.Data
	}
	if items == nil {
		items = []Record{}
	}
	var total int64
	switch {
	case e.Total != nil:
		total = *e.Total
	case e.TotalCount != nil:
		total = *e.TotalCount
	}
	return &Page{Items: items, Total: total, TotalPages: TotalPages(total, limit)}
}

// Ratings returns the selectable rating catalog.
func (c *Client) Ratings(ctx context.Context) ([]string, error) {
	var body struct {
		Ratings []string `json:"ratings"`
	}
	if err := c.getJSON(ctx, RatingsPath, nil, &body); err != nil {
		return nil, err
	}
	return body.Ratings, nil
}

// Login exchanges credentials for a session token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	status, err := c.send(ctx, req, &body)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 || !body.Success || body.Token == "" {
		return "", &RequestError{Status: status, Message: body.Message}
	}
	if err := c.tokens.SetToken(body.Token); err != nil {
		return "", err
	}
	return body.Token, nil
}

// Logout forgets the stored token.
func (c *Client) Logout() error { return c.tokens.Clear() }

func (c *Client) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.importPaths...)
}

func (c *Client) prefer(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []string{path}
	for _, p := range c.importPaths {
		if p != path {
			out = append(out, p)
		}
	}
	c.importPaths = out
}

// getJSON performs an authenticated GET. A 401 clears the token, runs the
// unauthorized hook and yields ErrAborted.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		if err := c.tokens.Clear(); err != nil {
			return err
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrAborted
	}

	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := decode(resp, out, &env); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &RequestError{Status: resp.StatusCode, Message: msg}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if err := decode(resp, out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// decode checks the content type and unmarshals the body into every
// target.
func decode(resp *http.Response, targets ...any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if !isJSON(ct) {
		return &ProtocolError{Status: resp.StatusCode, ContentType: ct, Reason: "expected JSON", Snippet: snippet(body)}
	}
	for _, t := range targets {
		if err := json.Unmarshal(body, t); err != nil {
			return &ProtocolError{Status: resp.StatusCode, ContentType: ct, Reason: "invalid JSON", Snippet: snippet(body)}
		}
	}
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func isNotFound(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status == http.StatusNotFound
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Status == http.StatusNotFound
	}
	return false
}
