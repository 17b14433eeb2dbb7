package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(token string) *MemoryTokenStore {
	s := &MemoryTokenStore{}
	s.SetToken(token)
	return s
}

func TestFetchImportsSendsFiltersAndToken(t *testing.T) {
	var gotQuery, gotAuth string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery, gotAuth = r.URL.RawQuery, r.Header.Get("Authorization")
		writeJSON(w, 200, map[string]any{
			"page": 2, "limit": 25, "total": 51, "totalPages": 3,
			"items": []map[string]any{{"_id": "a", "scheme_name": "Liquid Fund", "market_value": 250000}},
		})
	})

	c := New(srv.URL, WithTokenStore(loggedIn("authenticated")))
	page, err := c.FetchImports(context.Background(), FilterBundle{Page: 2, Limit: 25, Scheme: "liquid", QuantityMin: ptr(0.0)})
	if err != nil {
		t.Fatalf("FetchImports: %v", err)
	}
	if gotAuth != "Bearer authenticated" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	for _, want := range []string{"page=2", "limit=25", "scheme=liquid", "quantityMin=0"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %s", gotQuery, want)
		}
	}
	if page.Total != 51 || page.TotalPages != 3 || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if mv := page.Items[0].MarketValue; mv == nil || *mv != 250000 {
		t.Fatalf("market_value = %v", mv)
	}
}

func TestFetchImportsNormalizesTotalPages(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"total": 0, "totalPages": 0, "items": nil})
	})
	page, err := New(srv.URL).FetchImports(context.Background(), FilterBundle{})
	if err != nil {
		t.Fatalf("FetchImports: %v", err)
	}
	if page.TotalPages != 1 || page.Items == nil {
		t.Fatalf("page = %+v, want 1 page and empty items", page)
	}
}

func TestFetchImportsLegacyShape(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"data": []map[string]any{{"_id": "x"}, {"_id": "y"}}, "totalCount": 120, "page": 1, "pageSize": 50, "totalPages": 3,
		})
	})
	page, err := New(srv.URL).FetchImports(context.Background(), FilterBundle{Limit: 50})
	if err != nil {
		t.Fatalf("FetchImports: %v", err)
	}
	if page.Total != 120 || page.TotalPages != 3 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
}

func TestFetchImportsNonJSON(t *testing.T) {
	html := "<html>" + strings.Repeat("x", 500) + "</html>"
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	})
	_, err := New(srv.URL).FetchImports(context.Background(), FilterBundle{})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
	if pe.Reason != "expected JSON" || !strings.HasPrefix(pe.Snippet, "<html>") || len(pe.Snippet) > snippetLen+len("…") {
		t.Fatalf("ProtocolError = %+v", pe)
	}
	if !strings.HasPrefix(UserMessage(err), "expected JSON, got: <html>") {
		t.Fatalf("UserMessage = %q", UserMessage(err))
	}
}

func TestFetchImportsInvalidJSON(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{not json"))
	})
	_, err := New(srv.URL).FetchImports(context.Background(), FilterBundle{})
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Reason != "invalid JSON" {
		t.Fatalf("err = %v, want invalid JSON", err)
	}
}

func TestFetchImportsServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"message": "error", "error": "connection refused"})
	})
	_, err := New(srv.URL).FetchImports(context.Background(), FilterBundle{})
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 500 || re.Message != "connection refused" {
		t.Fatalf("err = %v", err)
	}

	srv = newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, map[string]any{})
	})
	_, err = New(srv.URL).FetchImports(context.Background(), FilterBundle{})
	if UserMessage(err) != "HTTP 503" {
		t.Fatalf("UserMessage = %q", UserMessage(err))
	}
}

func TestUnauthorizedClearsTokenAndAborts(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]any{"message": "Unauthorized"})
	})
	tokens := loggedIn("stale")
	var redirected atomic.Int32
	c := New(srv.URL, WithTokenStore(tokens), WithUnauthorizedHandler(func() { redirected.Add(1) }))

	_, err := c.FetchImports(context.Background(), FilterBundle{})
	if !errors.Is(err, ErrAborted) || !IsAbort(err) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if UserMessage(err) != "" {
		t.Fatalf("abort surfaced as %q", UserMessage(err))
	}
	if tok, _ := tokens.Token(); tok != "" {
		t.Fatalf("token = %q after 401", tok)
	}
	if redirected.Load() != 1 {
		t.Fatalf("redirect hook ran %d times", redirected.Load())
	}
}

func TestFetchImportsFallsBackToLegacyPath(t *testing.T) {
	var hits []string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path != LegacyImportsPath {
			writeJSON(w, 404, map[string]any{"error": "Not found", "path": r.URL.Path})
			return
		}
		writeJSON(w, 200, map[string]any{"items": []any{}, "total": 0})
	})
	c := New(srv.URL)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchImports(context.Background(), FilterBundle{}); err != nil {
			t.Fatalf("FetchImports: %v", err)
		}
	}
	want := []string{ImportsPath, LegacyImportsPath, LegacyImportsPath}
	if strings.Join(hits, ",") != strings.Join(want, ",") {
		t.Fatalf("hits = %v, want %v", hits, want)
	}
}

func TestFetchImportsWithoutFallbackReports404(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"error": "Not found"})
	})
	_, err := New(srv.URL, WithoutLegacyFallback()).FetchImports(context.Background(), FilterBundle{})
	if UserMessage(err) != "Not found" {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchImportsCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).FetchImports(ctx, FilterBundle{})
	if !IsAbort(err) {
		t.Fatalf("err = %v, want abort", err)
	}
}

func TestLogin(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "ops@example.com" && body["password"] == "secret" {
			writeJSON(w, 200, map[string]any{"success": true, "token": "authenticated", "message": "Login successful"})
			return
		}
		writeJSON(w, 401, map[string]any{"success": false, "message": "Invalid email or password"})
	})

	tokens := &MemoryTokenStore{}
	redirected := false
	c := New(srv.URL, WithTokenStore(tokens), WithUnauthorizedHandler(func() { redirected = true }))

	_, err := c.Login(context.Background(), "ops@example.com", "nope")
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 401 || re.Message != "Invalid email or password" {
		t.Fatalf("bad login err = %v", err)
	}
	if redirected {
		t.Fatal("failed login ran the unauthorized hook")
	}

	tok, err := c.Login(context.Background(), "ops@example.com", "secret")
	if err != nil || tok != "authenticated" {
		t.Fatalf("Login = %q, %v", tok, err)
	}
	if stored, _ := tokens.Token(); stored != "authenticated" {
		t.Fatalf("stored token = %q", stored)
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if stored, _ := tokens.Token(); stored != "" {
		t.Fatalf("token after logout = %q", stored)
	}
}

func TestRatings(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RatingsPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, 200, map[string]any{"ratings": []string{"AAA", "SOVEREIGN"}})
	})
	got, err := New(srv.URL).Ratings(context.Background())
	if err != nil || strings.Join(got, ",") != "AAA,SOVEREIGN" {
		t.Fatalf("Ratings = %v, %v", got, err)
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileTokenStore(path)

	if tok, err := s.Token(); err != nil || tok != "" {
		t.Fatalf("empty store = %q, %v", tok, err)
	}
	if err := s.SetToken("authenticated"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if tok, _ := NewFileTokenStore(path).Token(); tok != "authenticated" {
		t.Fatalf("reloaded token = %q", tok)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if tok, _ := s.Token(); tok != "" {
		t.Fatalf("token after clear = %q", tok)
	}
}
