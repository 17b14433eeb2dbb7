package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"holdings-imports-backend/internal/client"
	"holdings-imports-backend/internal/filterstate"
)

func ptr[T any](v T) *T { return &v }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func apiServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, filepath.Join(t.TempDir(), "session.json")
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestLoginThenList(t *testing.T) {
	var gotQuery, gotAuth string
	srv, tokenFile := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.LoginPath:
			reply(w, 200, map[string]any{"success": true, "token": "authenticated", "message": "Login successful"})
		case client.ImportsPath:
			gotQuery, gotAuth = r.URL.RawQuery, r.Header.Get("Authorization")
			reply(w, 200, map[string]any{
				"page": 1, "limit": 50, "total": 1, "totalPages": 1,
				"items": []map[string]any{{"_id": "a", "scheme_name": "Gilt Fund", "market_value": 1500000.5, "ytm": 0.0725}},
			})
		default:
			reply(w, 404, map[string]any{"error": "Not found"})
		}
	})

	out, err := execute(t, "login", "--api-url", srv.URL, "--token-file", tokenFile, "--email", "ops@example.com", "--password", "secret")
	if err != nil || !strings.Contains(out, "Login successful") {
		t.Fatalf("login = %q, %v", out, err)
	}

	out, err = execute(t, "list", "--api-url", srv.URL, "--token-file", tokenFile, "--scheme", "gilt", "--quantity-min", "0", "--rating", "AAA,SOVEREIGN")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotAuth != "Bearer authenticated" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	for _, want := range []string{"scheme=gilt", "quantityMin=0", "ratings=AAA", "ratings=SOVEREIGN"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %s", gotQuery, want)
		}
	}
	if strings.Contains(gotQuery, "quantityMax") {
		t.Fatalf("unset bound sent: %q", gotQuery)
	}
	for _, want := range []string{"Gilt Fund", "1500000.50", "7.25%", "page 1 of 1, 1 records"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListSessionExpired(t *testing.T) {
	srv, tokenFile := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, 401, map[string]any{"message": "Unauthorized"})
	})
	_, err := execute(t, "list", "--api-url", srv.URL, "--token-file", tokenFile)
	if !errors.Is(err, errSessionExpired) {
		t.Fatalf("err = %v, want session expired", err)
	}
}

func TestLoginRejected(t *testing.T) {
	srv, tokenFile := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, 401, map[string]any{"success": false, "message": "Invalid email or password"})
	})
	_, err := execute(t, "login", "--api-url", srv.URL, "--token-file", tokenFile, "--email", "x", "--password", "y")
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderPagePlaceholders(t *testing.T) {
	var buf bytes.Buffer
	mod := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	renderPage(&buf, &client.Page{
		Items: []client.Record{
			{ID: "1", SchemeName: "Liquid Fund", Quantity: ptr(0.0), ModifiedTime: &mod},
			{ID: "2", ReportDate: "31-Mar-2024"},
		},
		Total:      2,
		TotalPages: 1,
	}, 1)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	first := strings.Fields(lines[1])
	if first[0] != "Liquid" || !strings.Contains(lines[1], " 0 ") || !strings.Contains(lines[1], "2024-03-31") {
		t.Fatalf("row = %q", lines[1])
	}
	if strings.Count(lines[1], placeholder) != 7 {
		t.Fatalf("row placeholders = %q", lines[1])
	}
	if !strings.Contains(lines[2], "31-Mar-2024") {
		t.Fatalf("raw report date missing: %q", lines[2])
	}
}

func TestRunCommand(t *testing.T) {
	ch := make(chan client.FilterBundle, 16)
	agg := filterstate.NewAggregator(5*time.Millisecond, func(b client.FilterBundle) { ch <- b })
	defer agg.Close()
	next := func() client.FilterBundle {
		t.Helper()
		select {
		case b := <-ch:
			return b
		case <-time.After(2 * time.Second):
			t.Fatal("no emission")
		}
		return client.FilterBundle{}
	}

	if err := runCommand(agg, "page 3"); err != nil || next().Page != 3 {
		t.Fatal("page 3 not applied")
	}
	if err := runCommand(agg, "set scheme Liquid Fund"); err != nil {
		t.Fatal(err)
	}
	if b := next(); b.Scheme != "Liquid Fund" || b.Page != 1 {
		t.Fatalf("bundle = %+v", b)
	}
	if err := runCommand(agg, "set quantityMin 0"); err != nil {
		t.Fatal(err)
	}
	if b := next(); b.QuantityMin == nil || *b.QuantityMin != 0 {
		t.Fatalf("quantityMin = %v", b.QuantityMin)
	}
	if err := runCommand(agg, "ratings AAA, SOVEREIGN"); err != nil {
		t.Fatal(err)
	}
	if b := next(); len(b.Ratings) != 2 || b.Ratings[1] != "SOVEREIGN" {
		t.Fatalf("ratings = %v", b.Ratings)
	}

	for _, bad := range []string{"set colour red", "page x", "limit 0", "set ytmMax abc", "launch"} {
		if err := runCommand(agg, bad); err == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
	if err := runCommand(agg, "quit"); !errors.Is(err, errQuit) {
		t.Fatalf("quit = %v", err)
	}
}
