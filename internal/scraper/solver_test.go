package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/listingopt/internal/domain"
)

// fakeSolver mimics the FlareSolverr v1 API.
type fakeSolver struct {
	t     *testing.T
	pages map[string]string

	mu   sync.Mutex
	cmds []string
}

func (f *fakeSolver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req solverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("bad solver request: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.cmds = append(f.cmds, req.Cmd)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch req.Cmd {
	case "sessions.create", "sessions.destroy":
		if req.Session == "" {
			f.t.Error("session command without a session ID")
		}
		_, _ = w.Write([]byte(`{"status":"ok","message":""}`))
	case "request.get":
		if req.MaxTimeout <= 0 {
			f.t.Error("request.get without maxTimeout")
		}
		path := req.URL[strings.Index(req.URL, "/dp/"):]
		body, ok := f.pages[path]
		switch {
		case path == "/dp/B0SOLVERTO":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"Error solving the challenge. Timeout after 30.0 seconds."}`))
			return
		case path == "/dp/B0BLOCKED0":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"Captcha detected but no automatic solver is configured."}`))
			return
		case !ok:
			_ = json.NewEncoder(w).Encode(solverResponse{Status: "ok", Solution: &solverSolution{Status: 404, Response: "<html></html>"}})
			return
		}
		_ = json.NewEncoder(w).Encode(solverResponse{
			Status:   "ok",
			Solution: &solverSolution{URL: req.URL, Status: 200, Response: body},
			StartTS:  1000,
			EndTS:    2500,
		})
	default:
		f.t.Errorf("unexpected cmd %q", req.Cmd)
	}
}

func (f *fakeSolver) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

func newSolverScraper(t *testing.T) (*Scraper, *fakeSolver) {
	t.Helper()
	fake := &fakeSolver{t: t, pages: map[string]string{
		"/dp/B0ABCDEFGH": readTestdata(t, "product_minimal.html"),
		"/dp/B0CAPTCHA0": readTestdata(t, "captcha.html"),
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	src := NewSolverSource(Config{SolverURL: srv.URL + "/v1", NavTimeout: 5 * time.Second})
	return New(src, WithBaseURL("https://www.amazon.in/dp/")), fake
}

func TestSolverSource_Scrape(t *testing.T) {
	s, fake := newSolverScraper(t)

	listing, err := s.Scrape(context.Background(), "B0ABCDEFGH", domain.RegionIN)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if listing.Title != "Widget Pro 3000" || len(listing.Bullets) != 2 {
		t.Errorf("listing = %+v", listing)
	}

	if _, err := s.Scrape(context.Background(), "B0ABCDEFGH", domain.RegionIN); err != nil {
		t.Fatalf("second Scrape() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []string{"sessions.create", "request.get", "request.get", "sessions.destroy"}
	if got := fake.commands(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestSolverSource_ErrorKinds(t *testing.T) {
	s, _ := newSolverScraper(t)
	defer s.Close()

	tests := []struct {
		asin string
		want error
	}{
		{"B0MISSING0", domain.ErrNotFound},
		{"B0SOLVERTO", domain.ErrTimeout},
		{"B0BLOCKED0", domain.ErrExtraction},
		{"B0CAPTCHA0", domain.ErrExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.asin, func(t *testing.T) {
			_, err := s.Scrape(context.Background(), tt.asin, domain.RegionIN)
			if !errors.Is(err, tt.want) {
				t.Errorf("Scrape() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSolverSource_Unreachable(t *testing.T) {
	src := NewSolverSource(Config{SolverURL: "http://127.0.0.1:1/v1", NavTimeout: time.Second})
	_, err := src.Fetch(context.Background(), "https://www.amazon.in/dp/B0ABCDEFGH")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("Fetch() error = %v, want extraction error", err)
	}
	if src.session != "" {
		t.Error("failed session create should not be cached")
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSolverSource_SessionCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"Error creating browser session"}`))
	}))
	defer srv.Close()

	src := NewSolverSource(Config{SolverURL: srv.URL + "/v1", NavTimeout: time.Second})
	_, err := src.Fetch(context.Background(), "https://www.amazon.in/dp/B0ABCDEFGH")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("Fetch() error = %v, want extraction error", err)
	}
	if src.session != "" {
		t.Error("rejected session create should not be cached")
	}
}

func TestNewSource_SolverNeedsURL(t *testing.T) {
	if _, err := NewSource("solver", Config{}); err == nil {
		t.Error("expected error without solver URL")
	}
	src, err := NewSource("solver", Config{SolverURL: "http://localhost:8191/v1"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if src.Name() != "solver" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestClassifySolverError(t *testing.T) {
	tests := []struct {
		msg  string
		want domain.Kind
	}{
		{"Timeout after 60.0 seconds", domain.KindTimeout},
		{"Cloudflare challenge could not be solved", domain.KindExtraction},
		{"Access denied (403)", domain.KindExtraction},
		{"Browser crashed", domain.KindExtraction},
	}
	for _, tt := range tests {
		if got := domain.KindOf(classifySolverError(tt.msg)); got != tt.want {
			t.Errorf("classifySolverError(%q) kind = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
