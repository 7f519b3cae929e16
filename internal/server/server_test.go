package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/listingopt/internal/asin"
	"github.com/jmylchreest/listingopt/internal/config"
	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/pipeline"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeOptimizer struct {
	res  pipeline.Result
	err  error
	last pipeline.Request
}

func (f *fakeOptimizer) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

type fakeRecords struct {
	recs    []domain.Record
	history []domain.HistoryEntry
	err     error
	asked   string
}

func (f *fakeRecords) Get(_ context.Context, id int64) (domain.Record, error) {
	for _, r := range f.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Record{}, domain.Errorf(domain.KindNotFound, "store", "optimization %d not found", id)
}

func (f *fakeRecords) List(context.Context) ([]domain.Record, error) {
	return f.recs, f.err
}

func (f *fakeRecords) ListByASIN(_ context.Context, code string) ([]domain.Record, error) {
	f.asked = code
	return f.recs, f.err
}

func (f *fakeRecords) History(_ context.Context, code string) ([]domain.HistoryEntry, error) {
	f.asked = code
	return f.history, f.err
}

var sampleResult = pipeline.Result{
	ID:     7,
	ASIN:   "B0ABCDEFGH",
	Region: domain.RegionIN,
	Original: domain.Listing{
		ASIN:        "B0ABCDEFGH",
		Region:      domain.RegionIN,
		Title:       "Widget Pro 3000",
		Bullets:     []string{"Dual band wireless with automatic channel switching"},
		Description: "Dual band wireless with automatic channel switching",
	},
	Optimized: domain.Rewrite{
		Title:       "Widget Pro 3000 Dual Band Router",
		Bullets:     []string{"a", "b", "c"},
		Description: "d",
		Keywords:    []string{"k"},
	},
	Warnings: []string{"Need at least 3 keywords"},
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Environment = "test"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.RateLimit.PerIP = 0
	return cfg
}

func setupTestRouter(opt Optimizer, recs Records) *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(opt, recs), nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, out
}

// --- Handler Tests ---

func TestHealthCheck(t *testing.T) {
	w, body := do(t, setupTestRouter(&fakeOptimizer{}, &fakeRecords{}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if body["status"] != "healthy" || body["service"] != "listingopt" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["version"]; !ok {
		t.Error("version missing")
	}
}

func TestOptimize_Success(t *testing.T) {
	opt := &fakeOptimizer{res: sampleResult}
	w, body := do(t, setupTestRouter(opt, &fakeRecords{}), http.MethodPost, "/api/optimize",
		`{"asin":"b0abcdefgh","region":"us","stream":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, body = %s", w.Code, w.Body.String())
	}
	if opt.last.ASIN != "b0abcdefgh" || opt.last.Region != "us" || !opt.last.Stream {
		t.Errorf("request passed through as %+v", opt.last)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}

	data := body["data"].(map[string]any)
	if data["id"] != float64(7) || data["asin"] != "B0ABCDEFGH" || data["region"] != "IN" {
		t.Errorf("data = %v", data)
	}
	original := data["original"].(map[string]any)
	if original["title"] != "Widget Pro 3000" {
		t.Errorf("original = %v", original)
	}
	if _, has := original["asin"]; has {
		t.Error("original should only carry the text fields")
	}
	optimized := data["optimized"].(map[string]any)
	for _, k := range []string{"title", "bullets", "description", "keywords"} {
		if _, has := optimized[k]; !has {
			t.Errorf("optimized missing %q", k)
		}
	}
	warnings := data["validationWarnings"].([]any)
	if len(warnings) != 1 || warnings[0] != "Need at least 3 keywords" {
		t.Errorf("validationWarnings = %v", warnings)
	}
}

func TestOptimize_NumericASINPassedThrough(t *testing.T) {
	opt := &fakeOptimizer{res: sampleResult}
	w, _ := do(t, setupTestRouter(opt, &fakeRecords{}), http.MethodPost, "/api/optimize", `{"asin":1234567890}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if opt.last.ASIN != float64(1234567890) {
		t.Errorf("ASIN = %#v", opt.last.ASIN)
	}
	if code, err := asin.Normalize(opt.last.ASIN); err != nil || code != "1234567890" {
		t.Errorf("Normalize(%#v) = %q, %v", opt.last.ASIN, code, err)
	}
}

func TestOptimize_BadBody(t *testing.T) {
	w, body := do(t, setupTestRouter(&fakeOptimizer{}, &fakeRecords{}), http.MethodPost, "/api/optimize", `{"asin":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d", w.Code)
	}
	if body["success"] != false || !strings.Contains(body["error"].(string), "invalid request body") {
		t.Errorf("body = %v", body)
	}
}

func TestOptimize_StatusMapping(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindInvalidIdentifier, http.StatusBadRequest},
		{domain.KindInvalidRegion, http.StatusBadRequest},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindTimeout, http.StatusGatewayTimeout},
		{domain.KindExtraction, http.StatusBadGateway},
		{domain.KindResponseShape, http.StatusBadGateway},
		{domain.KindConfiguration, http.StatusInternalServerError},
		{domain.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			opt := &fakeOptimizer{err: domain.Errorf(tt.kind, "test", "boom")}
			w, body := do(t, setupTestRouter(opt, &fakeRecords{}), http.MethodPost, "/api/optimize", `{"asin":"B0ABCDEFGH"}`)
			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
			if body["success"] != false || body["error"] == "" {
				t.Errorf("body = %v", body)
			}
		})
	}

	if got := StatusFor(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("StatusFor(plain) = %d", got)
	}
}

func TestListOptimizations(t *testing.T) {
	recs := &fakeRecords{recs: []domain.Record{{ID: 2}, {ID: 1}}}
	w, body := do(t, setupTestRouter(&fakeOptimizer{}, recs), http.MethodGet, "/api/optimizations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	data := body["data"].(map[string]any)
	if data["count"] != float64(2) || len(data["optimizations"].([]any)) != 2 {
		t.Errorf("data = %v", data)
	}
}

func TestGetOptimization(t *testing.T) {
	recs := &fakeRecords{recs: []domain.Record{{ID: 5, CreatedAt: time.Now()}}}
	router := setupTestRouter(&fakeOptimizer{}, recs)

	w, body := do(t, router, http.MethodGet, "/api/optimizations/5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if body["data"].(map[string]any)["id"] != float64(5) {
		t.Errorf("body = %v", body)
	}

	w, body = do(t, router, http.MethodGet, "/api/optimizations/6", "")
	if w.Code != http.StatusNotFound || body["error"] != "Optimization not found" {
		t.Errorf("missing: Status = %d, body = %v", w.Code, body)
	}

	w, _ = do(t, router, http.MethodGet, "/api/optimizations/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric: Status = %d", w.Code)
	}
}

func TestHistoryAndChanges(t *testing.T) {
	recs := &fakeRecords{
		recs:    []domain.Record{{ID: 3}, {ID: 1}},
		history: []domain.HistoryEntry{{ID: 3, ASIN: "B0ABCDEFGH"}},
	}
	router := setupTestRouter(&fakeOptimizer{}, recs)

	w, body := do(t, router, http.MethodGet, "/api/history/b0abcdefgh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history Status = %d", w.Code)
	}
	data := body["data"].(map[string]any)
	if data["asin"] != "B0ABCDEFGH" || data["count"] != float64(2) || recs.asked != "B0ABCDEFGH" {
		t.Errorf("history data = %v", data)
	}

	w, body = do(t, router, http.MethodGet, "/api/changes/B0ABCDEFGH", "")
	if w.Code != http.StatusOK {
		t.Fatalf("changes Status = %d", w.Code)
	}
	data = body["data"].(map[string]any)
	if data["count"] != float64(1) || len(data["history"].([]any)) != 1 {
		t.Errorf("changes data = %v", data)
	}

	w, _ = do(t, router, http.MethodGet, "/api/history/short", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid asin: Status = %d", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	w, body := do(t, setupTestRouter(&fakeOptimizer{}, &fakeRecords{}), http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || body["success"] != false {
		t.Errorf("Status = %d, body = %v", w.Code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := pipeline.NewMetrics()
	m.IncRun("success")
	router := SetupRouter(testConfig(), NewHandler(&fakeOptimizer{}, &fakeRecords{}), m.Registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `listingopt_runs_total{outcome="success"} 1`) {
		t.Errorf("metrics output missing run counter:\n%s", w.Body.String())
	}
}
