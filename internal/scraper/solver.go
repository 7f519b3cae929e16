package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// SolverSource fetches pages through a FlareSolverr instance, which renders
// them in its own browser and clears bot challenges first. A single solver
// session is created on first use and reused until Close.
type SolverSource struct {
	config Config
	client *resty.Client

	mu      sync.Mutex
	session string
}

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url,omitempty"`
	Session    string `json:"session,omitempty"`
	MaxTimeout int64  `json:"maxTimeout,omitempty"`
}

type solverResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Solution *solverSolution `json:"solution,omitempty"`
	StartTS  float64         `json:"startTimestamp"`
	EndTS    float64         `json:"endTimestamp"`
}

type solverSolution struct {
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Response  string `json:"response"`
	UserAgent string `json:"userAgent"`
}

// NewSolverSource creates a source backed by the FlareSolverr API at
// cfg.SolverURL (e.g. http://localhost:8191/v1).
func NewSolverSource(cfg Config) *SolverSource {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		// The solver may spend the whole navigation budget on a challenge.
		SetTimeout(cfg.NavTimeout + 15*time.Second)
	return &SolverSource{config: cfg, client: client}
}

// Name returns "solver".
func (s *SolverSource) Name() string { return "solver" }

func (s *SolverSource) call(ctx context.Context, req solverRequest) (solverResponse, int, error) {
	var out solverResponse
	// Failures come back as HTTP 500 with the same JSON body.
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(s.config.SolverURL)
	if err != nil {
		return out, 0, err
	}
	return out, resp.StatusCode(), nil
}

// ensureSession returns the shared session ID, creating it if needed.
// A failed attempt is not remembered.
func (s *SolverSource) ensureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != "" {
		return s.session, nil
	}

	id := "listingopt-" + uuid.NewString()
	out, _, err := s.call(ctx, solverRequest{Cmd: "sessions.create", Session: id})
	if err != nil {
		return "", s.transportError(err)
	}
	if out.Status != "ok" {
		return "", domain.Errorf(domain.KindExtraction, "fetch", "solver session create failed: %s", out.Message)
	}

	logger.DebugContext(ctx, "solver session created", "session", id)
	s.session = id
	return id, nil
}

// Fetch asks the solver for url and returns the rendered HTML.
func (s *SolverSource) Fetch(ctx context.Context, url string) (Page, error) {
	result := Page{URL: url, FetchedAt: time.Now()}

	session, err := s.ensureSession(ctx)
	if err != nil {
		return result, err
	}

	out, _, err := s.call(ctx, solverRequest{
		Cmd:        "request.get",
		URL:        url,
		Session:    session,
		MaxTimeout: s.config.NavTimeout.Milliseconds(),
	})
	if err != nil {
		return result, s.transportError(err)
	}
	if out.Status != "ok" {
		return result, classifySolverError(out.Message)
	}
	if out.Solution == nil {
		return result, domain.Errorf(domain.KindExtraction, "fetch", "solver returned no solution")
	}

	result.StatusCode = out.Solution.Status
	result.HTML = out.Solution.Response
	if result.StatusCode == http.StatusNotFound {
		return result, domain.Errorf(domain.KindNotFound, "fetch", "product page returned %d", result.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return result, domain.NewError(domain.KindExtraction, "parse", err)
	}
	result.Title = cleanText(doc.Find("title").First().Text())

	if challenge := detectChallengePage(result.Title, result.HTML); challenge != "" {
		logger.WarnContext(ctx, "bot check page served", "url", url, "type", challenge)
		return result, domain.Errorf(domain.KindExtraction, "fetch", "blocked by %s page", challenge)
	}

	logger.DebugContext(ctx, "solver fetch complete",
		"url", url,
		"status", result.StatusCode,
		"html_size", len(result.HTML),
		"solve_duration", time.Duration((out.EndTS-out.StartTS)*float64(time.Millisecond)))

	return result, nil
}

// Close destroys the solver session. Errors are logged, not returned.
func (s *SolverSource) Close() error {
	s.mu.Lock()
	session := s.session
	s.session = ""
	s.mu.Unlock()

	if session == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, _, err := s.call(ctx, solverRequest{Cmd: "sessions.destroy", Session: session})
	switch {
	case err != nil:
		logger.Debug("solver session destroy failed", "session", session, "error", err)
	case out.Status != "ok":
		logger.Debug("solver session destroy returned error", "session", session, "message", out.Message)
	default:
		logger.Debug("solver session destroyed", "session", session)
	}
	return nil
}

func (s *SolverSource) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewError(domain.KindTimeout, "fetch", fmt.Errorf("solver request timed out: %w", err))
	}
	return domain.NewError(domain.KindExtraction, "fetch", fmt.Errorf("solver unavailable: %w", err))
}

// classifySolverError maps a solver failure message to an error kind.
func classifySolverError(message string) error {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return domain.Errorf(domain.KindTimeout, "fetch", "solver timed out: %s", message)
	case strings.Contains(msg, "captcha"),
		strings.Contains(msg, "challenge"),
		strings.Contains(msg, "could not be solved"),
		strings.Contains(msg, "blocked"),
		strings.Contains(msg, "denied"),
		strings.Contains(msg, "403"):
		return domain.Errorf(domain.KindExtraction, "fetch", "solver blocked: %s", message)
	default:
		return domain.Errorf(domain.KindExtraction, "fetch", "solver failed: %s", message)
	}
}
