package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/listingopt/internal/asin"
	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/pipeline"
	"github.com/jmylchreest/listingopt/internal/version"
)

// Optimizer runs one optimization.
type Optimizer interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Records reads stored optimizations.
type Records interface {
	Get(ctx context.Context, id int64) (domain.Record, error)
	List(ctx context.Context) ([]domain.Record, error)
	ListByASIN(ctx context.Context, asin string) ([]domain.Record, error)
	History(ctx context.Context, asin string) ([]domain.HistoryEntry, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	optimizer Optimizer
	records   Records
}

// NewHandler creates a Handler.
func NewHandler(optimizer Optimizer, records Records) *Handler {
	return &Handler{optimizer: optimizer, records: records}
}

type optimizeRequest struct {
	ASIN   any    `json:"asin"`
	Region string `json:"region"`
	Stream bool   `json:"stream"`
}

type originalView struct {
	Title       string   `json:"title"`
	Bullets     []string `json:"bullets"`
	Description string   `json:"description"`
}

type optimizeResponse struct {
	ID                 int64          `json:"id"`
	ASIN               string         `json:"asin"`
	Region             domain.Region  `json:"region"`
	Original           originalView   `json:"original"`
	Optimized          domain.Rewrite `json:"optimized"`
	ValidationWarnings []string       `json:"validationWarnings"`
}

// HealthCheck reports liveness and the running version.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": version.Service,
		"version": version.String(),
	})
}

// Optimize runs the pipeline for the posted identifier.
func (h *Handler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.optimizer.Run(c.Request.Context(), pipeline.Request{
		ASIN:   req.ASIN,
		Region: req.Region,
		Stream: req.Stream,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, optimizeResponse{
		ID:     res.ID,
		ASIN:   res.ASIN,
		Region: res.Region,
		Original: originalView{
			Title:       res.Original.Title,
			Bullets:     res.Original.Bullets,
			Description: res.Original.Description,
		},
		Optimized:          res.Optimized,
		ValidationWarnings: res.Warnings,
	})
}

// ListOptimizations returns the most recent optimizations.
func (h *Handler) ListOptimizations(c *gin.Context) {
	recs, err := h.records.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"count": len(recs), "optimizations": recs})
}

// GetOptimization returns one optimization by ID.
func (h *Handler) GetOptimization(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid optimization id")
		return
	}

	rec, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			fail(c, http.StatusNotFound, "Optimization not found")
			return
		}
		failErr(c, err)
		return
	}
	ok(c, rec)
}

// History returns every optimization for an identifier, newest first.
func (h *Handler) History(c *gin.Context) {
	code, valid := h.pathASIN(c)
	if !valid {
		return
	}
	recs, err := h.records.ListByASIN(c.Request.Context(), code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"asin": code, "count": len(recs), "optimizations": recs})
}

// Changes returns the optimized fields of each run for an identifier.
func (h *Handler) Changes(c *gin.Context) {
	code, valid := h.pathASIN(c)
	if !valid {
		return
	}
	entries, err := h.records.History(c.Request.Context(), code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"asin": code, "count": len(entries), "history": entries})
}

func (h *Handler) pathASIN(c *gin.Context) (string, bool) {
	code, err := asin.Normalize(c.Param("asin"))
	if err != nil {
		failErr(c, err)
		return "", false
	}
	return code, true
}
