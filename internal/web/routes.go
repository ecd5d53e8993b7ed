// Package web serves the export ledger and metrics over HTTP while the
// exporter runs on a schedule.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sstent/garminexport/internal/database"
)

// ErrRunInProgress is returned by a Runner asked to start while a run is active.
var ErrRunInProgress = errors.New("an export is already running")

// Runner starts an export in the background.
type Runner interface {
	Start(ctx context.Context) error
}

type WebHandler struct {
	ledger database.Ledger
	runner Runner
	logger *log.Logger
}

// NewWebHandler creates the handler. runner may be nil, which disables
// POST /export.
func NewWebHandler(ledger database.Ledger, runner Runner, logger *log.Logger) *WebHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WebHandler{
		ledger: ledger,
		runner: runner,
		logger: logger,
	}
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(h *WebHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/stats", h.Stats)
	router.GET("/exports", h.ExportList)
	router.GET("/exports/:id", h.ActivityExports)
	router.GET("/exports/:id/:format", h.ExportDetail)
	router.POST("/export", h.Export)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *WebHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *WebHandler) Stats(c *gin.Context) {
	stats, err := h.ledger.GetStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportList lists ledger rows. Query parameters: format, type, run,
// from/to (YYYY-MM-DD or RFC3339), min_distance/max_distance (meters),
// downloaded, sort, order, limit (default 50) and offset.
func (h *WebHandler) ExportList(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exports, err := h.ledger.FilterExports(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	if exports == nil {
		exports = []database.Export{}
	}
	c.JSON(http.StatusOK, exports)
}

func (h *WebHandler) ActivityExports(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}

	exports, err := h.ledger.GetActivityExports(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(exports) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": database.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, exports)
}

func (h *WebHandler) ExportDetail(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}

	e, err := h.ledger.GetExport(c.Request.Context(), id, c.Param("format"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Export starts a run and answers before it finishes.
func (h *WebHandler) Export(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "exports are not triggered over http"})
		return
	}
	err := h.runner.Start(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *WebHandler) fail(c *gin.Context, err error) {
	h.logger.Error("request failed", "path", c.FullPath(), "err", err)
	c.AbortWithStatus(http.StatusInternalServerError)
}

func activityID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseFilters(c *gin.Context) (database.ExportFilters, error) {
	f := database.ExportFilters{
		Format:       c.Query("format"),
		ActivityType: c.Query("type"),
		RunID:        c.Query("run"),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
		Limit:        50,
	}

	var err error
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit <= 0 {
			return f, errors.New("limit must be a positive number")
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, errors.New("offset must be a non-negative number")
		}
	}
	if v := c.Query("min_distance"); v != "" {
		if f.MinDistance, err = strconv.ParseFloat(v, 64); err != nil {
			return f, errors.New("min_distance must be a number")
		}
	}
	if v := c.Query("max_distance"); v != "" {
		if f.MaxDistance, err = strconv.ParseFloat(v, 64); err != nil {
			return f, errors.New("max_distance must be a number")
		}
	}
	if v := c.Query("downloaded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("downloaded must be true or false")
		}
		f.Downloaded = &b
	}
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.DateFrom = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.DateTo = &t
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD or RFC3339")
	}
	return t, nil
}
