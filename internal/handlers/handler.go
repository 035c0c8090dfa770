package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/app"
	"github.com/maisoncleo/atelier-tracker/internal/archive"
	"github.com/maisoncleo/atelier-tracker/internal/assignments"
	"github.com/maisoncleo/atelier-tracker/internal/dashboard"
	"github.com/maisoncleo/atelier-tracker/internal/deadline"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
	"github.com/maisoncleo/atelier-tracker/internal/syncer"
	"github.com/maisoncleo/atelier-tracker/internal/workers"
)

// HandlerConfig groups dependencies for the API routes.
type HandlerConfig struct {
	App *app.App
}

// RegisterRoutes mounts every /api route on r.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	RegisterSyncRoutes(r, cfg)
	RegisterOrdersRoutes(r, cfg)
	RegisterProductionRoutes(r, cfg)
	RegisterAssignmentsRoutes(r, cfg)
	RegisterWorkersRoutes(r, cfg)
	RegisterArchivesRoutes(r, cfg)
	RegisterDelaiRoutes(r, cfg)
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, production.ErrNotFound),
		errors.Is(err, assignments.ErrArticleNotFound),
		errors.Is(err, archive.ErrNotFound),
		errors.Is(err, dashboard.ErrNotFound),
		errors.Is(err, workers.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, assignments.ErrInvalidArticle),
		errors.Is(err, assignments.ErrAmbiguousArticle),
		errors.Is(err, assignments.ErrInvalidStatus),
		errors.Is(err, production.ErrInvalidType),
		errors.Is(err, deadline.ErrInvalidConfig),
		errors.Is(err, jobs.ErrInvalidMessage):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, syncer.ErrSyncInProgress):
		status, code = http.StatusConflict, "sync_in_progress"
	}
	if status == http.StatusInternalServerError {
		requestLogger(c).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "detail": err.Error()})
}

// pathID parses a numeric path parameter, writing a 400 when it is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id", "detail": "malformed " + name})
		return 0, false
	}
	return id, true
}
