package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/idempotency"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/validation"
)

// RegisterSyncRoutes registers the sync trigger, cancel, log and job status routes.
func RegisterSyncRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	a := cfg.App

	r.POST("/api/sync", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SyncRequest
		if c.Request.ContentLength != 0 {
			if err := validation.BindAndValidate(c, &req, v); err != nil {
				return
			}
		}
		msg := jobs.Message{
			JobType:        jobs.TypeSync,
			IdempotencyKey: c.GetHeader("Idempotency-Key"),
			Since:          req.Since,
			CorrelationID:  correlationID(c),
		}

		if c.Query("async") == "true" {
			enqueueJob(c, cfg, msg)
			return
		}

		since, err := msg.SinceIn(a.Location)
		if err != nil {
			respondError(c, err)
			return
		}
		res, err := a.Engine.Run(ctx, since)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.POST("/api/sync/cancel", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cancelled": a.Engine.Cancel()})
	})

	r.GET("/api/sync/log", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"log": a.Engine.LastLog()})
	})

	r.GET("/api/jobs/:key", func(c *gin.Context) {
		rec, err := a.Ledger.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			respondError(c, err)
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": "unknown job"})
			return
		}
		c.JSON(http.StatusOK, rec)
	})
}

// enqueueJob queues msg once per idempotency key. A repeated key answers with
// the state of the first request instead of queueing again.
func enqueueJob(c *gin.Context, cfg HandlerConfig, msg jobs.Message) {
	if cfg.App.Enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue_not_configured", "detail": "SYNC_QUEUE_URL is not set"})
		return
	}
	rec, queued, err := cfg.App.Enqueuer.Enqueue(c.Request.Context(), msg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/api/jobs/"+rec.IdempotencyKey)
	if queued {
		c.JSON(http.StatusAccepted, rec)
		return
	}

	switch rec.Status {
	case idempotency.StatusDone:
		var result json.RawMessage
		if rec.Result != "" && json.Valid([]byte(rec.Result)) {
			result = json.RawMessage(rec.Result)
		}
		c.JSON(http.StatusOK, gin.H{"job": rec, "result": result})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, rec)
	default:
		// let client retry with a new key
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "detail": rec.Note})
	}
}
