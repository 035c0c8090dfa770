package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/production"
	"github.com/maisoncleo/atelier-tracker/internal/validation"
)

func itemKey(ref validation.ItemRef) production.Key {
	return production.Key{OrderID: ref.OrderID, LineItemID: ref.LineItemID}
}

// RegisterProductionRoutes registers the production queue routes.
func RegisterProductionRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	a := cfg.App

	r.GET("/api/production/:type", func(c *gin.Context) {
		t := c.Param("type")
		if !production.ValidType(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "unknown production type " + t})
			return
		}
		list, err := a.Dashboard.ListByProductionType(c.Request.Context(), t)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.POST("/api/production/dispatch", func(c *gin.Context) {
		var req validation.DispatchRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		st, err := a.Dispatcher.DispatchAs(c.Request.Context(), itemKey(req.ItemRef), req.ProductionType, req.AssignedTo)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, st)
	})

	r.POST("/api/production/redispatch", func(c *gin.Context) {
		var req validation.RedispatchRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		st, err := a.Dispatcher.Redispatch(c.Request.Context(), itemKey(req.ItemRef), req.NewType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})

	r.PUT("/api/production/status", func(c *gin.Context) {
		var req validation.StatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		st, err := a.Reconciler.SetStatus(c.Request.Context(), itemKey(req.ItemRef), req.Status, req.Notes, req.Urgent)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})

	r.PUT("/api/production/urgent", func(c *gin.Context) {
		var req validation.UrgentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		st, err := a.Dispatcher.SetUrgent(c.Request.Context(), itemKey(req.ItemRef), *req.Urgent)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})

	r.POST("/api/production/sweep", func(c *gin.Context) {
		if c.Query("async") == "true" {
			enqueueJob(c, cfg, jobs.Message{
				JobType:        jobs.TypeSweep,
				IdempotencyKey: c.GetHeader("Idempotency-Key"),
				CorrelationID:  correlationID(c),
			})
			return
		}
		n, err := a.Dispatcher.SweepUndispatched(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, jobs.SweepResult{Dispatched: n})
	})

	r.POST("/api/production/reset", func(c *gin.Context) {
		res, err := a.Reconciler.ResetAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}
