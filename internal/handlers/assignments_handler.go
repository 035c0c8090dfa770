package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/assignments"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/validation"
)

// RegisterAssignmentsRoutes registers the assignment routes. Every write keeps
// the production status of the article in step.
func RegisterAssignmentsRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	a := cfg.App

	r.GET("/api/assignments", func(c *gin.Context) {
		list, err := a.Reconciler.Assignments().List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.POST("/api/assignments", func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.AssignmentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		key, err := a.Reconciler.Resolve(ctx, req.ArticleID)
		if err != nil {
			respondError(c, err)
			return
		}
		asg, err := a.Reconciler.Assign(ctx, assignments.AssignRequest{
			Key:            key,
			TricoteuseID:   req.TricoteuseID,
			TricoteuseName: req.TricoteuseName,
			Status:         req.Status,
			Urgent:         req.Urgent,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, asg)
	})

	r.DELETE("/api/assignments/:id", func(c *gin.Context) {
		deleted, err := a.Reconciler.Unassign(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	})

	r.POST("/api/assignments/reconcile", func(c *gin.Context) {
		if c.Query("async") == "true" {
			enqueueJob(c, cfg, jobs.Message{
				JobType:        jobs.TypeReconcile,
				IdempotencyKey: c.GetHeader("Idempotency-Key"),
				CorrelationID:  correlationID(c),
			})
			return
		}
		res, err := a.Reconciler.Reconcile(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}
