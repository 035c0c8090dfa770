package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/validation"
	"github.com/maisoncleo/atelier-tracker/internal/workers"
)

func toWorker(req validation.WorkerRequest) workers.Worker {
	w := workers.Worker{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Color:    req.Color,
		PhotoURL: req.PhotoURL,
		Gender:   req.Gender,
		Active:   true,
	}
	if req.Active != nil {
		w.Active = *req.Active
	}
	return w
}

// RegisterWorkersRoutes registers the tricoteuse CRUD routes.
func RegisterWorkersRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	store := cfg.App.Workers

	r.GET("/api/tricoteuses", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/api/tricoteuses/:id", func(c *gin.Context) {
		w, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if w == nil {
			respondError(c, workers.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, w)
	})

	r.POST("/api/tricoteuses", func(c *gin.Context) {
		var req validation.WorkerRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		w, err := store.Create(c.Request.Context(), toWorker(req))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Location", "/api/tricoteuses/"+w.ID)
		c.JSON(http.StatusCreated, w)
	})

	r.PUT("/api/tricoteuses/:id", func(c *gin.Context) {
		var req validation.WorkerRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		w, err := store.Update(c.Request.Context(), c.Param("id"), toWorker(req))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, w)
	})

	r.DELETE("/api/tricoteuses/:id", func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
