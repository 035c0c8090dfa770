package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/validation"
)

// RegisterDelaiRoutes registers the deadline configuration routes.
func RegisterDelaiRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	a := cfg.App

	r.GET("/api/delai", func(c *gin.Context) {
		conf, err := a.Deadlines.Get(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conf)
	})

	r.PUT("/api/delai", func(c *gin.Context) {
		var req validation.DelaiRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		conf, err := a.Deadlines.Set(c.Request.Context(), req.JoursDelai, req.JoursOuvrables)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conf)
	})
}
