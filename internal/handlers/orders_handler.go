package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/validation"
)

// RegisterOrdersRoutes registers the enriched order reads and the order
// delete, archive and note routes.
func RegisterOrdersRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	a := cfg.App

	r.GET("/api/orders", func(c *gin.Context) {
		list, err := a.Dashboard.ListOrders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/api/orders/search/:number", func(c *gin.Context) {
		o, err := a.Dashboard.SearchByNumber(c.Request.Context(), c.Param("number"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	})

	r.DELETE("/api/orders/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		res, err := a.Archive.DeleteOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.POST("/api/orders/:id/archive", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		arch, err := a.Archive.ArchiveOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, arch)
	})

	r.PUT("/api/orders/:id/note", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req validation.NoteRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		o, err := a.Orders.UpdateNote(c.Request.Context(), id, req.CustomerNote)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	})
}
