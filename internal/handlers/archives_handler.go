package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/archive"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func periodParam(c *gin.Context) (archive.Period, bool) {
	p := archive.Period(c.DefaultQuery("period", string(archive.Month)))
	if !p.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "period must be week, month or year"})
		return "", false
	}
	return p, true
}

// RegisterArchivesRoutes registers the archive listing and statistics routes.
func RegisterArchivesRoutes(r gin.IRouter, cfg HandlerConfig) {
	a := cfg.App

	r.GET("/api/archives", func(c *gin.Context) {
		list, err := a.Archive.Archives().List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/api/archives/stats", func(c *gin.Context) {
		p, ok := periodParam(c)
		if !ok {
			return
		}
		stats, err := a.Archive.Stats(c.Request.Context(), p, a.Location)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.GET("/api/archives/stats.xlsx", func(c *gin.Context) {
		p, ok := periodParam(c)
		if !ok {
			return
		}
		data, err := a.Archive.ExportStats(c.Request.Context(), p, a.Location)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="statistiques-`+string(p)+`.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, data)
	})
}
