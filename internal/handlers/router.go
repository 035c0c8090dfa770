package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine: health check, CORS, request logging and
// the password-gated /api routes.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.App.Config.AllowedOrigins))
	r.Use(RequestLogger(cfg.App.Logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("", PasswordGate(cfg.App.Config.DashboardPassword))
	RegisterRoutes(api, cfg)
	return r
}
