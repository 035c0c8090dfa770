package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	requestIDHeader = "X-Request-Id"
	passwordHeader  = "X-Dashboard-Password"
	loggerKey       = "logger"
)

// RequestLogger tags each request with a correlation id and logs its outcome.
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		entry := logger.WithField("request_id", id)
		c.Set(loggerKey, entry)

		c.Next()

		entry.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

func requestLogger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}

func correlationID(c *gin.Context) string {
	return c.Writer.Header().Get(requestIDHeader)
}

// PasswordGate rejects requests whose shared dashboard password does not match
// hash. An empty hash disables the gate.
func PasswordGate(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		pw := c.GetHeader(passwordHeader)
		if pw == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": "missing or wrong dashboard password"})
			return
		}
		c.Next()
	}
}

// CORS allows the dashboard origins. No origins means any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", passwordHeader, requestIDHeader, "Idempotency-Key"},
		ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
