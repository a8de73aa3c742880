package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

type SystemHandler struct {
	DB      Pinger
	Redis   Pinger
	Breaker func() string
}

// Health answers 200 when the database is reachable. Redis only degrades
// the status since the cache and the sweeper lease are optional paths.
func (h SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status, code := "ok", http.StatusOK
	if h.DB != nil {
		if err := h.DB(ctx); err != nil {
			checks["database"] = err.Error()
			status, code = "down", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if h.Redis != nil {
		if err := h.Redis(ctx); err != nil {
			checks["redis"] = err.Error()
			if code == http.StatusOK {
				status = "degraded"
			}
		} else {
			checks["redis"] = "ok"
		}
	}
	if h.Breaker != nil {
		checks["card_service_breaker"] = h.Breaker()
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
