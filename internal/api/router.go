package api

import (
	"github.com/Ayash-Bera/ticketconsole/internal/api/handlers"
	"github.com/Ayash-Bera/ticketconsole/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the console HTTP surface. limiter may be nil.
func NewRouter(h *handlers.ConsoleHandler, limiter *middleware.RateLimiter, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	if limiter != nil {
		r.Use(limiter.RateLimit())
	}

	h.Register(r)
	return r
}
