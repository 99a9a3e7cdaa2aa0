package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is anything that can answer a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type check struct {
	name     string
	pinger   Pinger
	critical bool
}

// HealthChecker manages health checks for the console's dependencies.
// A failing critical dependency makes the whole console unhealthy; an
// optional one only degrades it.
type HealthChecker struct {
	checks  []check
	timeout time.Duration
	logger  *logrus.Logger
	started time.Time
}

func NewHealthChecker(timeout time.Duration, logger *logrus.Logger) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout: timeout,
		logger:  logger,
		started: time.Now(),
	}
}

// Register adds a dependency to check.
func (h *HealthChecker) Register(name string, p Pinger, critical bool) {
	h.checks = append(h.checks, check{name: name, pinger: p, critical: critical})
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

// CheckAll pings every registered dependency concurrently.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, len(h.checks))

	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			services[i] = h.ping(ctx, c)
		}(i, c)
	}
	wg.Wait()

	overallStatus := StatusHealthy
	for i, service := range services {
		if service.Status == StatusHealthy {
			continue
		}
		if h.checks[i].critical {
			overallStatus = StatusUnhealthy
			break
		}
		overallStatus = StatusDegraded
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
}

func (h *HealthChecker) ping(ctx context.Context, c check) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", c.name).Error("Health check failed")
	}

	return ServiceHealth{
		Name:         c.name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}
