package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(ctx context.Context) error { return nil }

func down(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthChecker_AllHealthy(t *testing.T) {
	h := NewHealthChecker(time.Second, logrus.New())
	h.Register("backend", PingFunc(ok), true)
	h.Register("redis", PingFunc(ok), false)

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, overall.Status)
	require.Len(t, overall.Services, 2)
	assert.Equal(t, "backend", overall.Services[0].Name)
	assert.Equal(t, "redis", overall.Services[1].Name)
}

func TestHealthChecker_OptionalFailureDegrades(t *testing.T) {
	h := NewHealthChecker(time.Second, logrus.New())
	h.Register("backend", PingFunc(ok), true)
	h.Register("redis", PingFunc(down), false)

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusDegraded, overall.Status)
	assert.Equal(t, StatusUnhealthy, overall.Services[1].Status)
	assert.Equal(t, "connection refused", overall.Services[1].Error)
}

func TestHealthChecker_CriticalFailureIsUnhealthy(t *testing.T) {
	h := NewHealthChecker(time.Second, logrus.New())
	h.Register("redis", PingFunc(down), false)
	h.Register("backend", PingFunc(down), true)

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, overall.Status)
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	h := NewHealthChecker(20*time.Millisecond, logrus.New())
	h.Register("backend", PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), true)

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, overall.Status)
	assert.Contains(t, overall.Services[0].Error, "deadline")
}
