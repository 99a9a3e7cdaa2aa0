package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/config"
	"github.com/Ayash-Bera/ticketconsole/internal/console"
	"github.com/Ayash-Bera/ticketconsole/internal/health"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct {
	mu         sync.Mutex
	tickets    []models.Ticket
	alerts     []models.Alert
	created    []models.CreateTicketRequest
	updated    map[models.ID]models.Status
	predictErr error
	submit     func(ctx context.Context) error
	history    []models.FeedbackEntry
}

func (s *stubBackend) ListKnowledge(ctx context.Context) ([]models.Article, error) {
	return []models.Article{
		{ID: "10", Title: "Reset your password", Category: "account"},
		{ID: "11", Title: "Configure SSO", Category: "security"},
	}, nil
}

func (s *stubBackend) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Ticket(nil), s.tickets...), nil
}

func (s *stubBackend) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	return &models.Ticket{
		ID:                    "5",
		CustomerName:          req.CustomerName,
		Title:                 req.Title,
		Description:           req.Description,
		Status:                req.Status,
		CreatedAt:             req.CreatedAt,
		RecommendedArticleIDs: []models.ID{"10"},
	}, nil
}

func (s *stubBackend) UpdateTicketStatus(ctx context.Context, id models.ID, status models.Status) (*models.TicketPatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated == nil {
		s.updated = make(map[models.ID]models.Status)
	}
	s.updated[id] = status
	updatedAt := "2025-01-02T00:00:00Z"
	return &models.TicketPatch{Status: &status, UpdatedAt: &updatedAt}, nil
}

func (s *stubBackend) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	if s.predictErr != nil {
		return nil, s.predictErr
	}
	return &models.PredictResponse{}, nil
}

func (s *stubBackend) SubmitFeedback(ctx context.Context, record models.FeedbackRecord) (*models.FeedbackResponse, error) {
	if s.submit != nil {
		if err := s.submit(ctx); err != nil {
			return nil, err
		}
	}
	return &models.FeedbackResponse{Metrics: &struct {
		Accuracy float64 `json:"accuracy"`
	}{Accuracy: 0.75}}, nil
}

func (s *stubBackend) ListFeedback(ctx context.Context) ([]models.FeedbackEntry, error) {
	return s.history, nil
}

func (s *stubBackend) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Alert(nil), s.alerts...), nil
}

func (s *stubBackend) DeleteAlert(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts[:index:index], s.alerts[index+1:]...)
	return nil
}

func (s *stubBackend) Analytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	return &models.AnalyticsSnapshot{
		Summary: models.AnalyticsSummary{TotalTickets: 4, CoveragePercent: 50},
	}, nil
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func setup(t *testing.T, backend *stubBackend, ping health.PingFunc) *gin.Engine {
	t.Helper()
	return setupWith(t, backend, ping, &config.Config{}, clock.NewFake(time.Now()))
}

// setupWith builds the router over a console using cfg. A nil clk uses
// real time.
func setupWith(t *testing.T, backend *stubBackend, ping health.PingFunc, cfg *config.Config, clk clock.Clock) *gin.Engine {
	t.Helper()
	logger := logrus.New()
	c := console.New(backend, cfg, logger, console.Options{Clock: clk})
	t.Cleanup(c.Close)
	_, err := c.Tickets.Refresh(context.Background())
	require.NoError(t, err)
	_, err = c.Knowledge.Load(context.Background())
	require.NoError(t, err)

	checker := health.NewHealthChecker(time.Second, logger)
	if ping == nil {
		ping = func(ctx context.Context) error { return nil }
	}
	checker.Register("backend", ping, true)

	r := gin.New()
	NewConsoleHandler(c, checker, logger).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateTicket_ValidationFailsLocally(t *testing.T) {
	backend := &stubBackend{}
	r := setup(t, backend, nil)

	w, env := do(t, r, http.MethodPost, "/console/tickets", map[string]string{
		"customer_name": "A",
		"title":         "Login",
		"description":   "",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "customer_name")
	assert.Contains(t, env.Fields, "description")
	assert.Empty(t, backend.created)
}

func TestCreateTicket_Success(t *testing.T) {
	backend := &stubBackend{}
	r := setup(t, backend, nil)

	w, env := do(t, r, http.MethodPost, "/console/tickets", map[string]string{
		"customer_name": "Ada",
		"title":         "Login fails",
		"description":   "Password reset link expired",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, models.ID("5"), ticket.ID)
	assert.Equal(t, models.StatusOpen, ticket.Status)
	require.Len(t, backend.created, 1)
	assert.Equal(t, models.StatusOpen, backend.created[0].Status)

	w, env = do(t, r, http.MethodGet, "/console/tickets/5/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved []console.ResolvedArticle
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	require.Len(t, resolved, 1)
	assert.Equal(t, "Reset your password", resolved[0].Title)
}

func TestUpdateStatus(t *testing.T) {
	backend := &stubBackend{tickets: []models.Ticket{{
		ID: "3", Title: "Billing", Status: models.StatusOpen, CreatedAt: "2025-01-01T00:00:00Z",
	}}}
	r := setup(t, backend, nil)

	w, env := do(t, r, http.MethodPatch, "/console/tickets/3", map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, models.StatusResolved, ticket.Status)
	assert.Equal(t, "Billing", ticket.Title)
	assert.Equal(t, "2025-01-01T00:00:00Z", ticket.CreatedAt)
	assert.Equal(t, "2025-01-02T00:00:00Z", ticket.UpdatedAt)

	w, _ = do(t, r, http.MethodPatch, "/console/tickets/3", map[string]string{"status": "open"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/console/tickets/404", map[string]string{"status": "closed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/console/tickets/3", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeRoutes(t *testing.T) {
	r := setup(t, &stubBackend{}, nil)

	w, env := do(t, r, http.MethodGet, "/console/knowledge/11", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var article models.Article
	require.NoError(t, json.Unmarshal(env.Data, &article))
	assert.Equal(t, "Configure SSO", article.Title)

	w, _ = do(t, r, http.MethodGet, "/console/knowledge/12", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback(t *testing.T) {
	r := setup(t, &stubBackend{}, nil)

	w, env := do(t, r, http.MethodPost, "/console/feedback", map[string]interface{}{
		"ticket_id":  1,
		"article_id": 2,
		"correct":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Feedback models.FeedbackRecord `json:"feedback"`
		Accuracy *float64              `json:"accuracy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, models.ID("2"), body.Feedback.ArticleID)
	require.NotNil(t, body.Accuracy)
	assert.Equal(t, 0.75, *body.Accuracy)

	w, _ = do(t, r, http.MethodPost, "/console/feedback", map[string]interface{}{"article_id": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertRoutes(t *testing.T) {
	backend := &stubBackend{alerts: []models.Alert{
		{Message: "Disk usage 91%", Timestamp: "2025-01-01T10:00:00"},
		{Message: "Queue backlog", Timestamp: "2025-01-01T10:01:00"},
	}}
	r := setup(t, backend, nil)

	w, _ := do(t, r, http.MethodPost, "/console/alerts/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, r, http.MethodPost, "/console/alerts/0/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []struct {
		Message string `json:"message"`
		State   string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "fading", entries[0].State)

	w, _ = do(t, r, http.MethodPost, "/console/alerts/0/delete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodPost, "/console/alerts/9/delete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/console/alerts/first/delete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	r := setup(t, &stubBackend{}, nil)

	w, env := do(t, r, http.MethodGet, "/console/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"loading":true`)

	w, env = do(t, r, http.MethodPost, "/console/analytics/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Low coverage: 50.00%")
}

func TestSuggest_ShortDescription(t *testing.T) {
	r := setup(t, &stubBackend{}, nil)

	w, env := do(t, r, http.MethodPost, "/console/suggest", map[string]string{"description": "vpn"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Empty(t, env.Data)

	w, env = do(t, r, http.MethodGet, "/console/suggestion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No suggestion", env.Message)
}

func TestHealth(t *testing.T) {
	r := setup(t, &stubBackend{}, nil)
	w, _ := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	r = setup(t, &stubBackend{}, func(ctx context.Context) error { return errors.New("connection refused") })
	w, _ = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSuggest_BackendFailureMeansNoSuggestion(t *testing.T) {
	cfg := &config.Config{}
	cfg.Recommend.Debounce = time.Millisecond
	r := setupWith(t, &stubBackend{predictErr: errors.New("dial tcp: connection refused")}, nil, cfg, nil)

	w, env := do(t, r, http.MethodPost, "/console/suggest", map[string]string{"description": "printer not printing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "No suggestion", env.Message)
	assert.Empty(t, env.Data)
	assert.Empty(t, env.Error)
}

func TestFeedback_SlowBackendFailureIsReported(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backend.Timeout = 50 * time.Millisecond
	backend := &stubBackend{submit: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r := setupWith(t, backend, nil, cfg, clock.NewFake(time.Now()))

	w, env := do(t, r, http.MethodPost, "/console/feedback", map[string]interface{}{
		"ticket_id":  "t_1",
		"article_id": "art_2",
		"correct":    false,
	})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.False(t, env.Success)
}

func TestFeedback_RejectionIsReported(t *testing.T) {
	backend := &stubBackend{submit: func(ctx context.Context) error {
		return errors.New("500 internal server error")
	}}
	r := setup(t, backend, nil)

	w, env := do(t, r, http.MethodPost, "/console/feedback", map[string]interface{}{
		"ticket_id":  "t_1",
		"article_id": "art_2",
		"correct":    true,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, env.Success)
}

func TestFeedbackHistory(t *testing.T) {
	r := setup(t, &stubBackend{history: []models.FeedbackEntry{
		{ID: "fb_1", TicketID: "t_1", ArticleID: "art_2", Correct: false, Notes: "Not a relevant suggestion"},
	}}, nil)

	w, env := do(t, r, http.MethodGet, "/console/feedback", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.FeedbackEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.ID("art_2"), entries[0].ArticleID)
}

// A backend that times out is still just "no suggestion" for the caller.
func TestSuggest_BackendTimeoutMeansNoSuggestion(t *testing.T) {
	cfg := &config.Config{}
	cfg.Recommend.Debounce = time.Millisecond
	stub := &stubBackend{predictErr: fmt.Errorf("POST /api/predict failed: %w", context.DeadlineExceeded)}
	r := setupWith(t, stub, nil, cfg, nil)

	w, env := do(t, r, http.MethodPost, "/console/suggest", map[string]string{"description": "printer not printing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No suggestion", env.Message)
}
