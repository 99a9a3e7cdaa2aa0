package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// APIError is returned when the backend answers but rejects the request.
// Any other error from the client is a transport failure.
type APIError struct {
	StatusCode int
	Method     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s rejected with status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the ticket backend's JSON REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	var response models.PredictResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/predict", req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) ListKnowledge(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	if err := c.makeRequest(ctx, http.MethodGet, "/api/knowledge", nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) AddArticle(ctx context.Context, req models.AddArticleRequest) (*models.Article, error) {
	var response models.AddArticleResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/knowledge", req, &response); err != nil {
		return nil, err
	}
	return &response.Article, nil
}

func (c *Client) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := c.makeRequest(ctx, http.MethodGet, "/api/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := c.makeRequest(ctx, http.MethodPost, "/api/tickets", req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketStatus returns only what the backend echoes back; callers
// merge it into their own copy of the ticket.
func (c *Client) UpdateTicketStatus(ctx context.Context, id models.ID, status models.Status) (*models.TicketPatch, error) {
	var patch models.TicketPatch
	endpoint := "/api/tickets/" + url.PathEscape(id.String())
	if err := c.makeRequest(ctx, http.MethodPatch, endpoint, models.UpdateTicketRequest{Status: status}, &patch); err != nil {
		return nil, err
	}
	return &patch, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, record models.FeedbackRecord) (*models.FeedbackResponse, error) {
	var response models.FeedbackResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/feedback", record, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListFeedback reads the stored feedback history. The backend serves it
// as a static file that does not exist until the first judgment, so a
// 404 is an empty history.
func (c *Client) ListFeedback(ctx context.Context) ([]models.FeedbackEntry, error) {
	var entries []models.FeedbackEntry
	if err := c.makeRequest(ctx, http.MethodGet, "/data/feedback.json", nil, &entries); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return []models.FeedbackEntry{}, nil
		}
		return nil, err
	}
	if entries == nil {
		entries = []models.FeedbackEntry{}
	}
	return entries, nil
}

func (c *Client) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var response models.AlertsResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/alerts", nil, &response); err != nil {
		return nil, err
	}
	return response.Alerts, nil
}

// DeleteAlert treats a `success:false` body as a rejection even though
// the backend answers it with 200.
func (c *Client) DeleteAlert(ctx context.Context, index int) error {
	var ack models.AckResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/alerts/delete", models.DeleteAlertRequest{Index: index}, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return &APIError{
			StatusCode: http.StatusOK,
			Method:     http.MethodPost,
			Endpoint:   "/api/alerts/delete",
			Body:       ack.Error,
		}
	}
	return nil
}

func (c *Client) TriggerAlert(ctx context.Context, message string) error {
	return c.makeRequest(ctx, http.MethodPost, "/api/trigger_alert", models.TriggerAlertRequest{Message: message}, nil)
}

func (c *Client) Analytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	if err := c.makeRequest(ctx, http.MethodGet, "/api/analytics", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) EvaluateDataset(ctx context.Context, datasetPath string) (*models.EvaluateResponse, error) {
	var response models.EvaluateResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/admin/evaluate_dataset", models.EvaluateRequest{DatasetPath: datasetPath}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Ping hits the backend root.
func (c *Client) Ping(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/", nil, nil)
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	target := c.baseURL + endpoint

	var body io.Reader
	var contentLength int

	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
		contentLength = len(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"url":        target,
		"size":       contentLength,
		"request_id": requestID,
	}).Debug("Making backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"method":        method,
		"url":           target,
		"response_size": len(responseBody),
		"request_id":    requestID,
	}).Debug("Backend response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Endpoint:   endpoint,
			Body:       strings.TrimSpace(string(responseBody)),
		}
	}

	if result != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
