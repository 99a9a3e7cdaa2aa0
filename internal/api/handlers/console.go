package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/alerts"
	"github.com/Ayash-Bera/ticketconsole/internal/backend"
	"github.com/Ayash-Bera/ticketconsole/internal/console"
	"github.com/Ayash-Bera/ticketconsole/internal/health"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/Ayash-Bera/ticketconsole/internal/recommend"
	"github.com/Ayash-Bera/ticketconsole/internal/tickets"
	"github.com/Ayash-Bera/ticketconsole/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

type ConsoleHandler struct {
	console *console.Console
	health  *health.HealthChecker
	logger  *logrus.Logger
}

func NewConsoleHandler(c *console.Console, checker *health.HealthChecker, logger *logrus.Logger) *ConsoleHandler {
	return &ConsoleHandler{
		console: c,
		health:  checker,
		logger:  logger,
	}
}

// Register mounts the console routes on r.
func (h *ConsoleHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HandleHealth)

	g := r.Group("/console")
	g.POST("/suggest", h.HandleSuggest)
	g.GET("/suggestion", h.HandleCurrentSuggestion)

	g.GET("/knowledge", h.HandleListKnowledge)
	g.GET("/knowledge/:id", h.HandleGetArticle)
	g.POST("/knowledge/reload", h.HandleReloadKnowledge)

	g.GET("/tickets", h.HandleListTickets)
	g.POST("/tickets", h.HandleCreateTicket)
	g.PATCH("/tickets/:id", h.HandleUpdateStatus)
	g.GET("/tickets/:id/recommendations", h.HandleTicketRecommendations)

	g.GET("/feedback", h.HandleFeedbackHistory)
	g.POST("/feedback", h.HandleFeedback)

	g.GET("/alerts", h.HandleListAlerts)
	g.POST("/alerts/refresh", h.HandleRefreshAlerts)
	g.POST("/alerts/:index/delete", h.HandleDeleteAlert)

	g.GET("/analytics", h.HandleAnalytics)
	g.POST("/analytics/refresh", h.HandleRefreshAnalytics)
}

// HandleSuggest feeds the debounced recommender and waits for the
// outcome of this keystroke. A newer call supersedes it with 409.
func (h *ConsoleHandler) HandleSuggest(c *gin.Context) {
	var req models.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	pending := h.console.Suggester.Suggest(req.Description, req.TopK)
	result, err := pending.Wait(ctx)
	switch {
	case err == nil:
		utils.SuccessResponse(c, http.StatusOK, "Suggestion ready", result)
	case errors.Is(err, recommend.ErrBelowThreshold):
		utils.SuccessResponse(c, http.StatusOK, "Description too short for suggestions", nil)
	case errors.Is(err, recommend.ErrSuperseded):
		utils.ErrorResponse(c, http.StatusConflict, "Superseded by a newer description", err)
	case ctx.Err() != nil:
		pending.Cancel()
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "Suggestion timed out", err)
	default:
		// Query failures degrade to no suggestion; the suggester logs them.
		h.logger.WithError(err).Debug("Suggestion unavailable")
		utils.SuccessResponse(c, http.StatusOK, "No suggestion", nil)
	}
}

func (h *ConsoleHandler) HandleCurrentSuggestion(c *gin.Context) {
	result, ok := h.console.Suggester.Current()
	if !ok {
		utils.SuccessResponse(c, http.StatusOK, "No suggestion", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Suggestion retrieved", result)
}

func (h *ConsoleHandler) HandleListKnowledge(c *gin.Context) {
	articles := h.console.Knowledge.Search(c.Query("q"), c.Query("category"))
	utils.SuccessResponse(c, http.StatusOK, "Articles retrieved", gin.H{
		"articles":   articles,
		"categories": h.console.Knowledge.Categories(),
		"loaded":     h.console.Knowledge.Loaded(),
	})
}

func (h *ConsoleHandler) HandleGetArticle(c *gin.Context) {
	article, ok := h.console.Knowledge.Get(c.Param("id"))
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "Article not found", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Article retrieved", article)
}

func (h *ConsoleHandler) HandleReloadKnowledge(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	articles, err := h.console.Knowledge.Load(ctx)
	if err != nil {
		h.writeError(c, "Failed to load knowledge base", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Knowledge base reloaded", gin.H{"total": len(articles)})
}

func (h *ConsoleHandler) HandleListTickets(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Tickets retrieved", h.console.Tickets.List())
}

func (h *ConsoleHandler) HandleCreateTicket(c *gin.Context) {
	var draft models.TicketDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid ticket format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ticket, err := h.console.Tickets.Create(ctx, draft)
	if err != nil {
		h.writeError(c, "Failed to create ticket", err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Ticket created", ticket)
}

func (h *ConsoleHandler) HandleUpdateStatus(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid status update", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ticket, err := h.console.Tickets.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, "Failed to update ticket", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Ticket updated", ticket)
}

func (h *ConsoleHandler) HandleTicketRecommendations(c *gin.Context) {
	resolved, err := h.console.Recommendations(c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to resolve recommendations", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Recommendations retrieved", resolved)
}

// HandleFeedback records a judgment and reports its acknowledgment.
func (h *ConsoleHandler) HandleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	// The aggregator bounds each submission with the backend timeout, so
	// the ack always arrives; only a client that goes away stops the wait.
	acks := h.console.Feedback.Record(req.TicketID, req.ArticleID, *req.Correct, req.Notes)
	select {
	case ack := <-acks:
		if !ack.OK() {
			h.writeError(c, "Failed to record feedback", ack.Err)
			return
		}
		utils.SuccessResponse(c, http.StatusCreated, "Feedback recorded", gin.H{
			"feedback": ack.Record,
			"accuracy": ack.Accuracy,
		})
	case <-c.Request.Context().Done():
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "Feedback outcome unknown", c.Request.Context().Err())
	}
}

// HandleFeedbackHistory lists the judgments stored on the backend.
func (h *ConsoleHandler) HandleFeedbackHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entries, err := h.console.FeedbackHistory(ctx)
	if err != nil {
		h.writeError(c, "Failed to load feedback", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Feedback retrieved", entries)
}

func (h *ConsoleHandler) HandleListAlerts(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved", h.console.Alerts.List())
}

func (h *ConsoleHandler) HandleRefreshAlerts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.console.Alerts.Refresh(ctx); err != nil {
		h.writeError(c, "Failed to refresh alerts", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Alerts refreshed", h.console.Alerts.List())
}

func (h *ConsoleHandler) HandleDeleteAlert(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid alert index", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.console.Alerts.Delete(ctx, index); err != nil {
		h.writeError(c, "Failed to delete alert", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Alert deleted", h.console.Alerts.List())
}

func (h *ConsoleHandler) HandleAnalytics(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Analytics retrieved", h.console.Analytics.State())
}

func (h *ConsoleHandler) HandleRefreshAnalytics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.console.Analytics.Refresh(ctx); err != nil {
		h.writeError(c, "Failed to refresh analytics", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Analytics refreshed", h.console.Analytics.State())
}

func (h *ConsoleHandler) HandleHealth(c *gin.Context) {
	overall := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, overall)
}

// writeError maps core errors onto HTTP statuses.
func (h *ConsoleHandler) writeError(c *gin.Context, message string, err error) {
	var validation *models.ValidationError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &validation):
		utils.ValidationResponse(c, http.StatusBadRequest, validation.Fields)
	case errors.Is(err, tickets.ErrNotFound), errors.Is(err, alerts.ErrIndexOutOfRange):
		utils.ErrorResponse(c, http.StatusNotFound, message, err)
	case errors.Is(err, alerts.ErrNotActive):
		utils.ErrorResponse(c, http.StatusConflict, message, err)
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WithError(err).Warn(message)
		utils.ErrorResponse(c, http.StatusGatewayTimeout, message, err)
	case errors.As(err, &apiErr):
		h.logger.WithError(err).WithField("status", apiErr.StatusCode).Warn(message)
		utils.ErrorResponse(c, http.StatusBadGateway, message, err)
	default:
		h.logger.WithError(err).Error(message)
		utils.ErrorResponse(c, http.StatusBadGateway, message, err)
	}
}
