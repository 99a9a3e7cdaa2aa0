package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/config"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/Ayash-Bera/ticketconsole/internal/tickets"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	tickets      []models.Ticket
	articles     []models.Article
	knowledgeErr error
	ticketsIn    chan struct{}
	articlesIn   chan struct{}
	alertCalls   int
	statsCalls   int

	feedbackErr   error
	totalFeedback int
}

func (f *fakeBackend) ListKnowledge(ctx context.Context) ([]models.Article, error) {
	if f.articlesIn != nil {
		close(f.articlesIn)
		<-f.ticketsIn
	}
	return f.articles, f.knowledgeErr
}

func (f *fakeBackend) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	if f.ticketsIn != nil {
		close(f.ticketsIn)
		<-f.articlesIn
	}
	return f.tickets, nil
}

func (f *fakeBackend) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) UpdateTicketStatus(ctx context.Context, id models.ID, status models.Status) (*models.TicketPatch, error) {
	return &models.TicketPatch{Status: &status}, nil
}

func (f *fakeBackend) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	return &models.PredictResponse{}, nil
}

func (f *fakeBackend) SubmitFeedback(ctx context.Context, record models.FeedbackRecord) (*models.FeedbackResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	f.totalFeedback++
	return &models.FeedbackResponse{}, nil
}

func (f *fakeBackend) ListFeedback(ctx context.Context) ([]models.FeedbackEntry, error) {
	return []models.FeedbackEntry{{ID: "fb_1", TicketID: "t_1", ArticleID: "art_2"}}, nil
}

func (f *fakeBackend) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertCalls++
	return nil, nil
}

func (f *fakeBackend) DeleteAlert(ctx context.Context, index int) error { return nil }

func (f *fakeBackend) Analytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return &models.AnalyticsSnapshot{
		Summary: models.AnalyticsSummary{TotalFeedback: f.totalFeedback},
	}, nil
}

func (f *fakeBackend) polls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alertCalls, f.statsCalls
}

func newTestConsole(t *testing.T, api Backend) *Console {
	t.Helper()
	c := New(api, &config.Config{}, logrus.New(), Options{Clock: clock.NewFake(time.Now())})
	t.Cleanup(c.Close)
	return c
}

// Each loader waits for the other to start, so a serial load would
// deadlock.
func TestConsole_StartLoadsInParallel(t *testing.T) {
	api := &fakeBackend{
		tickets:    []models.Ticket{{ID: "1", Title: "Login fails", Status: models.StatusOpen}},
		articles:   []models.Article{{ID: "10", Title: "Reset your password"}},
		ticketsIn:  make(chan struct{}),
		articlesIn: make(chan struct{}),
	}
	c := newTestConsole(t, api)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("initial load did not finish")
	}

	assert.Len(t, c.Tickets.List(), 1)
	assert.Equal(t, 1, c.Knowledge.Len())
	require.Eventually(t, func() bool {
		alertsPolled, statsPolled := api.polls()
		return alertsPolled == 1 && statsPolled == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestConsole_StartReportsLoadFailureButStartsPollers(t *testing.T) {
	api := &fakeBackend{knowledgeErr: errors.New("connection refused")}
	c := newTestConsole(t, api)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial load")

	require.Eventually(t, func() bool {
		alertsPolled, _ := api.polls()
		return alertsPolled == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestConsole_RecommendationsResolveTitles(t *testing.T) {
	api := &fakeBackend{
		tickets: []models.Ticket{{
			ID:                    "7",
			Status:                models.StatusOpen,
			RecommendedArticleIDs: []models.ID{"10", "99"},
		}},
		articles: []models.Article{{ID: "10", Title: "Reset your password"}},
	}
	c := newTestConsole(t, api)
	require.NoError(t, c.Start(context.Background()))

	resolved, err := c.Recommendations(7)
	require.NoError(t, err)
	assert.Equal(t, []ResolvedArticle{
		{ID: "10", Title: "Reset your password", Known: true},
		{ID: "99", Title: "Article 99", Known: false},
	}, resolved)
}

func TestConsole_RecommendationsUnknownTicket(t *testing.T) {
	c := newTestConsole(t, &fakeBackend{})

	_, err := c.Recommendations("404")
	assert.ErrorIs(t, err, tickets.ErrNotFound)
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// A rejected judgment never reaches the analytics totals; they only move
// when a later poll reports a stored one.
func TestConsole_FailedFeedbackLeavesAnalyticsUntilNextPoll(t *testing.T) {
	api := &fakeBackend{totalFeedback: 3, feedbackErr: errors.New("500 internal server error")}
	c := newTestConsole(t, api)
	require.NoError(t, c.Analytics.Refresh(context.Background()))
	require.Equal(t, 3, c.Analytics.State().Snapshot.Summary.TotalFeedback)

	ack := <-c.Feedback.Record("t_1", "art_2", false, "Not a relevant suggestion")
	require.Error(t, ack.Err)
	assert.Equal(t, 3, c.Analytics.State().Snapshot.Summary.TotalFeedback)

	require.NoError(t, c.Analytics.Refresh(context.Background()))
	assert.Equal(t, 3, c.Analytics.State().Snapshot.Summary.TotalFeedback)

	api.set(func(f *fakeBackend) { f.feedbackErr = nil })
	ack = <-c.Feedback.Record("t_1", "art_2", false, "Not a relevant suggestion")
	require.NoError(t, ack.Err)
	assert.Equal(t, 3, c.Analytics.State().Snapshot.Summary.TotalFeedback)

	require.NoError(t, c.Analytics.Refresh(context.Background()))
	assert.Equal(t, 4, c.Analytics.State().Snapshot.Summary.TotalFeedback)
}

func TestConsole_FeedbackHistory(t *testing.T) {
	c := newTestConsole(t, &fakeBackend{})

	entries, err := c.FeedbackHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ID("art_2"), entries[0].ArticleID)
}
