package console

import (
	"context"
	"fmt"

	"github.com/Ayash-Bera/ticketconsole/internal/alerts"
	"github.com/Ayash-Bera/ticketconsole/internal/analytics"
	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/config"
	"github.com/Ayash-Bera/ticketconsole/internal/feedback"
	"github.com/Ayash-Bera/ticketconsole/internal/knowledge"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/Ayash-Bera/ticketconsole/internal/recommend"
	"github.com/Ayash-Bera/ticketconsole/internal/tickets"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Backend is everything the console core calls on the REST backend.
// *backend.Client satisfies it.
type Backend interface {
	knowledge.ArticleLister
	tickets.Backend
	recommend.Predictor
	feedback.Submitter
	feedback.HistoryLister
	alerts.Backend
	analytics.Source
}

type Options struct {
	Clock    clock.Clock
	Cache    recommend.ResultCache
	Notifier alerts.Notifier
}

// Console bundles the components one operator session uses.
type Console struct {
	Knowledge *knowledge.Cache
	Tickets   *tickets.Store
	Suggester *recommend.Suggester
	Feedback  *feedback.Aggregator
	Alerts    *alerts.Manager
	Analytics *analytics.Poller

	history feedback.HistoryLister
	logger  *logrus.Logger
}

func New(api Backend, cfg *config.Config, logger *logrus.Logger, opts Options) *Console {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Console{
		Knowledge: knowledge.NewCache(api, logger),
		Tickets:   tickets.NewStore(api, clk, logger),
		Suggester: recommend.NewSuggester(api, logger, recommend.Options{
			Debounce:  cfg.Recommend.Debounce,
			MinLength: cfg.Recommend.MinLength,
			TopK:      cfg.Recommend.TopK,
			Clock:     clk,
			Cache:     opts.Cache,
		}),
		Feedback: feedback.NewAggregator(api, cfg.Backend.Timeout, logger),
		Alerts: alerts.NewManager(api, logger, alerts.Options{
			PollInterval: cfg.Alerts.PollInterval,
			FadeDelay:    cfg.Alerts.FadeDelay,
			Clock:        clk,
			Notifier:     opts.Notifier,
		}),
		Analytics: analytics.NewPoller(api, logger, analytics.Options{
			PollInterval:    cfg.Analytics.PollInterval,
			LowCTRThreshold: cfg.Analytics.LowCTRThreshold,
			MinCoverage:     cfg.Analytics.MinCoverage,
			Clock:           clk,
		}),
		history: api,
		logger:  logger,
	}
}

// Start loads tickets and the knowledge base in parallel and then
// starts the alert and analytics pollers. The pollers start even when
// the initial load fails; the error is returned for the caller to
// report.
func (c *Console) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.Tickets.Refresh(gctx)
		return err
	})
	g.Go(func() error {
		_, err := c.Knowledge.Load(gctx)
		return err
	})
	err := g.Wait()

	c.Alerts.Start()
	c.Analytics.Start()

	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"tickets":  len(c.Tickets.List()),
		"articles": c.Knowledge.Len(),
	}).Info("Console started")
	return nil
}

// Close stops every timer, poller and in-flight request.
func (c *Console) Close() {
	c.Suggester.Close()
	c.Alerts.Stop()
	c.Analytics.Stop()
	c.Feedback.Close()
}

// ResolvedArticle is a recommended article ID paired with the title to
// show for it.
type ResolvedArticle struct {
	ID    models.ID `json:"id"`
	Title string    `json:"title"`
	Known bool      `json:"known"`
}

// Recommendations resolves a ticket's recommended article IDs through
// the knowledge cache. Unknown IDs get the placeholder title.
func (c *Console) Recommendations(ticketID interface{}) ([]ResolvedArticle, error) {
	t, ok := c.Tickets.Get(ticketID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tickets.ErrNotFound, models.NormalizeID(ticketID))
	}
	out := make([]ResolvedArticle, 0, len(t.RecommendedArticleIDs))
	for _, id := range t.RecommendedArticleIDs {
		_, known := c.Knowledge.Get(id)
		out = append(out, ResolvedArticle{ID: id, Title: c.Knowledge.Title(id), Known: known})
	}
	return out, nil
}

// FeedbackHistory returns the stored judgments, newest state from the
// backend on every call.
func (c *Console) FeedbackHistory(ctx context.Context) ([]models.FeedbackEntry, error) {
	entries, err := c.history.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return entries, nil
}
