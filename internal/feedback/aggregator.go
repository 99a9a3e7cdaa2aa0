package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	RelevantNote   = "Relevant recommendation"
	IrrelevantNote = "Not a relevant suggestion"
)

// ErrClosed is reported for judgments recorded after Close.
var ErrClosed = errors.New("feedback aggregator closed")

// Submitter posts a single judgment to the backend.
type Submitter interface {
	SubmitFeedback(ctx context.Context, record models.FeedbackRecord) (*models.FeedbackResponse, error)
}

// HistoryLister reads the judgments the backend has stored. The history
// is never cached locally.
type HistoryLister interface {
	ListFeedback(ctx context.Context) ([]models.FeedbackEntry, error)
}

// Ack is the per-call acknowledgment the UI reacts to.
type Ack struct {
	Record models.FeedbackRecord
	// Accuracy is the backend's running accuracy, when it reports one.
	Accuracy *float64
	Err      error
}

func (a Ack) OK() bool { return a.Err == nil }

// Aggregator sends relevance judgments without blocking the caller.
// Each submission runs on its own goroutine, so judgments for different
// pairs never wait on each other. Duplicates are sent as-is.
type Aggregator struct {
	submitter Submitter
	logger    *logrus.Logger
	timeout   time.Duration

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAggregator(submitter Submitter, timeout time.Duration, logger *logrus.Logger) *Aggregator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		submitter: submitter,
		logger:    logger,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Record submits one judgment. The returned channel yields exactly one
// Ack and is then closed.
func (a *Aggregator) Record(ticketID, articleID interface{}, correct bool, note string) <-chan Ack {
	record := models.FeedbackRecord{
		TicketID:  models.NormalizeID(ticketID),
		ArticleID: models.NormalizeID(articleID),
		Correct:   correct,
		Notes:     note,
	}

	acks := make(chan Ack, 1)
	if record.ArticleID == "" {
		acks <- Ack{Record: record, Err: &models.ValidationError{Fields: map[string]string{"article_id": "Article is required"}}}
		close(acks)
		return acks
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		acks <- Ack{Record: record, Err: ErrClosed}
		close(acks)
		return acks
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer close(acks)
		acks <- a.submit(record)
	}()
	return acks
}

// MarkRelevant records a thumbs-up for a recommended article.
func (a *Aggregator) MarkRelevant(ticketID, articleID interface{}) <-chan Ack {
	return a.Record(ticketID, articleID, true, RelevantNote)
}

// MarkIrrelevant records a thumbs-down for a recommended article.
func (a *Aggregator) MarkIrrelevant(ticketID, articleID interface{}) <-chan Ack {
	return a.Record(ticketID, articleID, false, IrrelevantNote)
}

// Close cancels outstanding submissions and waits for their acks.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
	a.wg.Wait()
}

func (a *Aggregator) submit(record models.FeedbackRecord) Ack {
	ctx := a.ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(a.ctx, a.timeout)
		defer cancel()
	}

	fields := logrus.Fields{
		"ticket_id":  record.TicketID,
		"article_id": record.ArticleID,
		"correct":    record.Correct,
	}

	resp, err := a.submitter.SubmitFeedback(ctx, record)
	if err != nil {
		a.logger.WithError(err).WithFields(fields).Error("Failed to record feedback")
		return Ack{Record: record, Err: fmt.Errorf("submit feedback: %w", err)}
	}

	ack := Ack{Record: record}
	if resp != nil && resp.Metrics != nil {
		accuracy := resp.Metrics.Accuracy
		ack.Accuracy = &accuracy
	}
	a.logger.WithFields(fields).Info("Feedback recorded")
	return ack
}
