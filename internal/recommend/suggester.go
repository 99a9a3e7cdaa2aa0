package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounce  = 800 * time.Millisecond
	DefaultMinLength = 5
	DefaultTopK      = 1
)

var (
	ErrSuperseded     = errors.New("suggestion superseded by a newer query")
	ErrBelowThreshold = errors.New("description too short for suggestions")
	ErrClosed         = errors.New("suggester closed")
	ErrEmptyQuery     = errors.New("description is required")
)

// Predictor issues the relevance query against the backend.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error)
}

// ResultCache short-circuits identical queries. Implementations must be
// safe for concurrent use and treat every failure as a miss.
type ResultCache interface {
	GetSuggestion(ctx context.Context, description string, topK int) (*models.RecommendationResult, bool)
	SetSuggestion(ctx context.Context, description string, topK int, result models.RecommendationResult)
}

type Options struct {
	Debounce  time.Duration
	MinLength int
	TopK      int
	Clock     clock.Clock
	Cache     ResultCache
}

// Suggester turns description text into debounced relevance queries.
// Every call to Suggest supersedes the previous one: its timer is
// stopped, its in-flight request canceled, and a result that still
// arrives late is dropped because its token no longer matches.
type Suggester struct {
	predictor Predictor
	cache     ResultCache
	clock     clock.Clock
	logger    *logrus.Logger

	debounce  time.Duration
	minLength int
	topK      int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	timer    *clock.Timer
	inflight context.CancelFunc
	pending  *Pending
	current  *models.RecommendationResult
	closed   bool
}

func NewSuggester(predictor Predictor, logger *logrus.Logger, opts Options) *Suggester {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.TopK < 1 {
		opts.TopK = DefaultTopK
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Suggester{
		predictor: predictor,
		cache:     opts.Cache,
		clock:     opts.Clock,
		logger:    logger,
		debounce:  opts.Debounce,
		minLength: opts.MinLength,
		topK:      opts.TopK,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Suggest schedules a query for description once the debounce window
// passes without another call. Text whose trimmed length does not
// exceed the minimum clears the shown suggestion immediately and never
// reaches the backend. A topK below 1 uses the configured default.
func (s *Suggester) Suggest(description string, topK int) *Pending {
	if topK < 1 {
		topK = s.topK
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	token := s.seq
	s.abortLocked(ErrSuperseded)

	p := newPending(token)
	if s.closed {
		p.finish(models.RecommendationResult{}, ErrClosed)
		return p
	}

	if utf8.RuneCountInString(strings.TrimSpace(description)) <= s.minLength {
		s.current = nil
		p.finish(models.RecommendationResult{}, ErrBelowThreshold)
		return p
	}

	p.cancel = func() { s.cancelToken(token) }
	s.pending = p
	s.timer = s.clock.AfterFunc(s.debounce, func() {
		s.fire(token, description, topK, p)
	})
	return p
}

// Current returns the suggestion currently shown, if any.
func (s *Suggester) Current() (models.RecommendationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.RecommendationResult{}, false
	}
	return cloneResult(*s.current), true
}

// Clear cancels pending work and hides the shown suggestion.
func (s *Suggester) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.abortLocked(context.Canceled)
	s.current = nil
}

// Close cancels every timer and request. Later calls to Suggest fail
// with ErrClosed.
func (s *Suggester) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.seq++
	s.abortLocked(ErrClosed)
	s.current = nil
	s.cancel()
}

// Predict runs a single query right away without touching the shown
// suggestion.
func (s *Suggester) Predict(ctx context.Context, description string, topK int) (models.RecommendationResult, error) {
	if strings.TrimSpace(description) == "" {
		return models.RecommendationResult{}, ErrEmptyQuery
	}
	if topK < 1 {
		topK = s.topK
	}
	return s.query(ctx, description, topK)
}

func (s *Suggester) fire(token uint64, description string, topK int, p *Pending) {
	s.mu.Lock()
	if s.closed || token != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.mu.Unlock()
	defer cancel()

	result, err := s.query(ctx, description, topK)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		s.logger.WithField("token", token).Debug("Dropping stale suggestion")
		return
	}
	s.inflight = nil
	s.pending = nil

	if err != nil {
		s.logger.WithError(err).Warn("Suggestion query failed")
		s.current = nil
		p.finish(models.RecommendationResult{}, err)
		return
	}
	if len(result.Items) == 0 {
		s.current = nil
	} else {
		s.current = &result
	}
	p.finish(cloneResult(result), nil)
}

func (s *Suggester) query(ctx context.Context, description string, topK int) (models.RecommendationResult, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetSuggestion(ctx, description, topK); ok {
			s.logger.Debug("Suggestion served from cache")
			return *cached, nil
		}
	}

	resp, err := s.predictor.Predict(ctx, models.PredictRequest{Description: description, TopK: topK})
	if err != nil {
		return models.RecommendationResult{}, fmt.Errorf("predict: %w", err)
	}

	result := models.RecommendationResult{
		Query: description,
		TopK:  topK,
		Items: Rank(resp.Results, topK),
	}
	if s.cache != nil {
		s.cache.SetSuggestion(ctx, description, topK, result)
	}
	return result, nil
}

// cancelToken cancels the query identified by token if it is still the
// latest one.
func (s *Suggester) cancelToken(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		return
	}
	s.seq++
	s.abortLocked(context.Canceled)
}

func (s *Suggester) abortLocked(reason error) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	if s.pending != nil {
		s.pending.finish(models.RecommendationResult{}, reason)
		s.pending = nil
	}
}

// Rank orders suggestions by descending score, clamps scores into
// [0, 1] and keeps at most topK.
func Rank(items []models.Recommendation, topK int) []models.Recommendation {
	ranked := make([]models.Recommendation, 0, len(items))
	for _, it := range items {
		it.ArticleID = models.NormalizeID(it.ArticleID)
		if it.Score < 0 {
			it.Score = 0
		} else if it.Score > 1 {
			it.Score = 1
		}
		ranked = append(ranked, it)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func cloneResult(r models.RecommendationResult) models.RecommendationResult {
	r.Items = append([]models.Recommendation(nil), r.Items...)
	return r
}
