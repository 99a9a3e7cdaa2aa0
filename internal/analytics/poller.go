package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultMinCoverage  = 70.0
)

type Source interface {
	Analytics(ctx context.Context) (*models.AnalyticsSnapshot, error)
}

// State is what the dashboard renders. Loading is true only until the
// first response of any kind arrives; after that a refresh shows as
// Refreshing over the previous snapshot.
type State struct {
	Snapshot   *models.AnalyticsSnapshot `json:"snapshot"`
	Loading    bool                      `json:"loading"`
	Refreshing bool                      `json:"refreshing"`
	Failed     bool                      `json:"failed"`
	LastError  string                    `json:"last_error,omitempty"`
	UpdatedAt  time.Time                 `json:"updated_at,omitempty"`
}

type Options struct {
	PollInterval    time.Duration
	LowCTRThreshold float64
	MinCoverage     float64
	Clock           clock.Clock
}

// Poller keeps the latest analytics snapshot. Every poll takes a
// token; a response is applied only when its token is newer than the
// last applied one, so a slow poll never overwrites a faster later one.
type Poller struct {
	source    Source
	clock     clock.Clock
	logger    *logrus.Logger
	interval  time.Duration
	threshold float64
	coverage  float64

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	inflight int
	state    State
	running  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(source Source, logger *logrus.Logger, opts Options) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LowCTRThreshold <= 0 {
		opts.LowCTRThreshold = models.DefaultLowCTRThreshold
	}
	if opts.MinCoverage <= 0 {
		opts.MinCoverage = DefaultMinCoverage
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		source:    source,
		clock:     opts.Clock,
		logger:    logger,
		interval:  opts.PollInterval,
		threshold: opts.LowCTRThreshold,
		coverage:  opts.MinCoverage,
		state:     State{Loading: true},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start fetches once and then on every interval until Stop.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	ticker := p.clock.NewTicker(p.interval)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()

		p.Refresh(p.ctx)
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.Refresh(p.ctx)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Refresh fetches a new snapshot. A failure keeps the previous snapshot
// and is reported through State.LastError.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	token := p.issued
	p.inflight++
	if p.state.Snapshot != nil {
		p.state.Refreshing = true
	}
	p.mu.Unlock()

	snap, err := p.source.Analytics(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	defer func() { p.state.Refreshing = p.inflight > 0 && p.state.Snapshot != nil }()

	if token <= p.applied {
		p.logger.WithField("token", token).Debug("Discarding stale analytics response")
		return nil
	}
	p.applied = token
	p.state.Loading = false

	if err != nil {
		p.state.LastError = err.Error()
		p.state.Failed = p.state.Snapshot == nil
		p.logger.WithError(err).Warn("Failed to fetch analytics")
		return fmt.Errorf("fetch analytics: %w", err)
	}

	derived := snap.Derive(p.threshold, p.coverage)
	p.state.Snapshot = &derived
	p.state.Failed = false
	p.state.LastError = ""
	p.state.UpdatedAt = p.clock.Now()

	p.logger.WithFields(logrus.Fields{
		"coverage": derived.Summary.CoveragePercent,
		"low_ctr":  len(derived.LowCTR),
	}).Debug("Analytics refreshed")
	return nil
}

// State returns a copy of the current dashboard state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	if st.Snapshot != nil {
		snap := *st.Snapshot
		snap.PerArticle = append(make([]models.ArticleStat, 0, len(snap.PerArticle)), snap.PerArticle...)
		snap.LowCTR = append(make([]models.ArticleStat, 0, len(snap.LowCTR)), snap.LowCTR...)
		if snap.Issues != nil {
			snap.Issues = append([]string(nil), snap.Issues...)
		}
		st.Snapshot = &snap
	}
	return st
}

// LowCTR is a shortcut for the current low-performing articles.
func (p *Poller) LowCTR() []models.ArticleStat {
	st := p.State()
	if st.Snapshot == nil {
		return nil
	}
	return st.Snapshot.LowCTR
}
