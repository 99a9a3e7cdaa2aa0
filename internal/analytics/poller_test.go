package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type scriptedSource struct {
	mu     sync.Mutex
	calls  int
	answer func(call int) (*models.AnalyticsSnapshot, error)
}

func (s *scriptedSource) Analytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	answer := s.answer
	s.mu.Unlock()
	return answer(call)
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func snapshotWithCoverage(coverage float64) *models.AnalyticsSnapshot {
	return &models.AnalyticsSnapshot{
		Summary: models.AnalyticsSummary{TotalTickets: 20, CoveragePercent: coverage},
	}
}

func newTestPoller(src Source, clk clock.Clock) *Poller {
	return NewPoller(src, logrus.New(), Options{Clock: clk})
}

func TestPoller_InitialStateIsLoading(t *testing.T) {
	p := newTestPoller(&scriptedSource{}, clock.NewFake(epoch))
	st := p.State()
	assert.True(t, st.Loading)
	assert.Nil(t, st.Snapshot)
	assert.False(t, st.Failed)
}

func TestPoller_LowCTRUsesThreshold(t *testing.T) {
	src := &scriptedSource{answer: func(int) (*models.AnalyticsSnapshot, error) {
		return &models.AnalyticsSnapshot{
			Summary: models.AnalyticsSummary{TotalTickets: 10, CoveragePercent: 80},
			PerArticle: []models.ArticleStat{
				{ArticleID: "1", Impressions: 200, Clicks: 19},
				{ArticleID: "2", Impressions: 200, Clicks: 20},
				{ArticleID: "3", Impressions: 0, Clicks: 0},
			},
		}, nil
	}}
	p := newTestPoller(src, clock.NewFake(epoch))

	require.NoError(t, p.Refresh(context.Background()))

	low := p.LowCTR()
	require.Len(t, low, 1)
	assert.Equal(t, models.ID("1"), low[0].ArticleID)
	assert.Equal(t, 9.5, low[0].CTR)

	st := p.State()
	assert.False(t, st.Loading)
	assert.Equal(t, epoch, st.UpdatedAt)
	assert.Equal(t, []string{"1 low-CTR articles (CTR < 10%)"}, st.Snapshot.Issues)
}

// An older poll that answers after a newer one must not overwrite it.
func TestPoller_StaleResponseIsDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	src := &scriptedSource{answer: func(call int) (*models.AnalyticsSnapshot, error) {
		if call == 1 {
			close(firstStarted)
			<-releaseFirst
			return snapshotWithCoverage(10), nil
		}
		return snapshotWithCoverage(90), nil
	}}
	p := newTestPoller(src, clock.NewFake(epoch))

	firstDone := make(chan error, 1)
	go func() { firstDone <- p.Refresh(context.Background()) }()
	<-firstStarted

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 90.0, p.State().Snapshot.Summary.CoveragePercent)
	assert.True(t, p.State().Refreshing)

	close(releaseFirst)
	require.NoError(t, <-firstDone)

	st := p.State()
	assert.Equal(t, 90.0, st.Snapshot.Summary.CoveragePercent)
	assert.False(t, st.Refreshing)
}

func TestPoller_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := &scriptedSource{answer: func(call int) (*models.AnalyticsSnapshot, error) {
		if call == 1 {
			return snapshotWithCoverage(75), nil
		}
		return nil, errors.New("503 service unavailable")
	}}
	p := newTestPoller(src, clock.NewFake(epoch))

	require.NoError(t, p.Refresh(context.Background()))
	require.Error(t, p.Refresh(context.Background()))

	st := p.State()
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, 75.0, st.Snapshot.Summary.CoveragePercent)
	assert.False(t, st.Failed)
	assert.Contains(t, st.LastError, "503")
}

func TestPoller_FailureWithoutSnapshotIsFailed(t *testing.T) {
	src := &scriptedSource{answer: func(int) (*models.AnalyticsSnapshot, error) {
		return nil, errors.New("connection refused")
	}}
	p := newTestPoller(src, clock.NewFake(epoch))

	require.Error(t, p.Refresh(context.Background()))

	st := p.State()
	assert.True(t, st.Failed)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Snapshot)
}

func TestPoller_RecoveryClearsError(t *testing.T) {
	src := &scriptedSource{answer: func(call int) (*models.AnalyticsSnapshot, error) {
		if call == 1 {
			return nil, errors.New("timeout")
		}
		return snapshotWithCoverage(50), nil
	}}
	p := newTestPoller(src, clock.NewFake(epoch))

	require.Error(t, p.Refresh(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))

	st := p.State()
	assert.False(t, st.Failed)
	assert.Empty(t, st.LastError)
	assert.Equal(t, []string{"Low coverage: 50.00%"}, st.Snapshot.Issues)
}

func TestPoller_PollsEveryInterval(t *testing.T) {
	clk := clock.NewFake(epoch)
	src := &scriptedSource{answer: func(int) (*models.AnalyticsSnapshot, error) {
		return snapshotWithCoverage(80), nil
	}}
	p := newTestPoller(src, clk)
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool { return src.count() == 1 }, 5*time.Second, 5*time.Millisecond)

	clk.Advance(DefaultPollInterval - time.Second)
	assert.Equal(t, 1, src.count())

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return src.count() == 2 }, 5*time.Second, 5*time.Millisecond)
}

func TestPoller_StateIsACopy(t *testing.T) {
	src := &scriptedSource{answer: func(int) (*models.AnalyticsSnapshot, error) {
		return &models.AnalyticsSnapshot{
			PerArticle: []models.ArticleStat{{ArticleID: "1", Impressions: 10, Clicks: 0}},
		}, nil
	}}
	p := newTestPoller(src, clock.NewFake(epoch))
	require.NoError(t, p.Refresh(context.Background()))

	st := p.State()
	st.Snapshot.LowCTR[0].Title = "mutated"
	assert.Empty(t, p.State().Snapshot.LowCTR[0].Title)
}
