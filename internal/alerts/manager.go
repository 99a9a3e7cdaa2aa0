package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/clock"
	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultFadeDelay    = 400 * time.Millisecond
)

type State string

const (
	StateActive  State = "active"
	StateFading  State = "fading"
	StateRemoved State = "removed"
)

var (
	ErrIndexOutOfRange = errors.New("alert index out of range")
	ErrNotActive       = errors.New("alert is not active")
)

type Backend interface {
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	DeleteAlert(ctx context.Context, index int) error
}

// Notifier is told about alerts that appear after the first load.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Entry is an alert as displayed. The state never leaves the process.
type Entry struct {
	models.Alert
	State State `json:"state"`
}

func (e Entry) Fading() bool { return e.State == StateFading }

type entry struct {
	alert    models.Alert
	state    State
	deleting bool
	timer    *clock.Timer
}

type Options struct {
	PollInterval time.Duration
	FadeDelay    time.Duration
	Clock        clock.Clock
	Notifier     Notifier
}

// Manager owns the alert list. Each alert moves active → fading →
// removed: fading starts the moment the backend confirms a delete and
// ends exactly FadeDelay later. Polls never run while a delete is in
// flight or an alert is fading; they are deferred until the last fade
// completes so a removed alert is never shown again mid-transition.
type Manager struct {
	backend  Backend
	notifier Notifier
	clock    clock.Clock
	logger   *logrus.Logger

	pollInterval time.Duration
	fadeDelay    time.Duration

	deleteMu sync.Mutex

	mu         sync.Mutex
	entries    []*entry
	seen       map[string]bool
	primed     bool
	pollSeq    uint64
	appliedSeq uint64
	generation uint64
	deferred   bool
	running    bool
	stopped    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(backend Backend, logger *logrus.Logger, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FadeDelay <= 0 {
		opts.FadeDelay = DefaultFadeDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		backend:      backend,
		notifier:     opts.Notifier,
		clock:        opts.Clock,
		logger:       logger,
		pollInterval: opts.PollInterval,
		fadeDelay:    opts.FadeDelay,
		seen:         make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start loads the list once and then polls on the configured interval
// until Stop.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running || m.stopped {
		m.mu.Unlock()
		return
	}
	m.running = true
	ticker := m.clock.NewTicker(m.pollInterval)
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer ticker.Stop()

		m.Refresh(m.ctx)
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.Refresh(m.ctx)
			}
		}
	}()
}

// Stop cancels the poller, pending fades and in-flight requests.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.cancel()
	for _, e := range m.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Refresh replaces the list with the backend's. Failures keep the
// current list. While a delete is in flight or an alert is fading the
// refresh is deferred and runs once the transition settles.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.busyLocked() {
		m.deferred = true
		m.mu.Unlock()
		m.logger.Debug("Alert refresh deferred until fade completes")
		return nil
	}
	m.pollSeq++
	seq := m.pollSeq
	gen := m.generation
	m.mu.Unlock()

	alerts, err := m.backend.ListAlerts(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to fetch alerts")
		return fmt.Errorf("list alerts: %w", err)
	}

	m.mu.Lock()
	if seq <= m.appliedSeq {
		m.mu.Unlock()
		return nil
	}
	if gen != m.generation || m.busyLocked() {
		// The response predates a delete; showing it would resurrect
		// the deleted alert.
		m.deferred = true
		rerun := m.takeDeferredLocked()
		m.mu.Unlock()
		if rerun {
			m.refreshAsync()
		}
		return nil
	}
	m.appliedSeq = seq
	fresh := m.applyLocked(alerts)
	m.mu.Unlock()

	m.notify(ctx, fresh)
	return nil
}

// Delete asks the backend to delete the alert shown at index. On
// success the alert starts fading immediately; on failure it stays
// active.
func (m *Manager) Delete(ctx context.Context, index int) error {
	m.deleteMu.Lock()
	defer m.deleteMu.Unlock()

	m.mu.Lock()
	if index < 0 || index >= len(m.entries) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	target := m.entries[index]
	if target.state != StateActive || target.deleting {
		m.mu.Unlock()
		return ErrNotActive
	}
	serverIndex := m.serverIndexLocked(target)
	target.deleting = true
	m.mu.Unlock()

	err := m.backend.DeleteAlert(ctx, serverIndex)

	m.mu.Lock()
	target.deleting = false
	if err != nil {
		rerun := m.takeDeferredLocked()
		m.mu.Unlock()
		m.logger.WithError(err).WithField("index", serverIndex).Error("Failed to delete alert")
		if rerun {
			m.refreshAsync()
		}
		return fmt.Errorf("delete alert: %w", err)
	}

	target.state = StateFading
	m.generation++
	target.timer = m.clock.AfterFunc(m.fadeDelay, func() { m.finishFade(target) })
	m.mu.Unlock()

	m.logger.WithField("index", serverIndex).Info("Alert deleted")
	return nil
}

// List returns the alerts currently displayed, fading ones included.
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, Entry{Alert: e.alert, State: e.state})
	}
	return out
}

func (m *Manager) finishFade(target *entry) {
	m.mu.Lock()
	target.state = StateRemoved
	target.timer = nil
	for i, e := range m.entries {
		if e == target {
			m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
			break
		}
	}
	rerun := m.takeDeferredLocked()
	m.mu.Unlock()

	if rerun {
		m.refreshAsync()
	}
}

// refreshAsync adds to the WaitGroup under mu so it never races Stop's
// Wait.
func (m *Manager) refreshAsync() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.Refresh(m.ctx)
	}()
}

// takeDeferredLocked consumes the deferred flag once nothing blocks a
// refresh any more.
func (m *Manager) takeDeferredLocked() bool {
	if !m.deferred || m.busyLocked() {
		return false
	}
	m.deferred = false
	return true
}

func (m *Manager) busyLocked() bool {
	for _, e := range m.entries {
		if e.deleting || e.state == StateFading {
			return true
		}
	}
	return false
}

// serverIndexLocked maps a displayed entry to its position in the
// backend's list, which no longer holds fading entries.
func (m *Manager) serverIndexLocked(target *entry) int {
	idx := 0
	for _, e := range m.entries {
		if e == target {
			return idx
		}
		if e.state == StateActive {
			idx++
		}
	}
	return idx
}

func (m *Manager) applyLocked(alerts []models.Alert) []models.Alert {
	entries := make([]*entry, 0, len(alerts))
	var fresh []models.Alert
	for _, a := range alerts {
		entries = append(entries, &entry{alert: a, state: StateActive})
		if !m.seen[a.Key()] {
			m.seen[a.Key()] = true
			if m.primed {
				fresh = append(fresh, a)
			}
		}
	}
	m.entries = entries
	m.primed = true
	return fresh
}

func (m *Manager) notify(ctx context.Context, fresh []models.Alert) {
	if m.notifier == nil {
		return
	}
	for _, a := range fresh {
		if err := m.notifier.Notify(ctx, a); err != nil {
			m.logger.WithError(err).WithField("alert", a.Message).Warn("Failed to forward alert")
		}
	}
}
