package recommend

import (
	"context"
	"sync"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
)

// Pending is the lazy handle returned by Suggest. It resolves exactly
// once: with the ranked result, or with ErrSuperseded, ErrBelowThreshold,
// ErrClosed, context.Canceled or the query error.
type Pending struct {
	token  uint64
	done   chan struct{}
	once   sync.Once
	result models.RecommendationResult
	err    error
	cancel func()
}

func newPending(token uint64) *Pending {
	return &Pending{token: token, done: make(chan struct{})}
}

func (p *Pending) finish(result models.RecommendationResult, err error) {
	p.once.Do(func() {
		p.result = result
		p.err = err
		close(p.done)
	})
}

// Done is closed once the handle resolves.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the handle resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) (models.RecommendationResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return models.RecommendationResult{}, ctx.Err()
	}
}

// Cancel abandons the query if it is still the latest one.
func (p *Pending) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}
