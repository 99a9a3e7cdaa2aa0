package tickets

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

var ErrNotFound = errors.New("ticket not found")

// Backend is the slice of the REST client the store needs.
type Backend interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id models.ID, status models.Status) (*models.TicketPatch, error)
}

// Store owns the console's ticket list. Local state only changes after
// the backend confirms a mutation, so a failed call leaves it untouched.
type Store struct {
	backend Backend
	clock   clock.Clock
	logger  *logrus.Logger

	mu      sync.RWMutex
	tickets []models.Ticket
}

func NewStore(backend Backend, clk clock.Clock, logger *logrus.Logger) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		backend: backend,
		clock:   clk,
		logger:  logger,
	}
}

// Refresh replaces the local list with the backend's.
func (s *Store) Refresh(ctx context.Context) ([]models.Ticket, error) {
	list, err := s.backend.ListTickets(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load tickets")
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	fresh := make([]models.Ticket, 0, len(list))
	for _, t := range list {
		fresh = append(fresh, normalize(t))
	}

	s.mu.Lock()
	s.tickets = fresh
	s.mu.Unlock()

	s.logger.WithField("tickets", len(fresh)).Debug("Ticket list refreshed")
	return cloneAll(fresh), nil
}

// Create validates the draft locally, submits it and appends the ticket
// the backend returns. A draft that fails validation never leaves the
// process.
func (s *Store) Create(ctx context.Context, draft models.TicketDraft) (models.Ticket, error) {
	if err := draft.Validate(); err != nil {
		return models.Ticket{}, err
	}

	req := models.CreateTicketRequest{
		CustomerName: draft.CustomerName,
		Title:        draft.Title,
		Description:  draft.Description,
		Status:       models.StatusOpen,
		CreatedAt:    s.clock.Now().UTC().Format(time.RFC3339Nano),
	}

	created, err := s.backend.CreateTicket(ctx, req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create ticket")
		return models.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	ticket := normalize(*created)
	if ticket.ID == "" {
		return models.Ticket{}, fmt.Errorf("create ticket: backend returned no identifier")
	}

	s.mu.Lock()
	s.tickets = append(s.tickets, ticket)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"ticket_id":       ticket.ID,
		"recommendations": len(ticket.RecommendedArticleIDs),
	}).Info("Ticket created")
	return ticket.Clone(), nil
}

// UpdateStatus changes a ticket's status and merges only the fields the
// backend owns into the local copy. Concurrent updates to one ticket
// each merge their own response; unrelated fields are never touched.
func (s *Store) UpdateStatus(ctx context.Context, id interface{}, status models.Status) (models.Ticket, error) {
	ticketID := models.NormalizeID(id)

	before, ok := s.Get(ticketID)
	if !ok {
		return models.Ticket{}, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
	}
	if err := models.ValidateTransition(before.Status, status); err != nil {
		return models.Ticket{}, err
	}

	patch, err := s.backend.UpdateTicketStatus(ctx, ticketID, status)
	if err != nil {
		s.logger.WithError(err).WithField("ticket_id", ticketID).Error("Failed to update ticket status")
		return models.Ticket{}, fmt.Errorf("update ticket %s: %w", ticketID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tickets {
		if s.tickets[i].ID == ticketID {
			s.tickets[i] = patch.Merge(s.tickets[i])
			s.logger.WithFields(logrus.Fields{
				"ticket_id": ticketID,
				"status":    s.tickets[i].Status,
			}).Info("Ticket status updated")
			return s.tickets[i].Clone(), nil
		}
	}
	// Dropped by a concurrent refresh while the request was in flight.
	return patch.Merge(before), nil
}

// List returns tickets in arrival order.
func (s *Store) List() []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tickets)
}

func (s *Store) Get(id interface{}) (models.Ticket, bool) {
	ticketID := models.NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if t.ID == ticketID {
			return t.Clone(), true
		}
	}
	return models.Ticket{}, false
}

func normalize(t models.Ticket) models.Ticket {
	t.ID = models.NormalizeID(t.ID)
	if t.Status == "" {
		t.Status = models.StatusOpen
	}
	if t.RecommendedArticleIDs == nil {
		t.RecommendedArticleIDs = []models.ID{}
	}
	return t
}

func cloneAll(in []models.Ticket) []models.Ticket {
	out := make([]models.Ticket, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
