package lifecycle

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/lifecycle/qr"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type DBLayer interface {
	CreateTickets(tickets []models.Ticket) error
	GetTicketByID(id string) (*models.Ticket, error)
	UpdateTicket(ticket models.Ticket) error
	GetTicketsByUser(userID string) ([]models.Ticket, error)
	UserExists(id string) (bool, error)
	EventExists(id string) (bool, error)
}

type Publisher interface {
	PublishTicketReserved(ticket models.Ticket) error
	PublishTicketPurchased(ticket models.Ticket) error
	PublishTicketReleased(ticket models.Ticket) error
}

// Cache is the availability cache; lifecycle transitions invalidate the
// cached available-seat count of the affected event.
type Cache interface {
	Invalidate(eventID string) error
}

// Service owns the ticket state machine: available -> reserved -> sold,
// with reserved reverting to available on manual release, user deletion or
// reservation expiry. All mutations are single-ticket read-modify-writes
// against the entity store.
type Service struct {
	DB        DBLayer
	Scheduler *Scheduler
	Kafka     Publisher
	Cache     Cache
	QR        *qr.Generator
	Logger    *logger.Logger
	HoldTTL   time.Duration
}

func NewService(db DBLayer, scheduler *Scheduler, kafka Publisher, cache Cache, qrGen *qr.Generator, log *logger.Logger, holdTTL time.Duration) *Service {
	return &Service{
		DB:        db,
		Scheduler: scheduler,
		Kafka:     kafka,
		Cache:     cache,
		QR:        qrGen,
		Logger:    log,
		HoldTTL:   holdTTL,
	}
}

// AllocateForEvent creates one ticket per seat for a freshly created event.
// Seats are numbered 1..seatCount; the first min(vipCount, seatCount) seats
// are VIP at vipPrice, the rest standard at standardPrice. An over-large
// vipCount is clamped, not rejected.
func (s *Service) AllocateForEvent(eventID string, seatCount int, standardPrice, vipPrice float64, vipCount int) error {
	now := time.Now()
	tickets := make([]models.Ticket, 0, seatCount)
	for seat := 1; seat <= seatCount; seat++ {
		ticket := models.Ticket{
			ID:         uuid.New().String(),
			EventID:    eventID,
			SeatNumber: seat,
			Status:     models.TicketAvailable,
			Type:       models.TypeStandard,
			Price:      standardPrice,
			CreatedAt:  now,
		}
		if seat <= vipCount {
			ticket.Type = models.TypeVIP
			ticket.Price = vipPrice
		}
		tickets = append(tickets, ticket)
	}

	if err := s.DB.CreateTickets(tickets); err != nil {
		return fmt.Errorf("failed to allocate tickets for event %s: %w", eventID, err)
	}

	s.invalidate(eventID)
	s.logInfo("LIFECYCLE", fmt.Sprintf("Allocated %d tickets (%d VIP) for event %s", len(tickets), min(vipCount, seatCount), eventID))
	return nil
}

// Reserve puts an available ticket on hold for a user and schedules the
// hold to lapse after HoldTTL. The returned expiry time is advisory; the
// actual release is driven by the scheduled task, not by comparing
// timestamps at read time.
func (s *Service) Reserve(ticketID, userID string) (time.Time, error) {
	ticket, err := s.getTicket(ticketID)
	if err != nil {
		return time.Time{}, err
	}

	exists, err := s.DB.UserExists(userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to validate user: %w", err)
	}
	if !exists {
		return time.Time{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	if ticket.Status != models.TicketAvailable {
		return time.Time{}, fmt.Errorf("ticket %s is not available for reservation: %w", ticketID, ErrConflict)
	}

	now := time.Now()
	ticket.Status = models.TicketReserved
	ticket.UserID = userID
	ticket.UpdatedAt = now

	if err := s.DB.UpdateTicket(*ticket); err != nil {
		return time.Time{}, fmt.Errorf("failed to reserve ticket %s: %w", ticketID, err)
	}

	expiresAt := now.Add(s.HoldTTL)
	if s.Scheduler != nil {
		holder := userID
		s.Scheduler.Schedule(expiresAt, func() {
			if err := s.ExpireReservation(ticketID, holder); err != nil {
				s.logError("LIFECYCLE", fmt.Sprintf("Expiry of ticket %s failed: %v", ticketID, err))
			}
		})
	}

	s.publish(s.Kafka.PublishTicketReserved, *ticket, "ticket reserved")
	s.invalidate(ticket.EventID)
	s.logInfo("LIFECYCLE", fmt.Sprintf("Ticket %s reserved by user %s until %s", ticketID, userID, expiresAt.Format(time.RFC3339)))
	return expiresAt, nil
}

// ExpireReservation is fired by the scheduler when a hold lapses. It
// re-reads the ticket immediately before mutating: if the ticket was
// purchased, released, or re-reserved by someone else in the meantime, the
// expiry is a no-op. Last consistent state wins; expiry never overrides a
// purchase.
func (s *Service) ExpireReservation(ticketID, holderID string) error {
	ticket, err := s.getTicket(ticketID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil // ticket (or its event) deleted while on hold
		}
		return err
	}

	if ticket.Status != models.TicketReserved || ticket.UserID != holderID {
		return nil
	}

	ticket.Status = models.TicketAvailable
	ticket.UserID = ""
	ticket.UpdatedAt = time.Now()

	if err := s.DB.UpdateTicket(*ticket); err != nil {
		return fmt.Errorf("failed to release expired ticket %s: %w", ticketID, err)
	}

	s.publish(s.Kafka.PublishTicketReleased, *ticket, "reservation expired")
	s.invalidate(ticket.EventID)
	s.logInfo("LIFECYCLE", fmt.Sprintf("Reservation on ticket %s by user %s expired, ticket available again", ticketID, holderID))
	return nil
}

// Purchase sells a ticket to a user. A sold ticket cannot be bought again;
// a reserved ticket can only be bought by the user holding the reservation.
// The pending expiry task is not cancelled; it no-ops on its status
// re-check.
func (s *Service) Purchase(userID, ticketID string) (*models.Ticket, error) {
	exists, err := s.DB.UserExists(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	ticket, err := s.getTicket(ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.Status == models.TicketSold {
		return nil, fmt.Errorf("ticket %s is already sold: %w", ticketID, ErrConflict)
	}
	if ticket.Status == models.TicketReserved && ticket.UserID != userID {
		return nil, fmt.Errorf("ticket %s is reserved by another user: %w", ticketID, ErrConflict)
	}

	ticket.Status = models.TicketSold
	ticket.UserID = userID
	ticket.UpdatedAt = time.Now()

	if s.QR != nil {
		png, err := s.QR.GenerateEncryptedQR(*ticket)
		if err != nil {
			s.logWarn("LIFECYCLE", fmt.Sprintf("QR generation for ticket %s failed: %v", ticketID, err))
		} else {
			ticket.QRCode = png
		}
	}

	if err := s.DB.UpdateTicket(*ticket); err != nil {
		return nil, fmt.Errorf("failed to sell ticket %s: %w", ticketID, err)
	}

	s.publish(s.Kafka.PublishTicketPurchased, *ticket, "ticket purchased")
	s.invalidate(ticket.EventID)
	s.logInfo("LIFECYCLE", fmt.Sprintf("Ticket %s sold to user %s", ticketID, userID))
	return ticket, nil
}

// ReleaseOnUserDeletion resets every ticket owned by a user back to
// available, regardless of status. Unlike expiry this is an unconditional
// override: sold tickets are released too, and their QR codes revoked.
func (s *Service) ReleaseOnUserDeletion(userID string) error {
	tickets, err := s.DB.GetTicketsByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to list tickets of user %s: %w", userID, err)
	}

	var firstErr error
	for _, ticket := range tickets {
		ticket.Status = models.TicketAvailable
		ticket.UserID = ""
		ticket.QRCode = nil
		ticket.UpdatedAt = time.Now()

		if err := s.DB.UpdateTicket(ticket); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to release ticket %s: %w", ticket.ID, err)
			}
			continue
		}

		s.publish(s.Kafka.PublishTicketReleased, ticket, "owner deleted")
		s.invalidate(ticket.EventID)
	}

	s.logInfo("LIFECYCLE", fmt.Sprintf("Released %d tickets of deleted user %s", len(tickets), userID))
	return firstErr
}

func (s *Service) getTicket(ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

func (s *Service) publish(fn func(models.Ticket) error, ticket models.Ticket, what string) {
	if err := fn(ticket); err != nil {
		s.logError("KAFKA", fmt.Sprintf("Publish error (%s, ticket %s): %v", what, ticket.ID, err))
	}
}

func (s *Service) invalidate(eventID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(eventID); err != nil {
		s.logWarn("CACHE", fmt.Sprintf("Failed to invalidate availability of event %s: %v", eventID, err))
	}
}

func (s *Service) logInfo(category, message string) {
	if s.Logger != nil {
		s.Logger.Info(category, message)
	}
}

func (s *Service) logWarn(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}

func (s *Service) logError(category, message string) {
	if s.Logger != nil {
		s.Logger.Error(category, message)
	}
}
