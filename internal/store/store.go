package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// Store is the durable entity store for events, performers, users, tickets
// and contracts. Single-record updates are atomic at the database level;
// nothing here holds cross-record transactions.
type Store struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *Store {
	return &Store{Bun: bunDB}
}

// ---------------- EVENTS ----------------

func (s *Store) CreateEvent(event models.Event) error {
	_, err := s.Bun.NewInsert().Model(&event).Exec(context.Background())
	return err
}

func (s *Store) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	err := s.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) UpdateEvent(event models.Event) error {
	_, err := s.Bun.NewUpdate().
		Model(&event).
		Column("name", "venue", "starts_at", "seat_count", "standard_price", "vip_price", "vip_count").
		Where("e.id = ?", event.ID).
		Exec(context.Background())
	return err
}

func (s *Store) DeleteEvent(id string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("e.id = ?", id).
		Exec(context.Background())
	return err
}

func (s *Store) ListEvents() ([]models.Event, error) {
	var events []models.Event
	err := s.Bun.NewSelect().
		Model(&events).
		Order("starts_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListEventsBetween returns events starting after from and before until.
func (s *Store) ListEventsBetween(from, until time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.Bun.NewSelect().
		Model(&events).
		Where("e.starts_at > ?", from).
		Where("e.starts_at < ?", until).
		Order("starts_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) EventExists(id string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("e.id = ?", id).
		Exists(context.Background())
}

// ---------------- TICKETS ----------------

// CreateTickets bulk-inserts the tickets allocated for an event.
func (s *Store) CreateTickets(tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := s.Bun.NewInsert().Model(&tickets).Exec(context.Background())
	return err
}

func (s *Store) CreateTicket(ticket models.Ticket) error {
	_, err := s.Bun.NewInsert().Model(&ticket).Exec(context.Background())
	return err
}

func (s *Store) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.Bun.NewSelect().
		Model(&ticket).
		Where("t.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *Store) UpdateTicket(ticket models.Ticket) error {
	_, err := s.Bun.NewUpdate().
		Model(&ticket).
		Column("user_id", "seat_number", "type", "status", "price", "qr_code", "updated_at").
		Where("t.id = ?", ticket.ID).
		Exec(context.Background())
	return err
}

func (s *Store) DeleteTicket(id string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("t.id = ?", id).
		Exec(context.Background())
	return err
}

func (s *Store) DeleteTicketsByEvent(eventID string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("t.event_id = ?", eventID).
		Exec(context.Background())
	return err
}

func (s *Store) GetTicketsByUser(userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.Bun.NewSelect().
		Model(&tickets).
		Where("t.user_id = ?", userID).
		Order("seat_number ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetTicketsByUserAndStatus(userID string, status models.TicketStatus) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.Bun.NewSelect().
		Model(&tickets).
		Where("t.user_id = ?", userID).
		Where("t.status = ?", status).
		Order("seat_number ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetTicketsByEvent(eventID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.Bun.NewSelect().
		Model(&tickets).
		Where("t.event_id = ?", eventID).
		Order("seat_number ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) CountAvailableTickets(eventID string) (int, error) {
	return s.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("t.event_id = ?", eventID).
		Where("t.status = ?", models.TicketAvailable).
		Count(context.Background())
}

// ---------------- USERS ----------------

func (s *Store) CreateUser(user models.User) error {
	_, err := s.Bun.NewInsert().Model(&user).Exec(context.Background())
	return err
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.Bun.NewSelect().
		Model(&user).
		Where("u.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUser(user models.User) error {
	_, err := s.Bun.NewUpdate().
		Model(&user).
		Column("name", "surname").
		Where("u.id = ?", user.ID).
		Exec(context.Background())
	return err
}

func (s *Store) DeleteUser(id string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.User)(nil)).
		Where("u.id = ?", id).
		Exec(context.Background())
	return err
}

func (s *Store) UserExists(id string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("u.id = ?", id).
		Exists(context.Background())
}

// GetUsersByEventAndTicketStatus returns the distinct users holding tickets
// with the given status for an event.
func (s *Store) GetUsersByEventAndTicketStatus(eventID string, status models.TicketStatus) ([]models.User, error) {
	var users []models.User
	err := s.Bun.NewSelect().
		Model(&users).
		Distinct().
		Join("JOIN tickets AS t ON t.user_id = u.id").
		Where("t.event_id = ?", eventID).
		Where("t.status = ?", status).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ---------------- PERFORMERS ----------------

func (s *Store) CreatePerformer(performer models.Performer) error {
	_, err := s.Bun.NewInsert().Model(&performer).Exec(context.Background())
	return err
}

func (s *Store) GetPerformerByID(id string) (*models.Performer, error) {
	var performer models.Performer
	err := s.Bun.NewSelect().
		Model(&performer).
		Where("p.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &performer, nil
}

func (s *Store) UpdatePerformer(performer models.Performer) error {
	_, err := s.Bun.NewUpdate().
		Model(&performer).
		Column("name", "surname").
		Where("p.id = ?", performer.ID).
		Exec(context.Background())
	return err
}

func (s *Store) DeletePerformer(id string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Performer)(nil)).
		Where("p.id = ?", id).
		Exec(context.Background())
	return err
}

func (s *Store) PerformerExists(id string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.Performer)(nil)).
		Where("p.id = ?", id).
		Exists(context.Background())
}

// GetContractedPerformers returns the distinct performers that appear in at
// least one contract.
func (s *Store) GetContractedPerformers() ([]models.Performer, error) {
	var performers []models.Performer
	err := s.Bun.NewSelect().
		Model(&performers).
		Distinct().
		Join("JOIN contracts AS c ON c.performer_id = p.id").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return performers, nil
}

// ---------------- CONTRACTS ----------------

func (s *Store) CreateContract(contract models.Contract) error {
	_, err := s.Bun.NewInsert().Model(&contract).Exec(context.Background())
	return err
}

func (s *Store) ContractExists(eventID, performerID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.Contract)(nil)).
		Where("c.event_id = ?", eventID).
		Where("c.performer_id = ?", performerID).
		Exists(context.Background())
}

func (s *Store) DeleteContractsByEvent(eventID string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Contract)(nil)).
		Where("c.event_id = ?", eventID).
		Exec(context.Background())
	return err
}

func (s *Store) DeleteContractsByPerformer(performerID string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Contract)(nil)).
		Where("c.performer_id = ?", performerID).
		Exec(context.Background())
	return err
}
