package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketReserved  TicketStatus = "reserved"
	TicketSold      TicketStatus = "sold"
)

// Valid reports whether s is one of the closed set of ticket statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketAvailable, TicketReserved, TicketSold:
		return true
	}
	return false
}

type TicketType string

const (
	TypeStandard TicketType = "standard"
	TypeVIP      TicketType = "vip"
)

func (t TicketType) Valid() bool {
	switch t {
	case TypeStandard, TypeVIP:
		return true
	}
	return false
}

// Ticket is one seat of one event. UserID is empty while the ticket is
// available; it must reference an existing user while reserved or sold.
// EventID never changes after creation.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID         string       `bun:"id,pk" json:"id"`
	EventID    string       `bun:"event_id,notnull" json:"event_id"`
	UserID     string       `bun:"user_id,nullzero" json:"user_id,omitempty"`
	SeatNumber int          `bun:"seat_number,notnull" json:"seat_number"`
	Type       TicketType   `bun:"type,notnull" json:"type"`
	Status     TicketStatus `bun:"status,notnull" json:"status"`
	Price      float64      `bun:"price,notnull" json:"price"`
	QRCode     []byte       `bun:"qr_code" json:"qr_code,omitempty"`
	CreatedAt  time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time    `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
