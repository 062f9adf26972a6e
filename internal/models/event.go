package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Venue         string    `bun:"venue,notnull" json:"venue"`
	StartsAt      time.Time `bun:"starts_at,notnull" json:"starts_at"`
	SeatCount     int       `bun:"seat_count,notnull" json:"seat_count"`
	StandardPrice float64   `bun:"standard_price,notnull" json:"standard_price"`
	VIPPrice      float64   `bun:"vip_price,notnull" json:"vip_price"`
	VIPCount      int       `bun:"vip_count,notnull,default:0" json:"vip_count"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// EventAvailability is the /events_available/ response row.
type EventAvailability struct {
	EventID        string    `json:"event_id"`
	Name           string    `json:"name"`
	StartsAt       time.Time `json:"starts_at"`
	SeatCount      int       `json:"seat_count"`
	AvailableSeats int       `json:"available_seats"`
}
