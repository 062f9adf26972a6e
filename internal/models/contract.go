package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Contract books a performer for an event. The (event, performer) pair is
// unique; a second contract for the same pair is rejected.
type Contract struct {
	bun.BaseModel `bun:"table:contracts,alias:c"`

	ID          string    `bun:"id,pk" json:"id"`
	EventID     string    `bun:"event_id,notnull,unique:event_performer" json:"event_id"`
	PerformerID string    `bun:"performer_id,notnull,unique:event_performer" json:"performer_id"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}
