package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Surname   string    `bun:"surname,notnull" json:"surname"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
