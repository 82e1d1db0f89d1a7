package models

import "time"

// Instructor is an adjunct teacher that can be assigned as the one
// delivering a lesson in place of the owner.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
