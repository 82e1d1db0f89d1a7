package models

import (
	"strings"
	"time"
)

// Class represents a "turma": a group of students a lesson belongs to.
type Class struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Name           string    `db:"name" json:"name"`
	FullCode       *string   `db:"full_code" json:"full_code"`
	CurricularUnit *string   `db:"curricular_unit" json:"curricular_unit"`
	JournalLink    *string   `db:"journal_link" json:"journal_link"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeClassName produces the natural key used for duplicate matching
// during imports: trimmed and lowercased.
func NormalizeClassName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
