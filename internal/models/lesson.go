package models

import (
	"strings"
	"time"
)

// Shift identifies the period of day a lesson runs in. Values are stored in
// Portuguese because the backup and CSV contracts carry them verbatim.
type Shift string

const (
	ShiftMorning   Shift = "Manhã"
	ShiftAfternoon Shift = "Tarde"
	ShiftEvening   Shift = "Noite"
)

// Shifts returns the shifts in display order.
func Shifts() []Shift {
	return []Shift{ShiftMorning, ShiftAfternoon, ShiftEvening}
}

// NormalizeShift coerces free-form input onto the enum. Anything
// unrecognised becomes the evening shift.
func NormalizeShift(raw string) Shift {
	switch Shift(strings.TrimSpace(raw)) {
	case ShiftMorning, ShiftAfternoon, ShiftEvening:
		return Shift(strings.TrimSpace(raw))
	default:
		return ShiftEvening
	}
}

// LessonStatus tracks preparation progress of a lesson.
type LessonStatus string

const (
	StatusPlanning  LessonStatus = "Planejando"
	StatusPrepare   LessonStatus = "Preparar"
	StatusReady     LessonStatus = "Pronta"
	StatusDelivered LessonStatus = "Entregue"
)

// NormalizeStatus coerces free-form input onto the enum, defaulting to
// planning.
func NormalizeStatus(raw string) LessonStatus {
	switch LessonStatus(strings.TrimSpace(raw)) {
	case StatusPlanning, StatusPrepare, StatusReady, StatusDelivered:
		return LessonStatus(strings.TrimSpace(raw))
	default:
		return StatusPlanning
	}
}

// Lesson represents an "aula" scheduled for a class on a given date/shift.
type Lesson struct {
	ID           string       `db:"id" json:"id"`
	ClassID      string       `db:"class_id" json:"class_id"`
	UserID       string       `db:"user_id" json:"user_id"`
	InstructorID *string      `db:"instructor_id" json:"instructor_id"`
	Title        string       `db:"title" json:"title"`
	Date         time.Time    `db:"lesson_date" json:"date"`
	Shift        Shift        `db:"shift" json:"shift"`
	Status       LessonStatus `db:"status" json:"status"`
	Sequence     *int         `db:"sequence" json:"sequence"`
	Room         *string      `db:"room" json:"room"`
	BuildingUnit *string      `db:"building_unit" json:"building_unit"`
	StudyBlock   *string      `db:"study_block" json:"study_block"`
	Description  *string      `db:"description" json:"description"`
	Notes        *string      `db:"notes" json:"notes"`
	FilesLink    *string      `db:"files_link" json:"files_link"`
	ClassName    string       `db:"class_name" json:"class_name,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// LessonFilter captures filtering criteria for the lesson management list.
type LessonFilter struct {
	ClassID  string
	Statuses []LessonStatus
	Search   string
	Page     int
	PageSize int
}
