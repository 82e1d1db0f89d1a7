package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omenezes/aula-planner-api/internal/models"
)

// InstructorRepository persists adjunct instructors.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// ListByUser returns the user's adjunct instructors ordered by name.
func (r *InstructorRepository) ListByUser(ctx context.Context, userID string) ([]models.Instructor, error) {
	const query = `SELECT id, user_id, name, created_at FROM adjunct_instructors WHERE user_id = $1 ORDER BY name ASC`
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, userID); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// FindByID fetches an adjunct instructor by id.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, user_id, name, created_at FROM adjunct_instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindByName matches an instructor by owner and exact trimmed name.
func (r *InstructorRepository) FindByName(ctx context.Context, userID, name string) (*models.Instructor, error) {
	const query = `SELECT id, user_id, name, created_at FROM adjunct_instructors WHERE user_id = $1 AND lower(trim(name)) = $2`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, userID, models.NormalizeClassName(name)); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// Create inserts an adjunct instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	instructor.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO adjunct_instructors (id, user_id, name, created_at)
VALUES (:id, :user_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Delete removes an adjunct instructor and detaches it from any lesson.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin instructor delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE lessons SET instructor_id = NULL WHERE instructor_id = $1`, id); err != nil {
		return fmt.Errorf("detach instructor: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM adjunct_instructors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit instructor delete: %w", err)
	}
	return nil
}
