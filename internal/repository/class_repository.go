package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omenezes/aula-planner-api/internal/models"
)

// ClassRepository persists classes ("turmas").
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, user_id, name, full_code, curricular_unit, journal_link, active, created_at, updated_at`

// ListByUser returns the user's classes, optionally only active ones.
func (r *ClassRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE user_id = $1`, classColumns)
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, userID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByNormalizedName matches a class by the import natural key:
// same owner, case-insensitive trimmed name.
func (r *ClassRepository) FindByNormalizedName(ctx context.Context, userID, name string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE user_id = $1 AND lower(trim(name)) = $2`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, userID, models.NormalizeClassName(name)); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, user_id, name, full_code, curricular_unit, journal_link, active, created_at, updated_at)
VALUES (:id, :user_id, :name, :full_code, :curricular_unit, :journal_link, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, full_code = :full_code, curricular_unit = :curricular_unit,
journal_link = :journal_link, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class and all of its lessons in one transaction so no
// orphan lesson can survive.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class lessons: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit class delete: %w", err)
	}
	return nil
}
