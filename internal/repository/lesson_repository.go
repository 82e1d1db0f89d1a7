package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/omenezes/aula-planner-api/internal/models"
)

// LessonRepository persists lessons ("aulas").
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `l.id, l.class_id, l.user_id, l.instructor_id, l.title, l.lesson_date, l.shift, l.status,
l.sequence, l.room, l.building_unit, l.study_block, l.description, l.notes, l.files_link, l.created_at, l.updated_at`

// FindByID fetches a lesson together with its class name.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS class_name FROM lessons l JOIN classes c ON c.id = l.class_id WHERE l.id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListForRange returns the user's lessons inside the inclusive date range,
// restricted to active classes. Feeds the dashboard projector.
func (r *LessonRepository) ListForRange(ctx context.Context, userID string, start, end time.Time) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS class_name
FROM lessons l
JOIN classes c ON c.id = l.class_id
WHERE c.user_id = $1 AND c.active = TRUE AND l.lesson_date >= $2 AND l.lesson_date <= $3
ORDER BY l.lesson_date ASC, l.created_at ASC`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, userID, start, end); err != nil {
		return nil, fmt.Errorf("list lessons for range: %w", err)
	}
	return lessons, nil
}

// List returns the management view: filtered, searched and paginated.
func (r *LessonRepository) List(ctx context.Context, userID string, filter models.LessonFilter) ([]models.Lesson, int, error) {
	where := []string{"c.user_id = $1"}
	args := []interface{}{userID}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("l.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("l.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("l.status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, c.name AS class_name
FROM lessons l JOIN classes c ON c.id = l.class_id
WHERE %s ORDER BY l.lesson_date ASC LIMIT %d OFFSET %d`, lessonColumns, whereClause, size, offset)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM lessons l JOIN classes c ON c.id = l.class_id WHERE %s`, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// ListByClass returns a class's lessons ordered by date, for the printable
// class plan.
func (r *LessonRepository) ListByClass(ctx context.Context, classID string) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS class_name
FROM lessons l JOIN classes c ON c.id = l.class_id
WHERE l.class_id = $1 ORDER BY l.lesson_date ASC, l.created_at ASC`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, classID); err != nil {
		return nil, fmt.Errorf("list class lessons: %w", err)
	}
	return lessons, nil
}

// Create inserts a lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, class_id, user_id, instructor_id, title, lesson_date, shift, status,
sequence, room, building_unit, study_block, description, notes, files_link, created_at, updated_at)
VALUES (:id, :class_id, :user_id, :instructor_id, :title, :lesson_date, :shift, :status,
:sequence, :room, :building_unit, :study_block, :description, :notes, :files_link, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET class_id = :class_id, instructor_id = :instructor_id, title = :title,
lesson_date = :lesson_date, shift = :shift, status = :status, sequence = :sequence, room = :room,
building_unit = :building_unit, study_block = :study_block, description = :description, notes = :notes,
files_link = :files_link, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
