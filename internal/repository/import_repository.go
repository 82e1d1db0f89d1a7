package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omenezes/aula-planner-api/internal/models"
)

// ImportRepository applies a reconciliation plan against the database. The
// whole plan runs inside a single transaction so a failed restore leaves no
// partial state behind.
type ImportRepository struct {
	db *sqlx.DB
}

// NewImportRepository constructs an import repository.
func NewImportRepository(db *sqlx.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Reconcile merges the plan into the user's data. Classes match on the
// normalized name; an existing class wins and is never updated. Lessons
// duplicate on (class, date, title) and duplicates are skipped, which makes
// re-running the same backup a no-op.
func (r *ImportRepository) Reconcile(ctx context.Context, userID string, plan models.ReconcilePlan) (*models.ReconcileResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result := &models.ReconcileResult{}
	keyToID := make(map[string]string, len(plan.Classes)*2)

	for _, class := range plan.Classes {
		id, matched, err := r.resolveClass(ctx, tx, userID, class)
		if err != nil {
			return nil, err
		}
		if matched {
			result.ClassesMatched++
		} else {
			result.ClassesCreated++
		}
		for _, key := range class.Keys {
			keyToID[key] = id
		}
		keyToID[models.NormalizeClassName(class.Name)] = id
	}

	for _, lesson := range plan.Lessons {
		classID := ""
		for _, key := range lesson.ClassKeys {
			if id, ok := keyToID[key]; ok {
				classID = id
				break
			}
		}
		if classID == "" {
			result.LessonsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("lesson %q: class not found in backup", lesson.Title))
			continue
		}

		var exists bool
		const dupQuery = `SELECT EXISTS(SELECT 1 FROM lessons WHERE class_id = $1 AND lesson_date = $2 AND title = $3)`
		if err := tx.GetContext(ctx, &exists, dupQuery, classID, lesson.Date, lesson.Title); err != nil {
			return nil, fmt.Errorf("check duplicate lesson: %w", err)
		}
		if exists {
			result.LessonsSkipped++
			continue
		}

		now := time.Now().UTC()
		record := models.Lesson{
			ID:           uuid.NewString(),
			ClassID:      classID,
			UserID:       userID,
			Title:        lesson.Title,
			Date:         lesson.Date,
			Shift:        lesson.Shift,
			Status:       lesson.Status,
			Sequence:     lesson.Sequence,
			Room:         lesson.Room,
			BuildingUnit: lesson.BuildingUnit,
			StudyBlock:   lesson.StudyBlock,
			Description:  lesson.Description,
			Notes:        lesson.Notes,
			FilesLink:    lesson.FilesLink,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		const insertLesson = `INSERT INTO lessons (id, class_id, user_id, instructor_id, title, lesson_date, shift, status,
sequence, room, building_unit, study_block, description, notes, files_link, created_at, updated_at)
VALUES (:id, :class_id, :user_id, :instructor_id, :title, :lesson_date, :shift, :status,
:sequence, :room, :building_unit, :study_block, :description, :notes, :files_link, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertLesson, record); err != nil {
			return nil, fmt.Errorf("insert lesson: %w", err)
		}
		result.LessonsCreated++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reconcile: %w", err)
	}
	return result, nil
}

func (r *ImportRepository) resolveClass(ctx context.Context, tx *sqlx.Tx, userID string, class models.ReconcileClass) (string, bool, error) {
	var existingID string
	const matchQuery = `SELECT id FROM classes WHERE user_id = $1 AND lower(trim(name)) = $2`
	err := tx.GetContext(ctx, &existingID, matchQuery, userID, models.NormalizeClassName(class.Name))
	if err == nil {
		return existingID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("match class: %w", err)
	}

	now := time.Now().UTC()
	record := models.Class{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           class.Name,
		FullCode:       class.FullCode,
		CurricularUnit: class.CurricularUnit,
		JournalLink:    class.JournalLink,
		Active:         class.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	const insertClass = `INSERT INTO classes (id, user_id, name, full_code, curricular_unit, journal_link, active, created_at, updated_at)
VALUES (:id, :user_id, :name, :full_code, :curricular_unit, :journal_link, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertClass, record); err != nil {
		return "", false, fmt.Errorf("insert class: %w", err)
	}
	return record.ID, false, nil
}
