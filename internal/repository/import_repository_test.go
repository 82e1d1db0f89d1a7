package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestReconcileMatchesExistingClassAndSkipsDuplicateLesson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	plan := models.ReconcilePlan{
		Classes: []models.ReconcileClass{
			{Keys: []string{"1"}, Name: " Turma A ", Active: true},
		},
		Lessons: []models.ReconcileLesson{
			{ClassKeys: []string{"1"}, Title: "Aula nova", Date: date, Shift: models.ShiftMorning, Status: models.StatusPlanning},
			{ClassKeys: []string{"1"}, Title: "Aula repetida", Date: date, Shift: models.ShiftMorning, Status: models.StatusPlanning},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM classes WHERE user_id = $1 AND lower(trim(name)) = $2`)).
		WithArgs("user-1", "turma a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("class-1"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("class-1", date, "Aula nova").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("class-1", date, "Aula repetida").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	result, err := repo.Reconcile(context.Background(), "user-1", plan)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ClassesCreated)
	assert.Equal(t, 1, result.ClassesMatched)
	assert.Equal(t, 1, result.LessonsCreated)
	assert.Equal(t, 1, result.LessonsSkipped)
	assert.Empty(t, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileCreatesMissingClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	plan := models.ReconcilePlan{
		Classes: []models.ReconcileClass{{Name: "Turma Nova", Active: true}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM classes`)).
		WithArgs("user-1", "turma nova").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Reconcile(context.Background(), "user-1", plan)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClassesCreated)
	assert.Equal(t, 0, result.ClassesMatched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileSkipsLessonWithUnknownClassKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	plan := models.ReconcilePlan{
		Lessons: []models.ReconcileLesson{
			{ClassKeys: []string{"missing"}, Title: "Aula órfã", Date: time.Now(), Shift: models.ShiftEvening, Status: models.StatusPlanning},
		},
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := repo.Reconcile(context.Background(), "user-1", plan)
	require.NoError(t, err)
	assert.Equal(t, 1, result.LessonsSkipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Aula órfã")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileResolvesLessonByClassName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	plan := models.ReconcilePlan{
		Classes: []models.ReconcileClass{{Name: "Turma A", Active: true}},
		Lessons: []models.ReconcileLesson{
			// No transient id, only the normalized name key.
			{ClassKeys: []string{"turma a"}, Title: "Aula 1", Date: date, Shift: models.ShiftMorning, Status: models.StatusPlanning},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM classes`)).
		WithArgs("user-1", "turma a").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Reconcile(context.Background(), "user-1", plan)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClassesCreated)
	assert.Equal(t, 1, result.LessonsCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
