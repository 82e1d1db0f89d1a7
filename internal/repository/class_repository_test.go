package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
)

func TestClassRepositoryFindByNormalizedName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "full_code", "curricular_unit", "journal_link", "active", "created_at", "updated_at"}).
		AddRow("class-1", "user-1", "Turma A", nil, nil, nil, true, testTime(), testTime())

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND lower(trim(name)) = $2`)).
		WithArgs("user-1", "turma a").
		WillReturnRows(rows)

	class, err := repo.FindByNormalizedName(context.Background(), "user-1", "  TURMA A  ")
	require.NoError(t, err)
	assert.Equal(t, "class-1", class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteRemovesLessonsFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lessons WHERE class_id = $1`)).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM classes WHERE id = $1`)).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "class-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	class := &models.Class{UserID: "user-1", Name: "Turma A", Active: true}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.False(t, class.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByUserActiveOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "full_code", "curricular_unit", "journal_link", "active", "created_at", "updated_at"}).
		AddRow("class-1", "user-1", "Turma A", nil, nil, nil, true, testTime(), testTime())

	mock.ExpectQuery(regexp.QuoteMeta(`AND active = TRUE`)).
		WithArgs("user-1").
		WillReturnRows(rows)

	classes, err := repo.ListByUser(context.Background(), "user-1", true)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
