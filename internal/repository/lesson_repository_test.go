package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
)

func testTime() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func lessonRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "user_id", "instructor_id", "title", "lesson_date", "shift", "status",
		"sequence", "room", "building_unit", "study_block", "description", "notes", "files_link",
		"created_at", "updated_at", "class_name",
	})
}

func TestLessonRepositoryListForRangeScopesActiveClasses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	start := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	rows := lessonRows().AddRow(
		"lesson-1", "class-1", "user-1", nil, "Aula 1", start, "Manhã", "Pronta",
		nil, nil, nil, nil, nil, nil, nil, testTime(), testTime(), "Turma A",
	)

	mock.ExpectQuery(regexp.QuoteMeta(`c.user_id = $1 AND c.active = TRUE AND l.lesson_date >= $2 AND l.lesson_date <= $3`)).
		WithArgs("user-1", start, end).
		WillReturnRows(rows)

	lessons, err := repo.ListForRange(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Turma A", lessons[0].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListFiltersAndPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	filter := models.LessonFilter{
		ClassID:  "class-1",
		Search:   "intro",
		Statuses: []models.LessonStatus{models.StatusReady, models.StatusDelivered},
		Page:     2,
		PageSize: 10,
	}

	mock.ExpectQuery("LIMIT 10 OFFSET 10").
		WithArgs("user-1", "class-1", "%intro%", pq.Array([]string{"Pronta", "Entregue"})).
		WillReturnRows(lessonRows())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs("user-1", "class-1", "%intro%", pq.Array([]string{"Pronta", "Entregue"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	lessons, total, err := repo.List(context.Background(), "user-1", filter)
	require.NoError(t, err)
	assert.Empty(t, lessons)
	assert.Equal(t, 25, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(0, 1))

	lesson := &models.Lesson{
		ClassID: "class-1",
		UserID:  "user-1",
		Title:   "Aula 1",
		Date:    testTime(),
		Shift:   models.ShiftMorning,
		Status:  models.StatusPlanning,
	}
	require.NoError(t, repo.Create(context.Background(), lesson))
	assert.NotEmpty(t, lesson.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
