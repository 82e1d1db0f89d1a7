package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/drive"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type backupStoreStub struct {
	files     []drive.BackupFile
	contents  map[string]string
	listErr   error
	downloads []string
	uploads   map[string]string
}

func (s *backupStoreStub) List(ctx context.Context) ([]drive.BackupFile, error) {
	return s.files, s.listErr
}

func (s *backupStoreStub) Download(ctx context.Context, fileID string) (string, error) {
	s.downloads = append(s.downloads, fileID)
	content, ok := s.contents[fileID]
	if !ok {
		return "", errors.New("file vanished")
	}
	return content, nil
}

func (s *backupStoreStub) Upload(ctx context.Context, name, content string) error {
	if s.uploads == nil {
		s.uploads = map[string]string{}
	}
	s.uploads[name] = content
	return nil
}

type classListStub struct{ classes []models.Class }

func (s classListStub) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error) {
	return s.classes, nil
}

type lessonListStub struct{ byClass map[string][]models.Lesson }

func (s lessonListStub) ListByClass(ctx context.Context, classID string) ([]models.Lesson, error) {
	return s.byClass[classID], nil
}

type instructorListStub struct{ instructors []models.Instructor }

func (s instructorListStub) ListByUser(ctx context.Context, userID string) ([]models.Instructor, error) {
	return s.instructors, nil
}

func backupDoc(email string) string {
	doc := models.BackupDocument{Email: email, Classes: []models.BackupClass{{Name: "Turma A"}}}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

func newBackupService(store *backupStoreStub, repo *importRepoStub) *BackupService {
	importer := NewImportService(repo, nil, nil, nil)
	return NewBackupService(store, classListStub{}, lessonListStub{}, instructorListStub{}, importer, nil)
}

func TestSyncLatestSkipsOtherOwners(t *testing.T) {
	store := &backupStoreStub{
		files: []drive.BackupFile{
			{ID: "f1", Name: "backup_planner_2026-02-01_10-00.json"},
			{ID: "f2", Name: "backup_planner_2026-01-15_09-00.json"},
			{ID: "f3", Name: "backup_planner_2026-01-01_08-00.json"},
		},
		contents: map[string]string{
			"f1": backupDoc("someone@else.com"),
			"f2": backupDoc("Me@Example.com"),
			"f3": backupDoc("me@example.com"),
		},
	}
	repo := &importRepoStub{}
	svc := newBackupService(store, repo)

	report, result, err := svc.SyncLatest(context.Background(), &models.User{ID: "u1", Email: "me@example.com"})
	require.NoError(t, err)
	require.NotNil(t, result)

	// The first matching file wins; older ones are never downloaded.
	assert.True(t, report.Performed)
	assert.Equal(t, "backup_planner_2026-01-15_09-00.json", report.BackupName)
	assert.Equal(t, []string{"f1", "f2"}, store.downloads)
	assert.Len(t, repo.plans, 1)
}

func TestSyncLatestNoBackupsIsNotAnError(t *testing.T) {
	svc := newBackupService(&backupStoreStub{}, &importRepoStub{})

	report, result, err := svc.SyncLatest(context.Background(), &models.User{ID: "u1", Email: "me@example.com"})
	require.NoError(t, err)
	assert.False(t, report.Performed)
	assert.Nil(t, result)
}

func TestSyncLatestSkipsUnreadableFiles(t *testing.T) {
	store := &backupStoreStub{
		files: []drive.BackupFile{
			{ID: "broken", Name: "a.json"},
			{ID: "garbled", Name: "b.json"},
			{ID: "good", Name: "c.json"},
		},
		contents: map[string]string{
			"garbled": "{not json",
			"good":    backupDoc("me@example.com"),
		},
	}
	repo := &importRepoStub{}
	svc := newBackupService(store, repo)

	report, _, err := svc.SyncLatest(context.Background(), &models.User{ID: "u1", Email: "me@example.com"})
	require.NoError(t, err)
	assert.True(t, report.Performed)
	assert.Equal(t, "c.json", report.BackupName)
}

func TestSyncLatestStoreUnavailable(t *testing.T) {
	store := &backupStoreStub{listErr: errors.New("oauth expired")}
	svc := newBackupService(store, &importRepoStub{})

	_, _, err := svc.SyncLatest(context.Background(), &models.User{ID: "u1", Email: "me@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDriveUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBuildExportNestsLessonsAndInstructorNames(t *testing.T) {
	instructorID := "inst-1"
	classes := classListStub{classes: []models.Class{
		{ID: "c1", Name: "Turma A", Active: true},
	}}
	lessons := lessonListStub{byClass: map[string][]models.Lesson{
		"c1": {
			{Title: "Aula 1", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Shift: models.ShiftMorning, Status: models.StatusReady, InstructorID: &instructorID},
		},
	}}
	instructors := instructorListStub{instructors: []models.Instructor{{ID: instructorID, Name: "Prof. Silva"}}}

	svc := NewBackupService(&backupStoreStub{}, classes, lessons, instructors, NewImportService(&importRepoStub{}, nil, nil, nil), nil)

	doc, err := svc.BuildExport(context.Background(), &models.User{ID: "u1", Email: "me@example.com", FullName: "Maria"})
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", doc.Email)
	assert.Equal(t, "Maria", doc.Name)
	require.Len(t, doc.Classes, 1)
	require.Len(t, doc.Classes[0].Lessons, 1)

	exported := doc.Classes[0].Lessons[0]
	assert.Equal(t, "2026-03-02", exported.Date)
	require.NotNil(t, exported.InstructorName)
	assert.Equal(t, "Prof. Silva", *exported.InstructorName)
	require.Len(t, doc.Instructors, 1)
}

func TestExportRestoreRoundTripKeepsClassKeys(t *testing.T) {
	classes := classListStub{classes: []models.Class{{ID: "c1", Name: "Turma A", Active: true}}}
	lessons := lessonListStub{byClass: map[string][]models.Lesson{
		"c1": {{Title: "Aula 1", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Shift: models.ShiftMorning, Status: models.StatusReady}},
	}}
	repo := &importRepoStub{}
	svc := NewBackupService(&backupStoreStub{}, classes, lessons, instructorListStub{}, NewImportService(repo, nil, nil, nil), nil)

	doc, err := svc.BuildExport(context.Background(), &models.User{ID: "u1", Email: "me@example.com"})
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var parsed models.BackupDocument
	require.NoError(t, json.Unmarshal(raw, &parsed))

	plan := NormalizeBackup(parsed)
	require.Len(t, plan.Classes, 1)
	require.Len(t, plan.Lessons, 1)
	// The nested lesson resolves through the class name key even though the
	// export carries no transient ids.
	assert.Contains(t, plan.Lessons[0].ClassKeys, "turma a")
	assert.Empty(t, plan.Errors)
}

func TestPushAutoNamesFileAfterOwner(t *testing.T) {
	store := &backupStoreStub{}
	svc := newBackupService(store, &importRepoStub{})
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC) }

	name, err := svc.PushAuto(context.Background(), &models.User{ID: "u1", Email: "me@example.com", FullName: "Maria Souza"})
	require.NoError(t, err)
	assert.Equal(t, "backup_AUTO_Maria_Souza_2026-08-31_14h30.json", name)
	require.Contains(t, store.uploads, name)

	var doc models.BackupDocument
	require.NoError(t, json.Unmarshal([]byte(store.uploads[name]), &doc))
	assert.Equal(t, "me@example.com", doc.Email)
}
