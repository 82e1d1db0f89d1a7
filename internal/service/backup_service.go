package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/drive"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type backupStore interface {
	List(ctx context.Context) ([]drive.BackupFile, error)
	Download(ctx context.Context, fileID string) (string, error)
	Upload(ctx context.Context, name, content string) error
}

type backupClassRepository interface {
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error)
}

type backupLessonRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Lesson, error)
}

type backupInstructorRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Instructor, error)
}

// BackupService drives the cloud backup folder: it exports the user's data
// as a JSON document, restores documents through the import reconciler, and
// scans the folder for the newest backup owned by a user.
type BackupService struct {
	store       backupStore
	classes     backupClassRepository
	lessons     backupLessonRepository
	instructors backupInstructorRepository
	importer    *ImportService
	logger      *zap.Logger
	now         func() time.Time
}

// NewBackupService constructs the service.
func NewBackupService(store backupStore, classes backupClassRepository, lessons backupLessonRepository, instructors backupInstructorRepository, importer *ImportService, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		store:       store,
		classes:     classes,
		lessons:     lessons,
		instructors: instructors,
		importer:    importer,
		logger:      logger,
		now:         time.Now,
	}
}

// ListBackups returns the backup files newest-first.
func (s *BackupService) ListBackups(ctx context.Context) ([]drive.BackupFile, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDriveUnavailable.Code, appErrors.ErrDriveUnavailable.Status, "backup storage unreachable")
	}
	return files, nil
}

// SyncLatest walks the backup folder newest-first and restores the first
// document whose email matches the user. Unreadable files are skipped; a
// mismatching owner is not an error. Returns what happened either way.
func (s *BackupService) SyncLatest(ctx context.Context, user *models.User) (models.SyncReport, *models.ReconcileResult, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return models.SyncReport{}, nil, appErrors.Wrap(err, appErrors.ErrDriveUnavailable.Code, appErrors.ErrDriveUnavailable.Status, "backup storage unreachable")
	}

	for _, file := range files {
		content, err := s.store.Download(ctx, file.ID)
		if err != nil {
			s.logger.Warn("skipping unreadable backup", zap.String("file", file.Name), zap.Error(err))
			continue
		}
		var doc models.BackupDocument
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			s.logger.Warn("skipping malformed backup", zap.String("file", file.Name), zap.Error(err))
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(doc.Email), strings.TrimSpace(user.Email)) {
			continue
		}

		result, err := s.importer.RestoreDocument(ctx, user.ID, doc)
		if err != nil {
			return models.SyncReport{}, nil, err
		}
		return models.SyncReport{Performed: true, BackupName: file.Name}, result, nil
	}

	return models.SyncReport{}, nil, nil
}

// Restore downloads a specific backup file and merges it into the user's
// data.
func (s *BackupService) Restore(ctx context.Context, userID, fileID string) (*models.ReconcileResult, error) {
	content, err := s.store.Download(ctx, fileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDriveUnavailable.Code, appErrors.ErrDriveUnavailable.Status, "backup storage unreachable")
	}
	var doc models.BackupDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backup file is not valid JSON")
	}
	return s.importer.RestoreDocument(ctx, userID, doc)
}

// BuildExport assembles the user's full backup document with lessons nested
// inside their classes.
func (s *BackupService) BuildExport(ctx context.Context, user *models.User) (*models.BackupDocument, error) {
	classes, err := s.classes.ListByUser(ctx, user.ID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes for export")
	}
	instructors, err := s.instructors.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors for export")
	}
	instructorNames := make(map[string]string, len(instructors))
	for _, instructor := range instructors {
		instructorNames[instructor.ID] = instructor.Name
	}

	doc := &models.BackupDocument{
		Email:   user.Email,
		Name:    user.FullName,
		Classes: make([]models.BackupClass, 0, len(classes)),
	}
	for _, instructor := range instructors {
		doc.Instructors = append(doc.Instructors, models.BackupInstructor{Name: instructor.Name})
	}

	for _, class := range classes {
		lessons, err := s.lessons.ListByClass(ctx, class.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons for export")
		}
		active := class.Active
		entry := models.BackupClass{
			Name:           class.Name,
			FullCode:       class.FullCode,
			CurricularUnit: class.CurricularUnit,
			JournalLink:    class.JournalLink,
			Active:         &active,
			Lessons:        make([]models.BackupLesson, 0, len(lessons)),
		}
		for _, lesson := range lessons {
			exported := models.BackupLesson{
				Title:        lesson.Title,
				Date:         lesson.Date.Format("2006-01-02"),
				Shift:        string(lesson.Shift),
				Status:       string(lesson.Status),
				Description:  lesson.Description,
				Room:         lesson.Room,
				BuildingUnit: lesson.BuildingUnit,
				StudyBlock:   lesson.StudyBlock,
				Sequence:     lesson.Sequence,
				Notes:        lesson.Notes,
				FilesLink:    lesson.FilesLink,
			}
			if lesson.InstructorID != nil {
				if name, ok := instructorNames[*lesson.InstructorID]; ok {
					exported.InstructorName = &name
				}
			}
			entry.Lessons = append(entry.Lessons, exported)
		}
		doc.Classes = append(doc.Classes, entry)
	}

	return doc, nil
}

// PushExport uploads a fresh manual backup and returns the file name.
func (s *BackupService) PushExport(ctx context.Context, user *models.User) (string, error) {
	name := fmt.Sprintf("backup_planner_%s.json", s.now().Format("2006-01-02_15-04"))
	return name, s.push(ctx, user, name)
}

// PushAuto uploads a backup on behalf of the periodic sweep. The file name
// carries the owner so operators can tell sweeps apart in the folder.
func (s *BackupService) PushAuto(ctx context.Context, user *models.User) (string, error) {
	owner := strings.ReplaceAll(strings.TrimSpace(user.FullName), " ", "_")
	if owner == "" {
		owner = user.ID
	}
	name := fmt.Sprintf("backup_AUTO_%s_%s.json", owner, s.now().Format("2006-01-02_15h04"))
	return name, s.push(ctx, user, name)
}

func (s *BackupService) push(ctx context.Context, user *models.User, name string) error {
	doc, err := s.BuildExport(ctx, user)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode backup")
	}
	if err := s.store.Upload(ctx, name, string(payload)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDriveUnavailable.Code, appErrors.ErrDriveUnavailable.Status, "backup storage unreachable")
	}
	s.logger.Info("backup uploaded", zap.String("file", name), zap.String("user_id", user.ID))
	return nil
}
