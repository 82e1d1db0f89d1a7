package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/export"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	List(ctx context.Context, userID string, filter models.LessonFilter) ([]models.Lesson, int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type lessonClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type lessonInstructorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

// LessonService manages individual lessons.
type LessonService struct {
	repo        lessonRepository
	classes     lessonClassRepository
	instructors lessonInstructorRepository
	cache       *CacheService
	csv         *export.CSVExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLessonService constructs the service.
func NewLessonService(repo lessonRepository, classes lessonClassRepository, instructors lessonInstructorRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:        repo,
		classes:     classes,
		instructors: instructors,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// selfInstructor marks a lesson taught by the account owner rather than an
// adjunct instructor.
const selfInstructor = "me"

// LessonRequest is the create/update payload. Direct writes validate the
// enums strictly instead of coercing like imports do.
type LessonRequest struct {
	ClassID      string  `json:"turma_id" validate:"required"`
	Title        string  `json:"titulo" validate:"required"`
	Date         string  `json:"data" validate:"required,datetime=2006-01-02"`
	Shift        string  `json:"turno" validate:"required,oneof=Manhã Tarde Noite"`
	Status       string  `json:"status" validate:"required,oneof=Planejando Preparar Pronta Entregue"`
	InstructorID *string `json:"ministrante_id"`
	Sequence     *int    `json:"numero_aula"`
	Room         *string `json:"sala"`
	BuildingUnit *string `json:"unidade_predio"`
	StudyBlock   *string `json:"bloco_estudo"`
	Description  *string `json:"descricao"`
	Notes        *string `json:"observacoes"`
	FilesLink    *string `json:"link_arquivos"`
}

// List returns the filtered, paginated lesson management view.
func (s *LessonService) List(ctx context.Context, userID string, filter models.LessonFilter) ([]models.Lesson, *models.Pagination, error) {
	lessons, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return lessons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one lesson, enforcing ownership.
func (s *LessonService) Get(ctx context.Context, userID, id string) (*models.Lesson, error) {
	return s.owned(ctx, userID, id)
}

// Create adds a lesson to one of the user's classes.
func (s *LessonService) Create(ctx context.Context, userID string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson := &models.Lesson{UserID: userID}
	if err := s.apply(ctx, userID, lesson, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.invalidate(ctx, userID)
	return lesson, nil
}

// Update modifies a lesson.
func (s *LessonService) Update(ctx context.Context, userID, id string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, userID, lesson, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	s.invalidate(ctx, userID)
	return lesson, nil
}

// Delete removes a lesson.
func (s *LessonService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.invalidate(ctx, userID)
	return nil
}

// apply copies the request onto the lesson, resolving the class and the
// optional adjunct instructor.
func (s *LessonService) apply(ctx context.Context, userID string, lesson *models.Lesson, req LessonRequest) error {
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "class belongs to another user")
	}

	instructorID, err := s.resolveInstructor(ctx, userID, req.InstructorID)
	if err != nil {
		return err
	}

	date, err := parseLessonDate(req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid lesson date")
	}

	lesson.ClassID = class.ID
	lesson.InstructorID = instructorID
	lesson.Title = strings.TrimSpace(req.Title)
	lesson.Date = date
	lesson.Shift = models.Shift(req.Shift)
	lesson.Status = models.LessonStatus(req.Status)
	lesson.Sequence = req.Sequence
	lesson.Room = req.Room
	lesson.BuildingUnit = req.BuildingUnit
	lesson.StudyBlock = req.StudyBlock
	lesson.Description = req.Description
	lesson.Notes = req.Notes
	lesson.FilesLink = req.FilesLink
	lesson.ClassName = class.Name
	return nil
}

// resolveInstructor maps the payload value onto an instructor id. The
// sentinel "me" and the empty value both mean the account owner teaches the
// lesson, which is stored as no adjunct instructor.
func (s *LessonService) resolveInstructor(ctx context.Context, userID string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" || value == selfInstructor {
		return nil, nil
	}
	instructor, err := s.instructors.FindByID(ctx, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch instructor")
	}
	if instructor.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructor belongs to another user")
	}
	return &instructor.ID, nil
}

// csvTemplateHeaders is the import spreadsheet layout offered for download.
var csvTemplateHeaders = []string{
	"turma", "data", "titulo", "turno", "status", "numero_aula",
	"sala", "unidade_predio", "bloco_estudo", "descricao", "observacoes", "link_arquivos",
}

// CSVTemplate renders the import template with one example row.
func (s *LessonService) CSVTemplate() ([]byte, error) {
	dataset := export.Dataset{
		Headers: csvTemplateHeaders,
		Rows: []map[string]string{{
			"turma":          "TEC INFO 2026",
			"data":           "2026-03-02",
			"titulo":         "Introdução à disciplina",
			"turno":          string(models.ShiftMorning),
			"status":         string(models.StatusPlanning),
			"numero_aula":    "1",
			"sala":           "Lab 3",
			"unidade_predio": "Bloco B",
			"bloco_estudo":   "Fundamentos",
			"descricao":      "Apresentação do plano de ensino",
			"observacoes":    "",
			"link_arquivos":  "",
		}},
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return payload, nil
}

func (s *LessonService) owned(ctx context.Context, userID, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch lesson")
	}
	if lesson.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another user")
	}
	return lesson, nil
}

func (s *LessonService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, userID)
	}
}
