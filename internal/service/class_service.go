package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/export"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type classRepository interface {
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByNormalizedName(ctx context.Context, userID, name string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classLessonRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Lesson, error)
}

// ClassService manages classes and their printable plan exports.
type ClassService struct {
	repo      classRepository
	lessons   classLessonRepository
	cache     *CacheService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(repo classRepository, lessons classLessonRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		lessons:   lessons,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ClassRequest is the create/update payload.
type ClassRequest struct {
	Name           string  `json:"nome" validate:"required"`
	FullCode       *string `json:"codigo_completo"`
	CurricularUnit *string `json:"unidade_curricular"`
	JournalLink    *string `json:"link_diario"`
	Active         *bool   `json:"ativa"`
}

// List returns the user's classes.
func (s *ClassService) List(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error) {
	classes, err := s.repo.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get fetches one class, enforcing ownership.
func (s *ClassService) Get(ctx context.Context, userID, id string) (*models.Class, error) {
	return s.owned(ctx, userID, id)
}

// Create adds a class. The trimmed lowercased name must be unique per user.
func (s *ClassService) Create(ctx context.Context, userID string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if _, err := s.repo.FindByNormalizedName(ctx, userID, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	class := &models.Class{
		UserID:         userID,
		Name:           req.Name,
		FullCode:       req.FullCode,
		CurricularUnit: req.CurricularUnit,
		JournalLink:    req.JournalLink,
		Active:         active,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx, userID)
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, userID, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if models.NormalizeClassName(req.Name) != models.NormalizeClassName(class.Name) {
		if _, err := s.repo.FindByNormalizedName(ctx, userID, req.Name); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
		}
	}

	class.Name = req.Name
	class.FullCode = req.FullCode
	class.CurricularUnit = req.CurricularUnit
	class.JournalLink = req.JournalLink
	if req.Active != nil {
		class.Active = *req.Active
	}
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx, userID)
	return class, nil
}

// ToggleActive flips the class's active flag. Inactive classes drop off the
// dashboard but keep their lessons.
func (s *ClassService) ToggleActive(ctx context.Context, userID, id string) (*models.Class, error) {
	class, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	class.Active = !class.Active
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle class")
	}
	s.invalidate(ctx, userID)
	return class, nil
}

// Delete removes a class together with all of its lessons.
func (s *ClassService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx, userID)
	return nil
}

// printHeaders is the column layout of the printable class plan.
var printHeaders = []string{"Nº", "Data", "Turno", "Título", "Status"}

// ExportPlanPDF renders the class's lesson plan as a PDF. Lessons are
// renumbered sequentially by date regardless of their stored sequence.
func (s *ClassService) ExportPlanPDF(ctx context.Context, userID, id string) ([]byte, string, error) {
	class, dataset, err := s.planDataset(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	subtitle := ""
	if class.CurricularUnit != nil {
		subtitle = *class.CurricularUnit
	}
	payload, err := s.pdf.Render(dataset, fmt.Sprintf("Plano de Aulas - %s", class.Name), subtitle)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, fmt.Sprintf("plano_%s.pdf", models.NormalizeClassName(class.Name)), nil
}

// ExportPlanCSV renders the class's lesson plan as CSV.
func (s *ClassService) ExportPlanCSV(ctx context.Context, userID, id string) ([]byte, string, error) {
	class, dataset, err := s.planDataset(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, fmt.Sprintf("plano_%s.csv", models.NormalizeClassName(class.Name)), nil
}

func (s *ClassService) planDataset(ctx context.Context, userID, id string) (*models.Class, export.Dataset, error) {
	class, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, export.Dataset{}, err
	}
	lessons, err := s.lessons.ListByClass(ctx, id)
	if err != nil {
		return nil, export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}

	dataset := export.Dataset{Headers: printHeaders, Rows: make([]map[string]string, 0, len(lessons))}
	for i, lesson := range lessons {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Nº":     strconv.Itoa(i + 1),
			"Data":   lesson.Date.Format("02/01/2006"),
			"Turno":  string(lesson.Shift),
			"Título": lesson.Title,
			"Status": string(lesson.Status),
		})
	}
	return class, dataset, nil
}

func (s *ClassService) owned(ctx context.Context, userID, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another user")
	}
	return class, nil
}

func (s *ClassService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, userID)
	}
}
