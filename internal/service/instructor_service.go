package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type instructorRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Instructor, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	FindByName(ctx context.Context, userID, name string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Delete(ctx context.Context, id string) error
}

// InstructorService manages adjunct instructors.
type InstructorService struct {
	repo      instructorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs the service.
func NewInstructorService(repo instructorRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: validate, logger: logger}
}

// InstructorRequest is the create payload.
type InstructorRequest struct {
	Name string `json:"nome" validate:"required"`
}

// List returns the user's adjunct instructors.
func (s *InstructorService) List(ctx context.Context, userID string) ([]models.Instructor, error) {
	instructors, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// Create adds an adjunct instructor. Names are unique per user.
func (s *InstructorService) Create(ctx context.Context, userID string, req InstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.FindByName(ctx, userID, name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an instructor with this name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instructor name")
	}

	instructor := &models.Instructor{UserID: userID, Name: name}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}
	return instructor, nil
}

// Delete removes an adjunct instructor. Lessons assigned to them fall back
// to the account owner.
func (s *InstructorService) Delete(ctx context.Context, userID, id string) error {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch instructor")
	}
	if instructor.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "instructor belongs to another user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instructor")
	}
	return nil
}
