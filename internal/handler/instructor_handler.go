package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/internal/service"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
	"github.com/omenezes/aula-planner-api/pkg/response"
)

type instructorService interface {
	List(ctx context.Context, userID string) ([]models.Instructor, error)
	Create(ctx context.Context, userID string, req service.InstructorRequest) (*models.Instructor, error)
	Delete(ctx context.Context, userID, id string) error
}

// InstructorHandler exposes adjunct instructor endpoints.
type InstructorHandler struct {
	service instructorService
}

// NewInstructorHandler builds a new handler.
func NewInstructorHandler(service instructorService) *InstructorHandler {
	return &InstructorHandler{service: service}
}

// List godoc
// @Summary List adjunct instructors
// @Tags Instructors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	instructors, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// Create godoc
// @Summary Create an adjunct instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.InstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Router /instructors [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req service.InstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	instructor, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Delete godoc
// @Summary Delete an adjunct instructor
// @Tags Instructors
// @Security BearerAuth
// @Param id path string true "Instructor ID"
// @Success 204 "No Content"
// @Router /instructors/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
