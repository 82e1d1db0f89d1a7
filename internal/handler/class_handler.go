package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/internal/service"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
	"github.com/omenezes/aula-planner-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, userID string, activeOnly bool) ([]models.Class, error)
	Get(ctx context.Context, userID, id string) (*models.Class, error)
	Create(ctx context.Context, userID string, req service.ClassRequest) (*models.Class, error)
	Update(ctx context.Context, userID, id string, req service.ClassRequest) (*models.Class, error)
	ToggleActive(ctx context.Context, userID, id string) (*models.Class, error)
	Delete(ctx context.Context, userID, id string) error
	ExportPlanPDF(ctx context.Context, userID, id string) ([]byte, string, error)
	ExportPlanCSV(ctx context.Context, userID, id string) ([]byte, string, error)
}

// ClassHandler exposes class management endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler builds a new handler.
func NewClassHandler(service classService) *ClassHandler {
	return &ClassHandler{service: service}
}

// List godoc
// @Summary List the user's classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active classes"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	activeOnly := c.Query("active") == "true"
	classes, err := h.service.List(c.Request.Context(), claims.UserID, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Get one class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	class, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req service.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body service.ClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req service.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}
	class, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Toggle godoc
// @Summary Toggle a class's active flag
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/toggle [patch]
func (h *ClassHandler) Toggle(c *gin.Context) {
	claims := claimsFromContext(c)
	class, err := h.service.ToggleActive(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete a class and all of its lessons
// @Tags Classes
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 204 "No Content"
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportPlan godoc
// @Summary Download the printable class plan
// @Tags Classes
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /classes/{id}/plan [get]
func (h *ClassHandler) ExportPlan(c *gin.Context) {
	claims := claimsFromContext(c)
	var (
		payload     []byte
		filename    string
		contentType string
		err         error
	)
	if c.DefaultQuery("format", "pdf") == "csv" {
		payload, filename, err = h.service.ExportPlanCSV(c.Request.Context(), claims.UserID, c.Param("id"))
		contentType = "text/csv"
	} else {
		payload, filename, err = h.service.ExportPlanPDF(c.Request.Context(), claims.UserID, c.Param("id"))
		contentType = "application/pdf"
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
