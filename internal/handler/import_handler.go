package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omenezes/aula-planner-api/internal/models"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
	"github.com/omenezes/aula-planner-api/pkg/response"
)

type importService interface {
	ImportCSV(ctx context.Context, userID string, r io.Reader) (*models.ReconcileResult, error)
	RestoreDocument(ctx context.Context, userID string, doc models.BackupDocument) (*models.ReconcileResult, error)
}

// ImportHandler exposes the CSV and JSON import endpoints.
type ImportHandler struct {
	service importService
}

// NewImportHandler builds a new handler.
func NewImportHandler(service importService) *ImportHandler {
	return &ImportHandler{service: service}
}

// ImportCSV godoc
// @Summary Import lessons from an uploaded CSV file
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/csv [post]
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	claims := claimsFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing CSV file upload"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable CSV upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.service.ImportCSV(c.Request.Context(), claims.UserID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportJSON godoc
// @Summary Import a backup document posted as JSON
// @Tags Imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.BackupDocument true "Backup document"
// @Success 200 {object} response.Envelope
// @Router /imports/json [post]
func (h *ImportHandler) ImportJSON(c *gin.Context) {
	claims := claimsFromContext(c)

	var doc models.BackupDocument
	if err := json.NewDecoder(c.Request.Body).Decode(&doc); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid backup document"))
		return
	}
	result, err := h.service.RestoreDocument(c.Request.Context(), claims.UserID, doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
