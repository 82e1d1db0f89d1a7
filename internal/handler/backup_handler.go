package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/drive"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
	"github.com/omenezes/aula-planner-api/pkg/response"
)

type backupService interface {
	ListBackups(ctx context.Context) ([]drive.BackupFile, error)
	SyncLatest(ctx context.Context, user *models.User) (models.SyncReport, *models.ReconcileResult, error)
	Restore(ctx context.Context, userID, fileID string) (*models.ReconcileResult, error)
	BuildExport(ctx context.Context, user *models.User) (*models.BackupDocument, error)
	PushExport(ctx context.Context, user *models.User) (string, error)
}

// BackupHandler exposes the cloud backup endpoints.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler builds a new handler.
func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{service: service}
}

func userFromClaims(claims *models.JWTClaims) *models.User {
	return &models.User{ID: claims.UserID, Email: claims.Email, FullName: claims.FullName}
}

// List godoc
// @Summary List backup files newest-first
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	files, err := h.service.ListBackups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Push godoc
// @Summary Upload a fresh backup of the user's data
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /backups [post]
func (h *BackupHandler) Push(c *gin.Context) {
	claims := claimsFromContext(c)
	name, err := h.service.PushExport(c.Request.Context(), userFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"file": name})
}

// Sync godoc
// @Summary Restore the newest backup owned by the user
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /backups/sync [post]
func (h *BackupHandler) Sync(c *gin.Context) {
	claims := claimsFromContext(c)
	report, result, err := h.service.SyncLatest(c.Request.Context(), userFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"sync": report, "result": result}, nil)
}

// Restore godoc
// @Summary Restore a specific backup file
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Backup file ID"
// @Success 200 {object} response.Envelope
// @Router /backups/{id}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	claims := claimsFromContext(c)
	result, err := h.service.Restore(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download the user's data as a backup JSON file
// @Tags Backups
// @Produce application/json
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /backups/export [get]
func (h *BackupHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	doc, err := h.service.BuildExport(c.Request.Context(), userFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode backup"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "backup_planner.json"))
	c.Data(http.StatusOK, "application/json", payload)
}
