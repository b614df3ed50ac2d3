package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/response"
)

var errForbiddenProgress = appErrors.Clone(appErrors.ErrForbidden, "students can only read their own progress")

type progressService interface {
	UserProgress(ctx context.Context, groupID, userID string) (string, error)
	GroupProgress(ctx context.Context, groupID string) (*models.GroupProgress, error)
	ExportReport(ctx context.Context, groupID, format string) (*service.ProgressReport, error)
}

// ProgressHandler exposes progress figures and reports.
type ProgressHandler struct {
	progress progressService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress progressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Group godoc
// @Summary Group progress
// @Tags Progress
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/progress [get]
func (h *ProgressHandler) Group(c *gin.Context) {
	progress, err := h.progress.GroupProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// User godoc
// @Summary A user's progress in a group
// @Description Students may only read their own progress.
// @Tags Progress
// @Produce json
// @Param id path string true "Group ID"
// @Param userId path string true "User ID or me"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/progress/users/{userId} [get]
func (h *ProgressHandler) User(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	userID := c.Param("userId")
	if userID == "me" || userID == "" {
		userID = user.ID
	}
	if user.Role == models.RoleStudent && userID != user.ID {
		response.Error(c, errForbiddenProgress)
		return
	}
	progress, err := h.progress.UserProgress(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"group_id": c.Param("id"), "user_id": userID, "progress": progress}, nil)
}

// Export godoc
// @Summary Export group progress
// @Tags Progress
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Group ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /groups/{id}/progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	report, err := h.progress.ExportReport(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
