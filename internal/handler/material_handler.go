package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/response"
)

type materialService interface {
	Upload(ctx context.Context, in service.UploadMaterialInput, uploader *models.User) (*models.Material, error)
	List(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error)
	Delete(ctx context.Context, id string) error
	Link(ctx context.Context, id string) (*service.MaterialLink, error)
	Open(ctx context.Context, token string) (*models.Material, io.ReadCloser, error)
}

// MaterialHandler exposes course and group material endpoints.
type MaterialHandler struct {
	materials materialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials materialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// UploadCourse godoc
// @Summary Upload course material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "Material file"
// @Param name formData string false "Display name"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/materials [post]
func (h *MaterialHandler) UploadCourse(c *gin.Context) {
	h.upload(c, models.EntityCourse)
}

// UploadGroup godoc
// @Summary Upload group material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Group ID"
// @Param file formData file true "Material file"
// @Param name formData string false "Display name"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups/{id}/materials [post]
func (h *MaterialHandler) UploadGroup(c *gin.Context) {
	h.upload(c, models.EntityGroup)
}

func (h *MaterialHandler) upload(c *gin.Context, kind models.EntityKind) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	material, err := h.materials.Upload(c.Request.Context(), service.UploadMaterialInput{
		OwnerKind:   kind,
		OwnerID:     c.Param("id"),
		Name:        c.PostForm("name"),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// ListCourse godoc
// @Summary List course materials
// @Tags Materials
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/materials [get]
func (h *MaterialHandler) ListCourse(c *gin.Context) {
	h.list(c, models.EntityCourse)
}

// ListGroup godoc
// @Summary List group materials
// @Tags Materials
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/materials [get]
func (h *MaterialHandler) ListGroup(c *gin.Context) {
	h.list(c, models.EntityGroup)
}

func (h *MaterialHandler) list(c *gin.Context, kind models.EntityKind) {
	materials, err := h.materials.List(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

// Link godoc
// @Summary Get a material download link
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/link [get]
func (h *MaterialHandler) Link(c *gin.Context) {
	link, err := h.materials.Link(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Delete godoc
// @Summary Delete material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Failure 502 {object} response.Envelope
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download material with a signed token
// @Tags Materials
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /materials/download [get]
func (h *MaterialHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token is required"))
		return
	}
	material, body, err := h.materials.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	headers := map[string]string{"Content-Disposition": fmt.Sprintf("attachment; filename=%q", material.Name)}
	c.DataFromReader(http.StatusOK, material.Size, material.ContentType, body, headers)
}
