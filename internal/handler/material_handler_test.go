package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type materialServiceMock struct {
	uploaded  service.UploadMaterialInput
	content   string
	uploadErr error
	listKind  models.EntityKind
	token     string
}

func (m *materialServiceMock) Upload(ctx context.Context, in service.UploadMaterialInput, uploader *models.User) (*models.Material, error) {
	m.uploaded = in
	raw, _ := io.ReadAll(in.Body)
	m.content = string(raw)
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &models.Material{ID: "material-1", Name: in.Name, Size: in.Size}, nil
}

func (m *materialServiceMock) List(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error) {
	m.listKind = kind
	return []models.Material{}, nil
}

func (m *materialServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *materialServiceMock) Link(ctx context.Context, id string) (*service.MaterialLink, error) {
	return &service.MaterialLink{URL: "/api/v1/materials/download?token=abc"}, nil
}

func (m *materialServiceMock) Open(ctx context.Context, token string) (*models.Material, io.ReadCloser, error) {
	m.token = token
	if token != "good" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	body := "lecture notes"
	return &models.Material{ID: "material-1", Name: "notes.txt", ContentType: "text/plain", Size: int64(len(body))}, io.NopCloser(strings.NewReader(body)), nil
}

func multipartUpload(t *testing.T, target, filename, content, name string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if name != "" {
		require.NoError(t, writer.WriteField("name", name))
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestMaterialHandlerUploadGroup(t *testing.T) {
	mockSvc := &materialServiceMock{}
	handler := NewMaterialHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/", "", teacherClaims)
	c.Request = multipartUpload(t, "/groups/group-1/materials", "notes.txt", "chapter one", "Week 1")
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}
	handler.UploadGroup(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.EntityGroup, mockSvc.uploaded.OwnerKind)
	assert.Equal(t, "group-1", mockSvc.uploaded.OwnerID)
	assert.Equal(t, "Week 1", mockSvc.uploaded.Name)
	assert.Equal(t, "notes.txt", mockSvc.uploaded.Filename)
	assert.Equal(t, int64(len("chapter one")), mockSvc.uploaded.Size)
	assert.Equal(t, "chapter one", mockSvc.content)
}

func TestMaterialHandlerUploadRequiresFile(t *testing.T) {
	mockSvc := &materialServiceMock{}
	handler := NewMaterialHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/", "", teacherClaims)
	c.Request = multipartUpload(t, "/courses/course-1/materials", "", "", "Syllabus")
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.UploadCourse(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.uploaded.OwnerID)
}

func TestMaterialHandlerUploadStorageFailure(t *testing.T) {
	mockSvc := &materialServiceMock{uploadErr: appErrors.Dependency(io.ErrUnexpectedEOF, "failed to upload material")}
	handler := NewMaterialHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/", "", teacherClaims)
	c.Request = multipartUpload(t, "/courses/course-1/materials", "syllabus.pdf", "%PDF", "")
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	handler.UploadCourse(c)

	assert.Equal(t, models.EntityCourse, mockSvc.uploaded.OwnerKind)
	assert.Equal(t, appErrors.ErrDependency.Status, w.Code)
}

func TestMaterialHandlerDownloadStreamsFile(t *testing.T) {
	handler := NewMaterialHandler(&materialServiceMock{})

	c, w := newTestContext(http.MethodGet, "/materials/download?token=good", "", nil)
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lecture notes", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
}

func TestMaterialHandlerDownloadRejectsBadToken(t *testing.T) {
	mockSvc := &materialServiceMock{}
	handler := NewMaterialHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/materials/download", "", nil)
	handler.Download(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.token)

	c, w = newTestContext(http.MethodGet, "/materials/download?token=forged", "", nil)
	handler.Download(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "forged", mockSvc.token)
}
