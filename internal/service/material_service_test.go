package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/storage"
)

type fakeMaterials struct {
	materials map[string]models.Material
	createErr error
}

func (f *fakeMaterials) FindByID(ctx context.Context, id string) (*models.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (f *fakeMaterials) ListByOwner(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error) {
	var list []models.Material
	for _, m := range f.materials {
		if (m.CourseID != nil && *m.CourseID == ownerID) || (m.GroupID != nil && *m.GroupID == ownerID) {
			list = append(list, m)
		}
	}
	return list, nil
}

func (f *fakeMaterials) Create(ctx context.Context, material *models.Material) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.materials[material.ID] = *material
	return nil
}

func (f *fakeMaterials) Delete(ctx context.Context, id string) error {
	delete(f.materials, id)
	return nil
}

type materialFixture struct {
	svc        *MaterialService
	repo       *fakeMaterials
	local      *storage.LocalStorage
	activities *recordedActivities
}

func newMaterialFixture(t *testing.T) *materialFixture {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := &fakeMaterials{materials: map[string]models.Material{}}
	activities := &recordedActivities{}
	svc := NewMaterialService(
		repo, local, local,
		storage.NewSignedURLSigner("secret", time.Minute),
		newFakeCourses(nil, models.Course{ID: "c1", Name: "Algebra"}),
		newFakeGroups(nil, models.Group{ID: "g1", CourseID: "c1", Name: "Morning"}),
		activities, NewMetricsService(),
		MaterialServiceConfig{MaxFileSize: 1024, DownloadPath: "/api/v1/materials/download"},
		nil,
	)
	return &materialFixture{svc: svc, repo: repo, local: local, activities: activities}
}

func upload(ownerKind models.EntityKind, ownerID, body string) UploadMaterialInput {
	return UploadMaterialInput{
		OwnerKind:   ownerKind,
		OwnerID:     ownerID,
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestUploadStoresObjectAndRow(t *testing.T) {
	fx := newMaterialFixture(t)

	material, err := fx.svc.Upload(context.Background(), upload(models.EntityGroup, "g1", "hello"), teacher)

	require.NoError(t, err)
	assert.Equal(t, "notes.txt", material.Name)
	assert.Equal(t, models.MaterialAccessGroup, material.Access)
	assert.True(t, strings.HasPrefix(material.StorageKey, "groups/g1/"))
	assert.FileExists(t, fx.local.Path(material.StorageKey))
	require.Len(t, fx.activities.activities, 1)
	assert.Equal(t, ActivityAttachedGroupFile, fx.activities.activities[0].Type)
}

func TestUploadRowFailureRemovesStoredObject(t *testing.T) {
	fx := newMaterialFixture(t)
	fx.repo.createErr = errors.New("insert failed")

	_, err := fx.svc.Upload(context.Background(), upload(models.EntityCourse, "c1", "hello"), teacher)

	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependency.Code))
	entries, _ := os.ReadDir(fx.local.Path("courses/c1"))
	assert.Empty(t, entries)
}

func TestUploadValidatesOwnerAndSize(t *testing.T) {
	fx := newMaterialFixture(t)

	_, err := fx.svc.Upload(context.Background(), upload(models.EntityAssignment, "a1", "x"), teacher)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = fx.svc.Upload(context.Background(), upload(models.EntityCourse, "c1", strings.Repeat("x", 2048)), teacher)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = fx.svc.Upload(context.Background(), upload(models.EntityGroup, "missing", "x"), teacher)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestSignedDownloadRoundTrip(t *testing.T) {
	fx := newMaterialFixture(t)
	material, err := fx.svc.Upload(context.Background(), upload(models.EntityCourse, "c1", "lecture"), teacher)
	require.NoError(t, err)

	link, err := fx.svc.Link(context.Background(), material.ID)
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/materials/download", parsed.Path)

	found, body, err := fx.svc.Open(context.Background(), parsed.Query().Get("token"))
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, material.ID, found.ID)
	assert.Equal(t, "lecture", string(content))

	_, _, err = fx.svc.Open(context.Background(), "garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestDeleteMaterialRemovesObjectThenRow(t *testing.T) {
	fx := newMaterialFixture(t)
	material, err := fx.svc.Upload(context.Background(), upload(models.EntityCourse, "c1", "lecture"), teacher)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), material.ID))

	assert.NoFileExists(t, fx.local.Path(material.StorageKey))
	assert.Empty(t, fx.repo.materials)
}
