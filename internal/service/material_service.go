package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type materialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Material, error)
	ListByOwner(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id string) error
}

type materialStorage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type materialOpener interface {
	Open(key string) (io.ReadCloser, error)
}

type downloadSigner interface {
	Generate(materialID, key string) (string, time.Time, error)
	Parse(token string) (materialID, key string, err error)
}

// UploadMaterialInput describes a file attached to a course or group.
type UploadMaterialInput struct {
	OwnerKind   models.EntityKind
	OwnerID     string
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MaterialLink is a download location for a material.
type MaterialLink struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MaterialServiceConfig holds upload limits and download routing.
type MaterialServiceConfig struct {
	MaxFileSize  int64
	DownloadPath string
}

// MaterialService stores educational materials in external storage and tracks their metadata.
type MaterialService struct {
	repo       materialRepository
	storage    materialStorage
	opener     materialOpener
	signer     downloadSigner
	courses    courseReader
	groups     groupReader
	activities activityRecorder
	metrics    *MetricsService
	runner     *commandRunner
	cfg        MaterialServiceConfig
	logger     *zap.Logger
}

// NewMaterialService constructs MaterialService. opener and signer are only needed for
// backends without public URLs.
func NewMaterialService(repo materialRepository, storage materialStorage, opener materialOpener, signer downloadSigner, courses courseReader, groups groupReader, activities activityRecorder, metrics *MetricsService, cfg MaterialServiceConfig, logger *zap.Logger) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if activities == nil {
		activities = noopActivities{}
	}
	return &MaterialService{
		repo:       repo,
		storage:    storage,
		opener:     opener,
		signer:     signer,
		courses:    courses,
		groups:     groups,
		activities: activities,
		metrics:    metrics,
		runner:     newCommandRunner(nil, metrics, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// Upload writes the file to storage first and records the row second. A failed row
// insert removes the stored object again.
func (s *MaterialService) Upload(ctx context.Context, in UploadMaterialInput, uploader *models.User) (*models.Material, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = strings.TrimSpace(in.Filename)
	}
	if in.Name == "" {
		return nil, invalidf("material name is required")
	}
	if in.Body == nil {
		return nil, invalidf("file is required")
	}
	if s.cfg.MaxFileSize > 0 && in.Size > s.cfg.MaxFileSize {
		return nil, invalidf("file exceeds the %d byte limit", s.cfg.MaxFileSize)
	}

	material := &models.Material{ID: uuid.NewString(), Name: in.Name, ContentType: in.ContentType, Size: in.Size}
	var ownerName string
	var activity ActivityType
	switch in.OwnerKind {
	case models.EntityCourse:
		course, err := s.courses.FindByID(ctx, in.OwnerID)
		if err != nil {
			return nil, lookupError(err, "course")
		}
		material.Access = models.MaterialAccessCourse
		material.CourseID = &course.ID
		ownerName, activity = course.Name, ActivityAttachedCourseFile
	case models.EntityGroup:
		group, err := s.groups.FindByID(ctx, in.OwnerID)
		if err != nil {
			return nil, lookupError(err, "group")
		}
		material.Access = models.MaterialAccessGroup
		material.GroupID = &group.ID
		ownerName, activity = group.Name, ActivityAttachedGroupFile
	default:
		return nil, invalidf("materials can only be attached to courses or groups")
	}
	material.StorageKey = materialKey(in.OwnerKind, in.OwnerID, material.ID, in.Filename)

	err := s.runner.Run(ctx, "upload_material", func(ctx context.Context, saga *Saga) error {
		location, err := s.storage.Put(ctx, material.StorageKey, in.Body, in.ContentType)
		s.metrics.RecordStorageOperation("put", err)
		if err != nil {
			return appErrors.Dependency(err, "failed to upload material")
		}
		saga.OnFailure("delete stored object", func(ctx context.Context) error {
			return s.storage.Delete(ctx, material.StorageKey)
		})
		if isAbsoluteURL(location) {
			material.URL = location
		}
		if err := s.repo.Create(ctx, material); err != nil {
			return appErrors.Dependency(err, "failed to record material")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uploader != nil {
		a := Activity{Type: activity, UserID: uploader.ID, Args: []interface{}{ownerName}}
		if material.CourseID != nil {
			a.CourseID = *material.CourseID
		}
		if material.GroupID != nil {
			a.GroupID = *material.GroupID
		}
		s.activities.Record(ctx, a)
	}
	return material, nil
}

// List returns the materials attached to a course or group.
func (s *MaterialService) List(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error) {
	if !kind.OwnsMaterials() {
		return nil, invalidf("materials can only be attached to courses or groups")
	}
	materials, err := s.repo.ListByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list materials")
	}
	if materials == nil {
		materials = []models.Material{}
	}
	return materials, nil
}

// Delete removes the stored object and then the row. A storage failure keeps the row.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "material")
	}
	err = s.storage.Delete(ctx, material.StorageKey)
	s.metrics.RecordStorageOperation("delete", err)
	if err != nil {
		return appErrors.Dependency(err, "failed to delete material from storage")
	}
	if err := s.repo.Delete(ctx, material.ID); err != nil {
		return appErrors.Dependency(err, "failed to delete material")
	}
	return nil
}

// Link returns where the material can be downloaded. Public objects return their URL;
// others get a short-lived signed link.
func (s *MaterialService) Link(ctx context.Context, id string) (*MaterialLink, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "material")
	}
	if material.URL != "" {
		return &MaterialLink{URL: material.URL}, nil
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrDependency, "material downloads are not configured")
	}
	token, expiresAt, err := s.signer.Generate(material.ID, material.StorageKey)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to sign download link")
	}
	link := fmt.Sprintf("%s?token=%s", s.cfg.DownloadPath, url.QueryEscape(token))
	return &MaterialLink{URL: link, ExpiresAt: &expiresAt}, nil
}

// Open validates a signed token and opens the stored file.
func (s *MaterialService) Open(ctx context.Context, token string) (*models.Material, io.ReadCloser, error) {
	if s.signer == nil || s.opener == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "material downloads are not served by this backend")
	}
	materialID, key, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	material, err := s.repo.FindByID(ctx, materialID)
	if err != nil {
		return nil, nil, lookupError(err, "material")
	}
	if material.StorageKey != key {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	body, err := s.opener.Open(key)
	if err != nil {
		return nil, nil, appErrors.Dependency(err, "failed to open material")
	}
	return material, body, nil
}

func materialKey(kind models.EntityKind, ownerID, materialID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return fmt.Sprintf("%ss/%s/%s-%s", kind, ownerID, materialID, base)
}

func isAbsoluteURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
