package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-system-api/internal/models"
)

const materialColumns = `id, name, storage_key, url, content_type, size, access, course_id, group_id, created_at`

// MaterialRepository stores material metadata. File bytes live in external storage.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// FindByID returns a material by its ID.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	var material models.Material
	if err := conn(ctx, r.db).GetContext(ctx, &material, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find material: %w", err)
	}
	return &material, nil
}

// ListByOwner returns the materials directly owned by a course or group.
func (r *MaterialRepository) ListByOwner(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error) {
	var column string
	switch kind {
	case models.EntityCourse:
		column = "course_id"
	case models.EntityGroup:
		column = "group_id"
	default:
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE %s = $1 ORDER BY created_at`, materialColumns, column)
	var materials []models.Material
	if err := conn(ctx, r.db).SelectContext(ctx, &materials, query, ownerID); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// Create stores material metadata.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO materials (id, name, storage_key, url, content_type, size, access, course_id, group_id, created_at)
        VALUES (:id, :name, :storage_key, :url, :content_type, :size, :access, :course_id, :group_id, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Delete removes a material row.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}
