package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-system-api/internal/models"
)

type ownershipTable struct {
	table       string
	parentField string
}

// ownershipTables maps each kind to its table and the column pointing at its owner.
var ownershipTables = map[models.EntityKind]ownershipTable{
	models.EntityCourse:     {table: "courses"},
	models.EntityGroup:      {table: "course_groups", parentField: "course_id"},
	models.EntityAssignment: {table: "assignments", parentField: "group_id"},
	models.EntitySubmission: {table: "submissions", parentField: "assignment_id"},
	models.EntityAnswer:     {table: "answers", parentField: "submission_id"},
}

var membershipTables = map[models.EntityKind]ownershipTable{
	models.EntityCourse: {table: "course_enrollments", parentField: "course_id"},
	models.EntityGroup:  {table: "group_enrollments", parentField: "group_id"},
}

var materialOwnerColumns = map[models.EntityKind]string{
	models.EntityCourse: "course_id",
	models.EntityGroup:  "group_id",
}

// CascadeRepository executes the generic row operations of an ownership-graph delete.
type CascadeRepository struct {
	db *sqlx.DB
}

// NewCascadeRepository constructs the repository.
func NewCascadeRepository(db *sqlx.DB) *CascadeRepository {
	return &CascadeRepository{db: db}
}

// ChildIDs lists the IDs of child rows owned by the given parent.
func (r *CascadeRepository) ChildIDs(ctx context.Context, parent models.EntityRef, child models.EntityKind) ([]string, error) {
	meta, ok := ownershipTables[child]
	if !ok || meta.parentField == "" {
		return nil, fmt.Errorf("list %s children: unsupported kind %q", parent.Kind, child)
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, meta.table, meta.parentField)
	var ids []string
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, parent.ID); err != nil {
		return nil, fmt.Errorf("list %s children of %s: %w", child, parent.Kind, err)
	}
	return ids, nil
}

// DeleteRow removes one entity row.
func (r *CascadeRepository) DeleteRow(ctx context.Context, ref models.EntityRef) error {
	meta, ok := ownershipTables[ref.Kind]
	if !ok {
		return fmt.Errorf("delete row: unsupported kind %q", ref.Kind)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, meta.table)
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ref.ID); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Kind, err)
	}
	return nil
}

// DeleteMemberships removes every enrollment row of a course or group.
func (r *CascadeRepository) DeleteMemberships(ctx context.Context, ref models.EntityRef) error {
	meta, ok := membershipTables[ref.Kind]
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, meta.table, meta.parentField)
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ref.ID); err != nil {
		return fmt.Errorf("delete %s memberships: %w", ref.Kind, err)
	}
	return nil
}

// DeleteMaterials removes the material rows owned by a course or group.
func (r *CascadeRepository) DeleteMaterials(ctx context.Context, ref models.EntityRef) error {
	column, ok := materialOwnerColumns[ref.Kind]
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM materials WHERE %s = $1`, column)
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ref.ID); err != nil {
		return fmt.Errorf("delete %s materials: %w", ref.Kind, err)
	}
	return nil
}
