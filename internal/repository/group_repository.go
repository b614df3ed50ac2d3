package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-system-api/internal/models"
)

const groupColumns = `g.id, g.course_id, g.name, g.start_date, g.end_date, g.status, g.version, g.created_at, g.updated_at`

// GroupRepository handles persistence of course groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM course_groups g WHERE g.id = $1`
	var group models.Group
	if err := conn(ctx, r.db).GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

// List returns groups matching the filter. UserID restricts to groups the user belongs to.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	base := `FROM course_groups g`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		base += ` JOIN group_enrollments ge ON ge.group_id = g.id`
		conditions = append(conditions, fmt.Sprintf("ge.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("g.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("g.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("g.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s`, groupColumns, base, clause, groupOrderBy(filter.Sort))
	var groups []models.Group
	if err := conn(ctx, r.db).SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func groupOrderBy(sort models.GroupSort) string {
	switch sort {
	case models.GroupSortNameDesc:
		return "g.name DESC"
	case models.GroupSortStartDate:
		return "g.start_date ASC"
	case models.GroupSortStartDateDesc:
		return "g.start_date DESC"
	case models.GroupSortEndDate:
		return "g.end_date ASC"
	case models.GroupSortEndDateDesc:
		return "g.end_date DESC"
	default:
		return "g.name ASC"
	}
}

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	group.Version = 1
	const query = `INSERT INTO course_groups (id, course_id, name, start_date, end_date, status, version, created_at, updated_at)
        VALUES (:id, :course_id, :name, :start_date, :end_date, :status, :version, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update writes the editable fields when the stored version still matches group.Version.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_groups SET name = $2, start_date = $3, end_date = $4, status = $5, updated_at = $6, version = version + 1
        WHERE id = $1 AND version = $7`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, group.ID, group.Name, group.StartDate, group.EndDate, group.Status, group.UpdatedAt, group.Version)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if err := expectAffected(res, "update group"); err != nil {
		return err
	}
	group.Version++
	return nil
}

// UpdateStatus stores a re-derived status. It does not bump the version.
func (r *GroupRepository) UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error {
	const query = `UPDATE course_groups SET status = $2 WHERE id = $1`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}

// Delete removes the group row.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM course_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
