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

const assignmentColumns = `id, group_id, name, description, start_date, end_date, status, version, created_at, updated_at`

// AssignmentRepository handles persistence of assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment by its ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := conn(ctx, r.db).GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// ListByGroup returns the assignments of a group ordered by start date.
func (r *AssignmentRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE group_id = $1 ORDER BY start_date, name`
	var assignments []models.Assignment
	if err := conn(ctx, r.db).SelectContext(ctx, &assignments, query, groupID); err != nil {
		return nil, fmt.Errorf("list group assignments: %w", err)
	}
	return assignments, nil
}

// ListWithSubmissions returns the group's assignments each carrying its submissions.
func (r *AssignmentRepository) ListWithSubmissions(ctx context.Context, groupID string) ([]models.AssignmentWithSubmissions, error) {
	assignments, err := r.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	const query = `SELECT s.id, s.user_id, s.assignment_id, s.grade, s.is_checked, s.created_at, s.updated_at
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE a.group_id = $1`
	var submissions []models.Submission
	if err := conn(ctx, r.db).SelectContext(ctx, &submissions, query, groupID); err != nil {
		return nil, fmt.Errorf("list group submissions: %w", err)
	}
	byAssignment := make(map[string][]models.Submission, len(assignments))
	for _, s := range submissions {
		byAssignment[s.AssignmentID] = append(byAssignment[s.AssignmentID], s)
	}
	result := make([]models.AssignmentWithSubmissions, 0, len(assignments))
	for _, a := range assignments {
		result = append(result, models.AssignmentWithSubmissions{Assignment: a, Submissions: byAssignment[a.ID]})
	}
	return result, nil
}

// Create persists a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	assignment.Version = 1
	const query = `INSERT INTO assignments (id, group_id, name, description, start_date, end_date, status, version, created_at, updated_at)
        VALUES (:id, :group_id, :name, :description, :start_date, :end_date, :status, :version, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update writes editable fields when the stored version still matches.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET name = $2, description = $3, start_date = $4, end_date = $5, status = $6, updated_at = $7, version = version + 1
        WHERE id = $1 AND version = $8`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, assignment.ID, assignment.Name, assignment.Description,
		assignment.StartDate, assignment.EndDate, assignment.Status, assignment.UpdatedAt, assignment.Version)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if err := expectAffected(res, "update assignment"); err != nil {
		return err
	}
	assignment.Version++
	return nil
}

// UpdateStatus stores a re-derived status.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	const query = `UPDATE assignments SET status = $2 WHERE id = $1`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	return nil
}

// Delete removes the assignment row.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
