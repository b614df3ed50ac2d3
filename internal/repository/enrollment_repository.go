package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-system-api/internal/models"
)

// EnrollmentRepository handles persistence of course and group enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CourseEnrollmentExists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) CourseEnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM course_enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check course enrollment: %w", err)
	}
	return exists, nil
}

// CreateCourseEnrollment inserts a course membership row.
func (r *EnrollmentRepository) CreateCourseEnrollment(ctx context.Context, enrollment *models.CourseEnrollment) error {
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_enrollments (user_id, course_id, joined_at) VALUES (:user_id, :course_id, :joined_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create course enrollment: %w", err)
	}
	return nil
}

// DeleteCourseEnrollment removes a course membership by composite key and reports whether a row matched.
func (r *EnrollmentRepository) DeleteCourseEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM course_enrollments WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete course enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete course enrollment rows affected: %w", err)
	}
	return n > 0, nil
}

// GroupEnrollmentExists reports whether the user is enrolled in the group.
func (r *EnrollmentRepository) GroupEnrollmentExists(ctx context.Context, userID, groupID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM group_enrollments WHERE user_id = $1 AND group_id = $2)`
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, userID, groupID); err != nil {
		return false, fmt.Errorf("check group enrollment: %w", err)
	}
	return exists, nil
}

// CreateGroupEnrollment inserts a group membership row.
func (r *EnrollmentRepository) CreateGroupEnrollment(ctx context.Context, enrollment *models.GroupEnrollment) error {
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO group_enrollments (user_id, group_id, progress, joined_at) VALUES (:user_id, :group_id, :progress, :joined_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create group enrollment: %w", err)
	}
	return nil
}

// DeleteGroupEnrollment removes a group membership by composite key and reports whether a row matched.
func (r *EnrollmentRepository) DeleteGroupEnrollment(ctx context.Context, userID, groupID string) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM group_enrollments WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("delete group enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete group enrollment rows affected: %w", err)
	}
	return n > 0, nil
}

// ListCourseMembers returns the members of a course. An empty role returns everyone.
func (r *EnrollmentRepository) ListCourseMembers(ctx context.Context, courseID string, role models.UserRole) ([]models.Member, error) {
	query := `SELECT u.id AS user_id, u.full_name, u.email, u.role, 0::float8 AS progress, ce.joined_at
        FROM course_enrollments ce
        JOIN users u ON u.id = ce.user_id
        WHERE ce.course_id = $1`
	args := []interface{}{courseID}
	if role != "" {
		query += ` AND u.role = $2`
		args = append(args, role)
	}
	query += ` ORDER BY u.full_name`
	var members []models.Member
	if err := conn(ctx, r.db).SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("list course members: %w", err)
	}
	return members, nil
}

// ListGroupMembers returns the members of a group with their stored progress.
func (r *EnrollmentRepository) ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	const query = `SELECT u.id AS user_id, u.full_name, u.email, u.role, ge.progress, ge.joined_at
        FROM group_enrollments ge
        JOIN users u ON u.id = ge.user_id
        WHERE ge.group_id = $1
        ORDER BY u.full_name`
	var members []models.Member
	if err := conn(ctx, r.db).SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}

// UpdateProgress stores a member's computed progress in the group.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID, groupID string, progress float64) error {
	const query = `UPDATE group_enrollments SET progress = $3 WHERE user_id = $1 AND group_id = $2`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID, groupID, progress); err != nil {
		return fmt.Errorf("update group progress: %w", err)
	}
	return nil
}
