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

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, created_by, version, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := conn(ctx, r.db).GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ListByUser returns the courses a user is enrolled in.
func (r *CourseRepository) ListByUser(ctx context.Context, userID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.description, c.created_by, c.version, c.created_at, c.updated_at
        FROM courses c
        JOIN course_enrollments ce ON ce.course_id = c.id
        WHERE ce.user_id = $1
        ORDER BY c.name`
	var courses []models.Course
	if err := conn(ctx, r.db).SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list user courses: %w", err)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	course.Version = 1
	const query = `INSERT INTO courses (id, name, description, created_by, version, created_at, updated_at)
        VALUES (:id, :name, :description, :created_by, :version, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update writes name and description when the stored version still matches course.Version.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = $2, description = $3, updated_at = $4, version = version + 1
        WHERE id = $1 AND version = $5`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, course.ID, course.Name, course.Description, course.UpdatedAt, course.Version)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if err := expectAffected(res, "update course"); err != nil {
		return err
	}
	course.Version++
	return nil
}

// Delete removes the course row.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
