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

const submissionColumns = `id, user_id, assignment_id, grade, is_checked, created_at, updated_at`

// SubmissionRepository persists submissions and their answers.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := conn(ctx, r.db).GetContext(ctx, &submission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// FindByUserAndAssignment returns the user's submission for an assignment.
func (r *SubmissionRepository) FindByUserAndAssignment(ctx context.Context, userID, assignmentID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = $1 AND assignment_id = $2`
	var submission models.Submission
	if err := conn(ctx, r.db).GetContext(ctx, &submission, query, userID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user submission: %w", err)
	}
	return &submission, nil
}

// Create persists a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = now
	const query = `INSERT INTO submissions (id, user_id, assignment_id, grade, is_checked, created_at, updated_at)
        VALUES (:id, :user_id, :assignment_id, :grade, :is_checked, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateGrade stores the grade and checked flag of a submission.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id string, grade int, checked bool) error {
	const query = `UPDATE submissions SET grade = $2, is_checked = $3, updated_at = $4 WHERE id = $1`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id, grade, checked, time.Now().UTC()); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// Delete removes a submission row.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

// FindAnswer returns an answer by its ID.
func (r *SubmissionRepository) FindAnswer(ctx context.Context, id string) (*models.Answer, error) {
	const query = `SELECT id, submission_id, name, text, url, created_at FROM answers WHERE id = $1`
	var answer models.Answer
	if err := conn(ctx, r.db).GetContext(ctx, &answer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find answer: %w", err)
	}
	return &answer, nil
}

// ListAnswers returns the answers of a submission in creation order.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error) {
	const query = `SELECT id, submission_id, name, text, url, created_at FROM answers WHERE submission_id = $1 ORDER BY created_at, id`
	var answers []models.Answer
	if err := conn(ctx, r.db).SelectContext(ctx, &answers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// CreateAnswer attaches an answer to its submission.
func (r *SubmissionRepository) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO answers (id, submission_id, name, text, url, created_at)
        VALUES (:id, :submission_id, :name, :text, :url, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, answer); err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	return nil
}

// DeleteAnswer removes an answer row.
func (r *SubmissionRepository) DeleteAnswer(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM answers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	return nil
}

// CountAnswers returns the persisted answer count of a submission.
func (r *SubmissionRepository) CountAnswers(ctx context.Context, submissionID string) (int, error) {
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM answers WHERE submission_id = $1`, submissionID); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}
