package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
)

func TestSubmissionRepositoryFindByUserAndAssignmentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE user_id = $1 AND assignment_id = $2")).
		WithArgs("u-1", "a-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserAndAssignment(context.Background(), "u-1", "a-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCountAnswers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM answers WHERE submission_id = $1")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountAnswers(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateAnswer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO answers").WillReturnResult(sqlmock.NewResult(1, 1))

	answer := &models.Answer{SubmissionID: "s-1", Name: "essay"}
	require.NoError(t, repo.CreateAnswer(context.Background(), answer))
	assert.NotEmpty(t, answer.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateGradeMarksChecked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade = $2, is_checked = $3")).
		WithArgs("s-1", 80, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "s-1", 80, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListWithSubmissionsGroupsByAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	assignments := sqlmock.NewRows([]string{"id", "group_id", "name", "description", "start_date", "end_date", "status", "version", "created_at", "updated_at"}).
		AddRow("a-1", "g-1", "One", "", now, now, "PLANNED", 1, now, now).
		AddRow("a-2", "g-1", "Two", "", now, now, "PLANNED", 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE group_id = $1 ORDER BY start_date, name")).
		WithArgs("g-1").
		WillReturnRows(assignments)
	submissions := sqlmock.NewRows([]string{"id", "user_id", "assignment_id", "grade", "is_checked", "created_at", "updated_at"}).
		AddRow("s-1", "u-1", "a-1", 50, true, now, now).
		AddRow("s-2", "u-2", "a-1", 0, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN assignments a ON a.id = s.assignment_id")).
		WithArgs("g-1").
		WillReturnRows(submissions)

	result, err := repo.ListWithSubmissions(context.Background(), "g-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Len(t, result[0].Submissions, 2)
	assert.Empty(t, result[1].Submissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
