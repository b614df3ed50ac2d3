package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
)

func TestEnrollmentRepositoryGroupEnrollmentExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM group_enrollments WHERE user_id = $1 AND group_id = $2)")).
		WithArgs("u-1", "g-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.GroupEnrollmentExists(context.Background(), "u-1", "g-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteGroupEnrollmentReportsMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM group_enrollments WHERE user_id = $1 AND group_id = $2")).
		WithArgs("u-1", "g-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteGroupEnrollment(context.Background(), "u-1", "g-1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateCourseEnrollmentSetsJoinedAt(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO course_enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.CourseEnrollment{UserID: "u-1", CourseID: "c-1"}
	require.NoError(t, repo.CreateCourseEnrollment(context.Background(), enrollment))
	assert.False(t, enrollment.JoinedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListCourseMembersByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "full_name", "email", "role", "progress", "joined_at"}).
		AddRow("u-1", "Ada", "ada@example.com", "ADMIN", 0.0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ce.course_id = $1 AND u.role = $2 ORDER BY u.full_name")).
		WithArgs("c-1", models.RoleAdmin).
		WillReturnRows(rows)

	members, err := repo.ListCourseMembers(context.Background(), "c-1", models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateProgress(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE group_enrollments SET progress = $3 WHERE user_id = $1 AND group_id = $2")).
		WithArgs("u-1", "g-1", 50.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProgress(context.Background(), "u-1", "g-1", 50))
	assert.NoError(t, mock.ExpectationsWereMet())
}
