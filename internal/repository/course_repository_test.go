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

func courseFixture() *models.Course {
	return &models.Course{ID: "c-1", Name: "Go 101", Description: "intro", CreatedBy: "u-1", Version: 3}
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Name: "Go 101", CreatedBy: "u-1"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, 1, course.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateBumpsVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := courseFixture()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET name = $2, description = $3, updated_at = $4, version = version + 1")).
		WithArgs("c-1", "Go 101", "intro", sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), course))
	assert.Equal(t, 4, course.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_by", "version", "created_at", "updated_at"}).
		AddRow("c-1", "Go 101", "", "u-1", 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN course_enrollments ce ON ce.course_id = c.id")).
		WithArgs("u-1").
		WillReturnRows(rows)

	courses, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Go 101", courses[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
