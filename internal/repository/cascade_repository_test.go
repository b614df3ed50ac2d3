package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
)

func TestCascadeRepositoryChildIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM assignments WHERE group_id = $1")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a-1").AddRow("a-2"))

	ids, err := repo.ChildIDs(context.Background(), models.EntityRef{Kind: models.EntityGroup, ID: "g-1"}, models.EntityAssignment)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositoryChildIDsRejectsRoot(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	_, err := repo.ChildIDs(context.Background(), models.EntityRef{Kind: models.EntityGroup, ID: "g-1"}, models.EntityCourse)
	assert.Error(t, err)
}

func TestCascadeRepositoryDeletes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)
	ref := models.EntityRef{Kind: models.EntityGroup, ID: "g-1"}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM group_enrollments WHERE group_id = $1")).
		WithArgs("g-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materials WHERE group_id = $1")).
		WithArgs("g-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_groups WHERE id = $1")).
		WithArgs("g-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteMemberships(context.Background(), ref))
	require.NoError(t, repo.DeleteMaterials(context.Background(), ref))
	require.NoError(t, repo.DeleteRow(context.Background(), ref))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeRepositorySkipsKindsWithoutMemberships(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	require.NoError(t, repo.DeleteMemberships(context.Background(), models.EntityRef{Kind: models.EntityAnswer, ID: "x"}))
	require.NoError(t, repo.DeleteMaterials(context.Background(), models.EntityRef{Kind: models.EntityAssignment, ID: "x"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryClearReferences(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET course_id = NULL, group_id = NULL, assignment_id = NULL WHERE group_id = $1")).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.ClearReferences(context.Background(), models.EntityGroup, "g-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkRead(context.Background(), "n-1", "u-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
