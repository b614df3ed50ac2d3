package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type groupServiceStub struct{ removed string }

func (s *groupServiceStub) Get(ctx context.Context, id string) (*models.Group, error) {
	return &models.Group{ID: id}, nil
}

func (s *groupServiceStub) ListForUser(ctx context.Context, userID string, query service.GroupQuery) ([]models.Group, error) {
	return []models.Group{}, nil
}

func (s *groupServiceStub) Create(ctx context.Context, req service.CreateGroupRequest, creator *models.User) (*models.Group, error) {
	return &models.Group{ID: "group-1", Name: req.Name}, nil
}

func (s *groupServiceStub) Update(ctx context.Context, id string, req service.UpdateGroupRequest) (*models.Group, error) {
	return &models.Group{ID: id, Name: req.Name}, nil
}

func (s *groupServiceStub) Delete(ctx context.Context, id string) error { return nil }

func (s *groupServiceStub) Join(ctx context.Context, groupID string, user *models.User) error {
	return nil
}

func (s *groupServiceStub) RemoveMember(ctx context.Context, groupID, userID string) error {
	s.removed = groupID + "/" + userID
	return nil
}

type assignmentServiceStub struct{ graded string }

func (s *assignmentServiceStub) Get(ctx context.Context, id string) (*models.Assignment, error) {
	return &models.Assignment{ID: id}, nil
}

func (s *assignmentServiceStub) ListForGroup(ctx context.Context, groupID string) ([]models.Assignment, error) {
	return []models.Assignment{}, nil
}

func (s *assignmentServiceStub) Window(assignment *models.Assignment) service.AssignmentWindow {
	return service.AssignmentWindow{}
}

func (s *assignmentServiceStub) Create(ctx context.Context, groupID string, req service.AssignmentRequest, creator *models.User) (*models.Assignment, error) {
	return &models.Assignment{ID: "assignment-1", GroupID: groupID}, nil
}

func (s *assignmentServiceStub) Update(ctx context.Context, id string, req service.AssignmentRequest) (*models.Assignment, error) {
	return &models.Assignment{ID: id}, nil
}

func (s *assignmentServiceStub) Delete(ctx context.Context, id string) error { return nil }

func (s *assignmentServiceStub) GradeSubmission(ctx context.Context, submissionID string, req service.GradeRequest, grader *models.User) (*models.Submission, error) {
	s.graded = submissionID
	return &models.Submission{ID: submissionID}, nil
}

type answerServiceStub struct{ submitted string }

func (s *answerServiceStub) Submit(ctx context.Context, assignmentID string, req *service.SubmitAnswerRequest, user *models.User) (*service.SubmitAnswerResult, error) {
	s.submitted = assignmentID
	return &service.SubmitAnswerResult{SubmissionCreated: true}, nil
}

func (s *answerServiceStub) ListAnswers(ctx context.Context, submissionID string, user *models.User) ([]models.Answer, error) {
	return []models.Answer{}, nil
}

func (s *answerServiceStub) Delete(ctx context.Context, answerID string, user *models.User) (*service.DeleteAnswerResult, error) {
	return &service.DeleteAnswerResult{}, nil
}

type membershipServiceStub struct{}

func (membershipServiceStub) ListCourseMembers(ctx context.Context, courseID string) ([]models.Member, error) {
	return nil, nil
}

func (membershipServiceStub) ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	return nil, nil
}

func (membershipServiceStub) RemoveCourseMember(ctx context.Context, courseID, userID string) error {
	return nil
}

type notificationServiceStub struct{ unreadOnly bool }

func (s *notificationServiceStub) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	s.unreadOnly = unreadOnly
	return []models.Notification{}, nil
}

func (s *notificationServiceStub) MarkRead(ctx context.Context, id, userID string) error {
	return appErrors.ErrNotFound
}

type routerFixture struct {
	engine        *gin.Engine
	courses       *courseServiceMock
	groups        *groupServiceStub
	assignments   *assignmentServiceStub
	answers       *answerServiceStub
	materials     *materialServiceMock
	notifications *notificationServiceStub
}

func newRouterFixture() *routerFixture {
	gin.SetMode(gin.TestMode)
	f := &routerFixture{
		engine:        gin.New(),
		courses:       &courseServiceMock{},
		groups:        &groupServiceStub{},
		assignments:   &assignmentServiceStub{},
		answers:       &answerServiceStub{},
		materials:     &materialServiceMock{},
		notifications: &notificationServiceStub{},
	}
	tokens := staticTokens{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"teacher": {UserID: "teacher-1", Role: models.RoleTeacher},
		"student": {UserID: "student-1", Role: models.RoleStudent},
	}
	RegisterRoutes(f.engine.Group("/api/v1"), tokens, Handlers{
		Courses:       NewCourseHandler(f.courses),
		Groups:        NewGroupHandler(f.groups),
		Assignments:   NewAssignmentHandler(f.assignments),
		Answers:       NewAnswerHandler(f.answers),
		Materials:     NewMaterialHandler(f.materials),
		Memberships:   NewMembershipHandler(membershipServiceStub{}),
		Notifications: NewNotificationHandler(f.notifications),
		Progress:      NewProgressHandler(&progressServiceMock{}),
	})
	return f
}

func (f *routerFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireToken(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodGet, "/api/v1/courses", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/courses", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/courses", "student", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesRestrictCourseCreationToStaff(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodPost, "/api/v1/courses", "student", `{"name":"Algebra"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, f.courses.createCalls)

	w = f.do(http.MethodPost, "/api/v1/courses", "teacher", `{"name":"Algebra"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, f.courses.createCalls)
}

func TestRoutesAnswersAreStudentOnly(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodPost, "/api/v1/assignments/assignment-1/answers", "teacher", `{"name":"Essay","url":"https://example.com/essay"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.answers.submitted)

	w = f.do(http.MethodPost, "/api/v1/assignments/assignment-1/answers", "student", `{"name":"Essay","url":"https://example.com/essay"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "assignment-1", f.answers.submitted)
}

func TestRoutesGradingIsStaffOnly(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodPut, "/api/v1/submissions/submission-1/grade", "student", `{"grade":90}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPut, "/api/v1/submissions/submission-1/grade", "admin", `{"grade":90}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "submission-1", f.assignments.graded)
}

func TestRoutesDeleteReturnsNoContent(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodDelete, "/api/v1/courses/course-9", "admin", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "course-9", f.courses.deleted)

	w = f.do(http.MethodDelete, "/api/v1/groups/group-1/members/student-1", "teacher", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "group-1/student-1", f.groups.removed)
}

func TestRoutesDownloadIsPublic(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodGet, "/api/v1/materials/download?token=good", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lecture notes", w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/materials/material-1/link", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutesNotifications(t *testing.T) {
	f := newRouterFixture()

	w := f.do(http.MethodGet, "/api/v1/notifications?unread=true", "student", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.notifications.unreadOnly)

	w = f.do(http.MethodPost, "/api/v1/notifications/n-1/read", "student", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
