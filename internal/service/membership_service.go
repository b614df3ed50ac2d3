package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type enrollmentRepository interface {
	CourseEnrollmentExists(ctx context.Context, userID, courseID string) (bool, error)
	CreateCourseEnrollment(ctx context.Context, enrollment *models.CourseEnrollment) error
	DeleteCourseEnrollment(ctx context.Context, userID, courseID string) (bool, error)
	GroupEnrollmentExists(ctx context.Context, userID, groupID string) (bool, error)
	CreateGroupEnrollment(ctx context.Context, enrollment *models.GroupEnrollment) error
	DeleteGroupEnrollment(ctx context.Context, userID, groupID string) (bool, error)
	ListCourseMembers(ctx context.Context, courseID string, role models.UserRole) ([]models.Member, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error)
	UpdateProgress(ctx context.Context, userID, groupID string, progress float64) error
}

type notificationSink interface {
	ClearReferences(ctx context.Context, kind models.EntityKind, id string) (int64, error)
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
}

// MembershipService keeps memberships and their dependents consistent as users come and
// go and entities are removed.
type MembershipService struct {
	enrollments   enrollmentRepository
	notifications notificationSink
	storage       objectStore
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewMembershipService constructs MembershipService.
func NewMembershipService(enrollments enrollmentRepository, notifications notificationSink, storage objectStore, metrics *MetricsService, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{enrollments: enrollments, notifications: notifications, storage: storage, metrics: metrics, logger: logger}
}

// AddCourseMember enrolls a user into a course.
func (s *MembershipService) AddCourseMember(ctx context.Context, courseID, userID string) error {
	exists, err := s.enrollments.CourseEnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return appErrors.Dependency(err, "failed to check course membership")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateMembership, "user already enrolled in course")
	}
	if err := s.enrollments.CreateCourseEnrollment(ctx, &models.CourseEnrollment{UserID: userID, CourseID: courseID}); err != nil {
		return appErrors.Dependency(err, "failed to enroll user in course")
	}
	return nil
}

// RemoveCourseMember drops a course membership. A missing membership is not an error.
func (s *MembershipService) RemoveCourseMember(ctx context.Context, courseID, userID string) error {
	removed, err := s.enrollments.DeleteCourseEnrollment(ctx, userID, courseID)
	if err != nil {
		return appErrors.Dependency(err, "failed to remove course member")
	}
	if !removed {
		s.logger.Debug("course membership already absent", zap.String("course_id", courseID), zap.String("user_id", userID))
	}
	return nil
}

// AddGroupMember enrolls a user into a group with zero progress.
func (s *MembershipService) AddGroupMember(ctx context.Context, groupID, userID string) error {
	exists, err := s.enrollments.GroupEnrollmentExists(ctx, userID, groupID)
	if err != nil {
		return appErrors.Dependency(err, "failed to check group membership")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateMembership, "user already enrolled in group")
	}
	if err := s.enrollments.CreateGroupEnrollment(ctx, &models.GroupEnrollment{UserID: userID, GroupID: groupID}); err != nil {
		return appErrors.Dependency(err, "failed to enroll user in group")
	}
	return nil
}

// RemoveGroupMember drops a group membership. A missing membership is not an error.
func (s *MembershipService) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	removed, err := s.enrollments.DeleteGroupEnrollment(ctx, userID, groupID)
	if err != nil {
		return appErrors.Dependency(err, "failed to remove group member")
	}
	if !removed {
		s.logger.Debug("group membership already absent", zap.String("group_id", groupID), zap.String("user_id", userID))
	}
	return nil
}

// PropagateAdmins enrolls every admin of the group's course into the group. It stops at
// the first failure and returns the enrolled user IDs so callers can compensate.
func (s *MembershipService) PropagateAdmins(ctx context.Context, group *models.Group) ([]string, error) {
	admins, err := s.enrollments.ListCourseMembers(ctx, group.CourseID, models.RoleAdmin)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list course admins")
	}
	enrolled := make([]string, 0, len(admins))
	for _, admin := range admins {
		if err := s.enrollments.CreateGroupEnrollment(ctx, &models.GroupEnrollment{UserID: admin.UserID, GroupID: group.ID}); err != nil {
			return enrolled, appErrors.Dependency(err, fmt.Sprintf("failed to enroll admin %s into group", admin.UserID))
		}
		enrolled = append(enrolled, admin.UserID)
	}
	return enrolled, nil
}

// ListCourseMembers returns every member of a course.
func (s *MembershipService) ListCourseMembers(ctx context.Context, courseID string) ([]models.Member, error) {
	members, err := s.enrollments.ListCourseMembers(ctx, courseID, "")
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list course members")
	}
	return members, nil
}

// ListGroupMembers returns every member of a group with their stored progress.
func (s *MembershipService) ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	members, err := s.enrollments.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list group members")
	}
	return members, nil
}

// IsCourseMember reports whether the user belongs to the course.
func (s *MembershipService) IsCourseMember(ctx context.Context, courseID, userID string) (bool, error) {
	ok, err := s.enrollments.CourseEnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return false, appErrors.Dependency(err, "failed to check course membership")
	}
	return ok, nil
}

// ClearNotificationReferences de-references notifications pointing at the entity.
func (s *MembershipService) ClearNotificationReferences(ctx context.Context, ref models.EntityRef) error {
	if !ref.Kind.ReferencedByNotifications() {
		return nil
	}
	cleared, err := s.notifications.ClearReferences(ctx, ref.Kind, ref.ID)
	if err != nil {
		return appErrors.Dependency(err, fmt.Sprintf("failed to clear notification references to %s", ref.Kind))
	}
	if cleared > 0 {
		s.logger.Debug("notification references cleared",
			zap.String("kind", string(ref.Kind)),
			zap.String("id", ref.ID),
			zap.Int64("count", cleared))
	}
	return nil
}

// PurgeMaterials removes material objects from storage, stopping at the first failure.
// Relational rows are left for the caller to drop once every object is gone.
func (s *MembershipService) PurgeMaterials(ctx context.Context, materials []models.Material) error {
	for _, material := range materials {
		err := s.storage.Delete(ctx, material.StorageKey)
		s.metrics.RecordStorageOperation("delete", err)
		if err != nil {
			return appErrors.Dependency(err, fmt.Sprintf("failed to delete material %q from storage", material.Name))
		}
	}
	return nil
}
