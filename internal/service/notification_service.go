package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

// ActivityType identifies a user action that produces a notification.
type ActivityType string

const (
	ActivityCreatedCourse       ActivityType = "CREATED_COURSE"
	ActivityJoinedCourse        ActivityType = "JOINED_COURSE"
	ActivityCreatedGroup        ActivityType = "CREATED_GROUP"
	ActivityJoinedGroup         ActivityType = "JOINED_GROUP"
	ActivityCreatedAssignment   ActivityType = "CREATED_ASSIGNMENT"
	ActivityMarkedAssignment    ActivityType = "MARKED_ASSIGNMENT"
	ActivitySubmittedAssignment ActivityType = "SUBMITTED_ASSIGNMENT"
	ActivityAttachedGroupFile   ActivityType = "ATTACHED_GROUP_MATERIAL"
	ActivityAttachedCourseFile  ActivityType = "ATTACHED_COURSE_MATERIAL"
)

type activityTemplate struct {
	name        string
	description string
}

var activityTemplates = map[ActivityType]activityTemplate{
	ActivityCreatedCourse: {"You created a new course", `You created a new course - %q.`},
	ActivityJoinedCourse:  {"You joined a new course", `You joined a new course - %q.`},
	ActivityCreatedGroup: {"You created a new group",
		`You created a new group, %q, in course %q. Education in it starts on %s. It ends on %s.`},
	ActivityJoinedGroup: {"You joined a new group",
		`You joined a new group, %q, in course %q. Education in it starts on %s. It ends on %s.`},
	ActivityCreatedAssignment: {"You created a new assignment",
		`You created a new assignment %q for group %q. Assignment activity starts on %s. It ends on %s.`},
	ActivityMarkedAssignment: {"You marked an assignment",
		`You marked the solution %s submitted for assignment %q. Grade: %d/100.`},
	ActivitySubmittedAssignment: {"You submitted an assignment", `You submitted a solution for assignment %q.`},
	ActivityAttachedGroupFile:   {"You attached a new educational material", `You attached a new educational material for group %q.`},
	ActivityAttachedCourseFile:  {"You attached a new educational material", `You attached a new educational material for course %q.`},
}

const (
	activityDayLayout     = "Monday, 02 January 2006"
	activityDayTimeLayout = "Monday, 02 January 2006, at 15:04"
)

// Activity is a notification waiting to be rendered from its template.
type Activity struct {
	Type         ActivityType
	UserID       string
	CourseID     string
	GroupID      string
	AssignmentID string
	Args         []interface{}
}

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

// NotificationService records activity notifications and serves them back to users.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger, now: time.Now}
}

// Record stores the notification for an activity. Failures are logged and never surface
// to the command that produced the activity.
func (s *NotificationService) Record(ctx context.Context, activity Activity) {
	if s == nil || s.repo == nil {
		return
	}
	notification, err := renderActivity(activity)
	if err != nil {
		s.logger.Warn("render activity", zap.String("activity", string(activity.Type)), zap.Error(err))
		return
	}
	notification.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Warn("record notification failed",
			zap.String("activity", string(activity.Type)),
			zap.String("user_id", activity.UserID),
			zap.Error(err))
	}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Dependency(err, "failed to update notification")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

func renderActivity(activity Activity) (*models.Notification, error) {
	tmpl, ok := activityTemplates[activity.Type]
	if !ok {
		return nil, fmt.Errorf("unknown activity %q", activity.Type)
	}
	return &models.Notification{
		UserID:       activity.UserID,
		Name:         tmpl.name,
		Description:  fmt.Sprintf(tmpl.description, activity.Args...),
		CourseID:     optionalID(activity.CourseID),
		GroupID:      optionalID(activity.GroupID),
		AssignmentID: optionalID(activity.AssignmentID),
	}, nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func formatDay(t time.Time) string {
	return t.Format(activityDayLayout)
}

func formatDayTime(t time.Time) string {
	return t.Format(activityDayTimeLayout)
}

// noopActivities discards activities when no recorder is configured.
type noopActivities struct{}

func (noopActivities) Record(context.Context, Activity) {}
