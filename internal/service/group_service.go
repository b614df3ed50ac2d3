package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type groupMembership interface {
	PropagateAdmins(ctx context.Context, group *models.Group) ([]string, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	IsCourseMember(ctx context.Context, courseID, userID string) (bool, error)
}

type progressInvalidator interface {
	Invalidate(ctx context.Context, groupID string)
}

// CreateGroupRequest is the payload for creating a group inside a course.
type CreateGroupRequest struct {
	CourseID  string    `json:"course_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// UpdateGroupRequest carries the editable group fields and the version they were read at.
type UpdateGroupRequest struct {
	Name      string    `json:"name" validate:"required,max=200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Version   int       `json:"version" validate:"required,min=1"`
}

// GroupQuery narrows a user's group listing.
type GroupQuery struct {
	Search string
	Status string
	Sort   string
}

func parseGroupSort(raw string) (models.GroupSort, bool) {
	sort := models.GroupSort(strings.ToLower(strings.TrimSpace(raw)))
	switch sort {
	case "":
		return models.GroupSortName, true
	case models.GroupSortName, models.GroupSortNameDesc,
		models.GroupSortStartDate, models.GroupSortStartDateDesc,
		models.GroupSortEndDate, models.GroupSortEndDateDesc:
		return sort, true
	default:
		return "", false
	}
}

// GroupService orchestrates the group lifecycle and memberships.
type GroupService struct {
	repo       groupRepository
	courses    courseReader
	membership groupMembership
	deleter    entityDeleter
	progress   progressInvalidator
	activities activityRecorder
	runner     *commandRunner
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewGroupService constructs GroupService. progress may be nil when group progress is not cached.
func NewGroupService(repo groupRepository, courses courseReader, membership groupMembership, deleter entityDeleter, progress progressInvalidator, activities activityRecorder, tx transactor, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if activities == nil {
		activities = noopActivities{}
	}
	return &GroupService{
		repo:       repo,
		courses:    courses,
		membership: membership,
		deleter:    deleter,
		progress:   progress,
		activities: activities,
		runner:     newCommandRunner(tx, metrics, logger),
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns a group with its status re-derived.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	s.refreshStatus(ctx, group, s.now())
	return group, nil
}

// ListForUser returns the user's groups. Statuses are re-derived and written back
// before the status filter is applied so stale rows never leak into the result.
func (s *GroupService) ListForUser(ctx context.Context, userID string, query GroupQuery) ([]models.Group, error) {
	sort, ok := parseGroupSort(query.Sort)
	if !ok {
		return nil, invalidf("unsupported sort %q", query.Sort)
	}
	var status models.GroupStatus
	if query.Status != "" {
		status = models.GroupStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
		if !status.Valid() {
			return nil, invalidf("unsupported status %q", query.Status)
		}
	}

	groups, err := s.repo.List(ctx, models.GroupFilter{UserID: userID, Search: strings.TrimSpace(query.Search), Sort: sort})
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list groups")
	}
	now := s.now()
	result := make([]models.Group, 0, len(groups))
	for i := range groups {
		s.refreshStatus(ctx, &groups[i], now)
		if status == "" || groups[i].Status == status {
			result = append(result, groups[i])
		}
	}
	return result, nil
}

// refreshStatus re-derives the status and persists it when it changed. A failed write is
// logged; the caller still sees the derived value.
func (s *GroupService) refreshStatus(ctx context.Context, group *models.Group, now time.Time) {
	derived := ResolveGroupStatus(now, group.StartDate, group.EndDate)
	if derived == group.Status {
		return
	}
	group.Status = derived
	if err := s.repo.UpdateStatus(ctx, group.ID, derived); err != nil {
		s.logger.Warn("persist group status failed", zap.String("group_id", group.ID), zap.Error(err))
	}
}

// Create persists a group, enrolls the course admins and, for teachers, the creator.
// Any failure removes the group again.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest, creator *models.User) (*models.Group, error) {
	if creator == nil {
		return nil, invalidf("creator is required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("group name is required")
	}
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}

	group := &models.Group{
		CourseID:  course.ID,
		Name:      req.Name,
		StartDate: req.StartDate.UTC(),
		EndDate:   req.EndDate.UTC(),
		Status:    ResolveGroupStatus(s.now(), req.StartDate, req.EndDate),
	}
	err = s.runner.Run(ctx, "create_group", func(ctx context.Context, saga *Saga) error {
		if err := s.repo.Create(ctx, group); err != nil {
			return appErrors.Dependency(err, "failed to create group")
		}
		saga.OnFailure("delete group", func(ctx context.Context) error {
			return s.repo.Delete(ctx, group.ID)
		})

		enrolled, err := s.membership.PropagateAdmins(ctx, group)
		for _, userID := range enrolled {
			userID := userID
			saga.OnFailure("remove admin "+userID, func(ctx context.Context) error {
				return s.membership.RemoveGroupMember(ctx, group.ID, userID)
			})
		}
		if err != nil {
			return err
		}

		switch creator.Role {
		case models.RoleTeacher:
			if err := s.membership.AddGroupMember(ctx, group.ID, creator.ID); err != nil {
				return err
			}
			saga.OnFailure("remove creator", func(ctx context.Context) error {
				return s.membership.RemoveGroupMember(ctx, group.ID, creator.ID)
			})
		case models.RoleAdmin, models.RoleStudent:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, Activity{
		Type:     ActivityCreatedGroup,
		UserID:   creator.ID,
		CourseID: course.ID,
		GroupID:  group.ID,
		Args:     []interface{}{group.Name, course.Name, formatDay(group.StartDate), formatDay(group.EndDate)},
	})
	return group, nil
}

// Update applies new field values, re-deriving the status from the new window.
func (s *GroupService) Update(ctx context.Context, id string, req UpdateGroupRequest) (*models.Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("group name is required")
	}
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	group.Name = req.Name
	group.StartDate = req.StartDate.UTC()
	group.EndDate = req.EndDate.UTC()
	group.Status = ResolveGroupStatus(s.now(), group.StartDate, group.EndDate)
	group.Version = req.Version
	if err := s.repo.Update(ctx, group); err != nil {
		return nil, writeError(err, "failed to update group")
	}
	return group, nil
}

// Delete removes the group with its assignments, submissions, materials and memberships.
// Notifications referencing it are kept with their references cleared.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "group")
	}
	if err := s.deleter.Delete(ctx, models.EntityRef{Kind: models.EntityGroup, ID: id}); err != nil {
		return err
	}
	s.invalidateProgress(ctx, id)
	return nil
}

// Join enrolls a course member into one of the course's groups.
func (s *GroupService) Join(ctx context.Context, groupID string, user *models.User) error {
	if user == nil {
		return invalidf("user is required")
	}
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return lookupError(err, "group")
	}
	course, err := s.courses.FindByID(ctx, group.CourseID)
	if err != nil {
		return lookupError(err, "course")
	}
	member, err := s.membership.IsCourseMember(ctx, course.ID, user.ID)
	if err != nil {
		return err
	}
	if !member {
		return appErrors.Clone(appErrors.ErrForbidden, "join the course before joining its groups")
	}
	if err := s.membership.AddGroupMember(ctx, group.ID, user.ID); err != nil {
		return err
	}
	s.invalidateProgress(ctx, group.ID)
	s.activities.Record(ctx, Activity{
		Type:     ActivityJoinedGroup,
		UserID:   user.ID,
		CourseID: course.ID,
		GroupID:  group.ID,
		Args:     []interface{}{group.Name, course.Name, formatDayTime(group.StartDate), formatDayTime(group.EndDate)},
	})
	return nil
}

// RemoveMember drops a user from a group. Removing an absent member succeeds.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		return lookupError(err, "group")
	}
	if err := s.membership.RemoveGroupMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.invalidateProgress(ctx, groupID)
	return nil
}

// invalidateProgress drops the cached aggregate after the member or assignment set changed.
func (s *GroupService) invalidateProgress(ctx context.Context, groupID string) {
	if s.progress != nil {
		s.progress.Invalidate(ctx, groupID)
	}
}
