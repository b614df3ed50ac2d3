package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByUser(ctx context.Context, userID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type courseMembership interface {
	AddCourseMember(ctx context.Context, courseID, userID string) error
}

type activityRecorder interface {
	Record(ctx context.Context, activity Activity)
}

type entityDeleter interface {
	Delete(ctx context.Context, root models.EntityRef) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateCourseRequest carries the editable course fields and the version they were read at.
type UpdateCourseRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Version     int    `json:"version" validate:"required,min=1"`
}

// CourseService orchestrates the course lifecycle.
type CourseService struct {
	repo       courseRepository
	membership courseMembership
	deleter    entityDeleter
	activities activityRecorder
	runner     *commandRunner
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs CourseService. A nil transactor makes multi-step commands
// fall back to compensating actions.
func NewCourseService(repo courseRepository, membership courseMembership, deleter entityDeleter, activities activityRecorder, tx transactor, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if activities == nil {
		activities = noopActivities{}
	}
	return &CourseService{
		repo:       repo,
		membership: membership,
		deleter:    deleter,
		activities: activities,
		runner:     newCommandRunner(tx, metrics, logger),
		validator:  validate,
		logger:     logger,
	}
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	return course, nil
}

// ListForUser returns the courses the user is enrolled in.
func (s *CourseService) ListForUser(ctx context.Context, userID string) ([]models.Course, error) {
	courses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Create persists a course and enrolls its creator. If the enrollment fails the course is removed.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, creator *models.User) (*models.Course, error) {
	if creator == nil {
		return nil, invalidf("creator is required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("course name is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}

	course := &models.Course{Name: req.Name, Description: strings.TrimSpace(req.Description), CreatedBy: creator.ID}
	err := s.runner.Run(ctx, "create_course", func(ctx context.Context, saga *Saga) error {
		if err := s.repo.Create(ctx, course); err != nil {
			return appErrors.Dependency(err, "failed to create course")
		}
		saga.OnFailure("delete course", func(ctx context.Context) error {
			return s.repo.Delete(ctx, course.ID)
		})
		return s.membership.AddCourseMember(ctx, course.ID, creator.ID)
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, Activity{
		Type:     ActivityCreatedCourse,
		UserID:   creator.ID,
		CourseID: course.ID,
		Args:     []interface{}{course.Name},
	})
	return course, nil
}

// Update applies new field values when the caller's version is current.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("course name is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	course.Name = req.Name
	course.Description = strings.TrimSpace(req.Description)
	course.Version = req.Version
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, writeError(err, "failed to update course")
	}
	return course, nil
}

// Delete removes the course with its groups, materials and memberships.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "course")
	}
	return s.deleter.Delete(ctx, models.EntityRef{Kind: models.EntityCourse, ID: id})
}

// Join enrolls the user into an existing course.
func (s *CourseService) Join(ctx context.Context, courseID string, user *models.User) error {
	if user == nil {
		return invalidf("user is required")
	}
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		return lookupError(err, "course")
	}
	if err := s.membership.AddCourseMember(ctx, course.ID, user.ID); err != nil {
		return err
	}
	s.activities.Record(ctx, Activity{
		Type:     ActivityJoinedCourse,
		UserID:   user.ID,
		CourseID: course.ID,
		Args:     []interface{}{course.Name},
	})
	return nil
}
